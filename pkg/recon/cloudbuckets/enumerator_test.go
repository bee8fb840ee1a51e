package cloudbuckets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketURLConventions(t *testing.T) {
	assert.Equal(t, "https://acme.s3.amazonaws.com", bucketURL("acme", "aws"))
	assert.Equal(t, "https://acme.blob.core.windows.net/", bucketURL("acme", "azure"))
	assert.Equal(t, "https://storage.googleapis.com/acme/", bucketURL("acme", "gcp"))
	assert.Equal(t, "", bucketURL("acme", "unknown"))
}

func TestEnumeratorName(t *testing.T) {
	e := &enumerator{}
	assert.Equal(t, "enumerator", e.Name())
}
