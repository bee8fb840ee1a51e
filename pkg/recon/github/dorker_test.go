package github

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDorkerName(t *testing.T) {
	d := &dorker{}
	assert.Equal(t, "dorker", d.Name())
}

func TestDefaultDorksInterpolation(t *testing.T) {
	for _, template := range defaultDorks {
		assert.Contains(t, template, "{domain}")
	}
}
