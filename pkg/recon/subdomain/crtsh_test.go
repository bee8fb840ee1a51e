package subdomain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCrtshValidateTarget(t *testing.T) {
	c := &crtsh{}
	assert.True(t, c.ValidateTarget("example.com"))
	assert.False(t, c.ValidateTarget("localhost"))
	assert.False(t, c.ValidateTarget("notadomain"))
}

func TestCrtshName(t *testing.T) {
	c := &crtsh{}
	assert.Equal(t, "crtsh", c.Name())
}
