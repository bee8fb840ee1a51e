package httpmodule

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderOrDefault(t *testing.T) {
	h := http.Header{}
	h.Set("Server", "nginx")
	assert.Equal(t, "nginx", headerOrDefault(h, "Server"))
	assert.Equal(t, "N/A", headerOrDefault(h, "X-Powered-By"))
}

func TestDetectorValidateTarget(t *testing.T) {
	d := &detector{}
	assert.True(t, d.ValidateTarget("example.com"))
	assert.False(t, d.ValidateTarget("localhost"))
}
