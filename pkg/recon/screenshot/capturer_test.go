package screenshot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScreenshotFilenameIsFilesystemSafe(t *testing.T) {
	name := screenshotFilename("https://example.com:8443/a/b?c=d")
	assert.True(t, strings.HasSuffix(name, ".png"))
	assert.False(t, strings.ContainsAny(name, "/:?"))
}

func TestScreenshotFilenameTruncatedTo150(t *testing.T) {
	name := screenshotFilename("https://example.com/" + strings.Repeat("a", 300))
	assert.LessOrEqual(t, len(name), 154) // 150 + ".png"
}

func TestCapturerName(t *testing.T) {
	c := &capturer{}
	assert.Equal(t, "capturer", c.Name())
}
