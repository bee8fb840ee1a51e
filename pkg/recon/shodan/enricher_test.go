package shodan

import (
	"context"
	"testing"

	"github.com/pyneda/sukyan/pkg/modules"
	"github.com/stretchr/testify/assert"
)

func TestRunSkipsWithoutAPIKey(t *testing.T) {
	e := newEnricher(modules.ModuleConfig{}).(*enricher)
	err := e.Run(context.Background(), "example.com")
	assert.NoError(t, err)
}

func TestName(t *testing.T) {
	e := &enricher{}
	assert.Equal(t, "enricher", e.Name())
}
