package modules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubModule struct {
	Base
	name string
}

func (s *stubModule) Name() string     { return s.name }
func (s *stubModule) Category() Category { return CategorySubdomain }
func (s *stubModule) Run(ctx context.Context, target string) error { return nil }

func TestRegisterAndLookup(t *testing.T) {
	Register(CategorySubdomain, "teststub", func(cfg ModuleConfig) Module {
		return &stubModule{name: "teststub"}
	})

	ctor, ok := Lookup(CategorySubdomain, "teststub")
	assert.True(t, ok)
	assert.NotNil(t, ctor)

	_, ok = Lookup(CategorySubdomain, "does-not-exist")
	assert.False(t, ok)
}

func TestBuildSkipsUnknownNames(t *testing.T) {
	Register(CategorySubdomain, "known", func(cfg ModuleConfig) Module {
		return &stubModule{name: "known"}
	})

	built := Build(CategorySubdomain, []string{"known", "unknown"}, ModuleConfig{})
	assert.Len(t, built, 1)
	assert.Equal(t, "known", built[0].Name())
}

func TestBuildEmptyCategoryReturnsNil(t *testing.T) {
	built := Build(Category("nonexistent-category"), []string{"a"}, ModuleConfig{})
	assert.Nil(t, built)
}

func TestDefaultValidateTarget(t *testing.T) {
	assert.True(t, DefaultValidateTarget("example.com"))
	assert.False(t, DefaultValidateTarget("ab"))
	assert.False(t, DefaultValidateTarget("nodothere"))
}

func TestStoreFindingsDefaultTypeUnmappedCategory(t *testing.T) {
	m := NewBase(ModuleConfig{}, Category("unmapped"), "x")
	err := m.StoreFindingsDefaultType("example.com", "x", map[string]any{})
	assert.Error(t, err)
}
