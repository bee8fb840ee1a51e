package engine

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pyneda/sukyan/db"
	"github.com/pyneda/sukyan/pkg/modules"
	"github.com/pyneda/sukyan/pkg/scan/broadcast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type alwaysFailModule struct{ name string }

func (m *alwaysFailModule) Name() string                     { return m.name }
func (m *alwaysFailModule) Category() modules.Category       { return modules.CategorySubdomain }
func (m *alwaysFailModule) ValidateTarget(target string) bool { return true }
func (m *alwaysFailModule) Run(ctx context.Context, target string) error {
	panic("simulated module failure")
}

func newTestEngine(t *testing.T) (*Engine, *db.DatabaseConnection) {
	t.Helper()
	store, err := db.NewConnection(filepath.Join(t.TempDir(), "recon.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return New(store, broadcast.New()), store
}

func TestRunModulePanicIsIsolated(t *testing.T) {
	e, _ := newTestEngine(t)
	assert.NotPanics(t, func() {
		e.runModule(context.Background(), "scan-1", "example.com", &alwaysFailModule{name: "boom"})
	})
}

func TestRunScanMarksScanCompletedWithNoModulesEnabled(t *testing.T) {
	e, store := newTestEngine(t)
	err := e.RunScan(context.Background(), "example.com", RunOptions{
		ScanID:     "scan-empty",
		ModulesCfg: ModulesConfig{},
	})
	require.NoError(t, err)

	scan, err := store.GetScan("scan-empty")
	require.NoError(t, err)
	assert.Equal(t, db.ScanStatusCompleted, scan.Status)
	assert.NotNil(t, scan.EndTime)
}

func TestRunScanGeneratesScanIDWhenEmpty(t *testing.T) {
	e, store := newTestEngine(t)
	err := e.RunScan(context.Background(), "example.com", RunOptions{})
	assert.NoError(t, err)

	scans, err := store.ListScans(0)
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.True(t, strings.HasPrefix(scans[0].ID, "cli_"))
	assert.Len(t, scans[0].ID, len("cli_")+8)
}
