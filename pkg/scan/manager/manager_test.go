package manager

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pyneda/sukyan/db"
	"github.com/pyneda/sukyan/pkg/scan/broadcast"
	"github.com/pyneda/sukyan/pkg/scan/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	store, err := db.NewConnection(filepath.Join(t.TempDir(), "recon.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return New(store, broadcast.New())
}

func TestStartScanGeneratesIDAndCreatesRow(t *testing.T) {
	m := newTestManager(t)
	scanID, err := m.StartScan(context.Background(), "example.com", engine.RunOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, scanID)

	assert.Eventually(t, func() bool {
		scan, err := m.GetScan(scanID)
		return err == nil && scan.Status.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStartScanHonorsProvidedScanID(t *testing.T) {
	m := newTestManager(t)
	scanID, err := m.StartScan(context.Background(), "example.com", engine.RunOptions{ScanID: "fixed-id"})
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", scanID)
}

func TestScanLogAccumulatesEvents(t *testing.T) {
	m := newTestManager(t)
	scanID, err := m.StartScan(context.Background(), "example.com", engine.RunOptions{})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(m.ScanLog(scanID)) > 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestClearHistoryRemovesScans(t *testing.T) {
	m := newTestManager(t)
	scanID, err := m.StartScan(context.Background(), "example.com", engine.RunOptions{})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		scan, err := m.GetScan(scanID)
		return err == nil && scan.Status.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, m.ClearHistory())
	_, err = m.GetScan(scanID)
	assert.Error(t, err)
	assert.Empty(t, m.ScanLog(scanID))
}
