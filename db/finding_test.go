package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConnection(t *testing.T) *DatabaseConnection {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recon.db")
	conn, err := NewConnection(path)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestStoreFindingRejectsUnknownType(t *testing.T) {
	conn := newTestConnection(t)
	err := conn.StoreFinding(nil, "example.com", "portscan/scanner", "scanner", FindingType("portscan"), map[string]any{"ip": "1.2.3.4"})
	assert.ErrorIs(t, err, ErrInvalidFindingType)

	findings, err := conn.GetFindings("example.com", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestGetFindingsModuleMatching(t *testing.T) {
	conn := newTestConnection(t)
	require.NoError(t, conn.StoreFinding(nil, "example.com", "subdomain/crtsh", "crtsh", FindingTypeSubdomain, map[string]any{"subdomain": "a.example.com", "source": "crtsh"}))
	require.NoError(t, conn.StoreFinding(nil, "example.com", "subdomain/anubis", "anubis", FindingTypeSubdomain, map[string]any{"subdomain": "b.example.com", "source": "anubis"}))
	require.NoError(t, conn.StoreFinding(nil, "example.com", "portscan/scanner", "scanner", FindingTypePort, map[string]any{"ip": "1.2.3.4", "port": 80, "state": "open"}))

	prefix := "subdomain"
	all, err := conn.GetFindings("example.com", &prefix, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	exact := "subdomain/crtsh"
	onlyCrtsh, err := conn.GetFindings("example.com", &exact, nil)
	require.NoError(t, err)
	assert.Len(t, onlyCrtsh, 1)
}

func TestGetUniqueSubdomainsSortedNoDuplicates(t *testing.T) {
	conn := newTestConnection(t)
	require.NoError(t, conn.StoreFinding(nil, "example.com", "subdomain/crtsh", "crtsh", FindingTypeSubdomain, []map[string]any{
		{"subdomain": "b.example.com", "source": "crtsh"},
		{"subdomain": "a.example.com", "source": "crtsh"},
	}))
	require.NoError(t, conn.StoreFinding(nil, "example.com", "subdomain/anubis", "anubis", FindingTypeSubdomain, map[string]any{"subdomain": "a.example.com", "source": "anubis"}))

	subs, err := conn.GetUniqueSubdomains("example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.example.com", "b.example.com"}, subs)
}

func TestCompactIsIdempotent(t *testing.T) {
	conn := newTestConnection(t)
	payload := map[string]any{"subdomain": "a.example.com", "source": "crtsh"}
	require.NoError(t, conn.StoreFinding(nil, "example.com", "subdomain/crtsh", "crtsh", FindingTypeSubdomain, payload))
	require.NoError(t, conn.StoreFinding(nil, "example.com", "subdomain/anubis", "anubis", FindingTypeSubdomain, payload))

	deleted, err := conn.Compact("example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	deletedAgain, err := conn.Compact("example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, deletedAgain)
}

func TestScanLifecycle(t *testing.T) {
	conn := newTestConnection(t)
	require.NoError(t, conn.CreateScan("scan-1", "example.com", ScanStatusPending))

	err := conn.CreateScan("scan-1", "example.com", ScanStatusPending)
	assert.ErrorIs(t, err, ErrScanAlreadyExists)

	require.NoError(t, conn.UpdateScanStatus("scan-1", ScanStatusRunning))
	scan, err := conn.GetScan("scan-1")
	require.NoError(t, err)
	assert.Nil(t, scan.EndTime)

	require.NoError(t, conn.UpdateScanStatus("scan-1", ScanStatusCompleted))
	scan, err = conn.GetScan("scan-1")
	require.NoError(t, err)
	assert.NotNil(t, scan.EndTime)
}
