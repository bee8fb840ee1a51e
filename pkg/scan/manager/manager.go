// Package manager provides the Manager, which starts scans in the
// background and keeps a bounded per-scan event log, readable through
// ScanLog.
package manager

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pyneda/sukyan/db"
	"github.com/pyneda/sukyan/pkg/scan/broadcast"
	"github.com/pyneda/sukyan/pkg/scan/engine"
	"github.com/rs/zerolog/log"
)

const maxLogEventsPerScan = 1000

// Manager is the single entry point a CLI command or API handler uses to
// start a scan and later check on it. It owns no scan-specific state beyond
// a bounded log buffer; everything durable lives in the store.
type Manager struct {
	store       *db.DatabaseConnection
	broadcaster *broadcast.Broadcaster
	engine      *engine.Engine

	mu   sync.Mutex
	logs map[string][]broadcast.Event
}

// New builds a Manager bound to store and broadcaster, wiring its own
// Engine to run scans against them.
func New(store *db.DatabaseConnection, broadcaster *broadcast.Broadcaster) *Manager {
	return &Manager{
		store:       store,
		broadcaster: broadcaster,
		engine:      engine.New(store, broadcaster),
		logs:        make(map[string][]broadcast.Event),
	}
}

// StartScan pre-creates the scan row as pending, then launches the engine
// run on its own goroutine and returns the scan ID immediately. Creating
// the row before returning avoids the 404 race a caller would otherwise hit
// polling GetScan before the background goroutine gets scheduled.
func (m *Manager) StartScan(ctx context.Context, target string, cfg engine.RunOptions) (string, error) {
	scanID := cfg.ScanID
	if scanID == "" {
		scanID = uuid.New().String()
	}
	cfg.ScanID = scanID

	if err := m.store.CreateScan(scanID, target, db.ScanStatusPending); err != nil && err != db.ErrScanAlreadyExists {
		return "", fmt.Errorf("creating scan record: %w", err)
	}

	sub, unsubscribe := m.broadcaster.Subscribe(scanID)
	go m.drainLog(scanID, sub)

	go func() {
		defer unsubscribe()
		if err := m.engine.RunScan(ctx, target, cfg); err != nil {
			log.Error().Err(err).Str("scan_id", scanID).Str("target", target).Msg("scan run failed")
		}
	}()

	return scanID, nil
}

// drainLog appends every event the scan publishes to the bounded per-scan
// buffer until the broadcaster closes the subscription channel.
func (m *Manager) drainLog(scanID string, sub <-chan broadcast.Event) {
	for ev := range sub {
		m.mu.Lock()
		entries := append(m.logs[scanID], ev)
		if len(entries) > maxLogEventsPerScan {
			entries = entries[len(entries)-maxLogEventsPerScan:]
		}
		m.logs[scanID] = entries
		m.mu.Unlock()
	}
}

// ScanLog returns the events recorded for scanID so far, oldest first.
func (m *Manager) ScanLog(scanID string) []broadcast.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.logs[scanID]
	out := make([]broadcast.Event, len(entries))
	copy(out, entries)
	return out
}

// ListScans returns up to limit scans, most recent first.
func (m *Manager) ListScans(limit int) ([]db.Scan, error) {
	return m.store.ListScans(limit)
}

// GetScan returns the scan record for scanID.
func (m *Manager) GetScan(scanID string) (*db.Scan, error) {
	return m.store.GetScan(scanID)
}

// GetScanFindings returns every finding recorded for scanID.
func (m *Manager) GetScanFindings(scanID string) ([]db.Finding, error) {
	return m.store.GetFindings("", nil, &scanID)
}

// GetTargetFindings returns every finding recorded across all scans of
// target.
func (m *Manager) GetTargetFindings(target string) ([]db.Finding, error) {
	return m.store.GetFindings(target, nil, nil)
}

// ClearHistory deletes every stored finding and scan record, and drops
// every in-memory per-scan log buffer so a cleared scan stops replaying
// stale events through ScanLog.
func (m *Manager) ClearHistory() error {
	if err := m.store.ClearHistory(); err != nil {
		return err
	}
	m.mu.Lock()
	m.logs = make(map[string][]broadcast.Event)
	m.mu.Unlock()
	return nil
}
