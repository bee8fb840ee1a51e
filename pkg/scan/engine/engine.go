// Package engine runs a reconnaissance scan through its five staged
// phases, isolating each module so one failure never aborts the scan.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pyneda/sukyan/db"
	"github.com/pyneda/sukyan/pkg/modules"
	"github.com/pyneda/sukyan/pkg/scan/broadcast"
	"github.com/pyneda/sukyan/pkg/scan/proxysel"
	"github.com/pyneda/sukyan/pkg/scan/ratelimit"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	_ "github.com/pyneda/sukyan/pkg/recon/cloudbuckets"
	_ "github.com/pyneda/sukyan/pkg/recon/github"
	_ "github.com/pyneda/sukyan/pkg/recon/httpmodule"
	_ "github.com/pyneda/sukyan/pkg/recon/portscan"
	_ "github.com/pyneda/sukyan/pkg/recon/screenshot"
	_ "github.com/pyneda/sukyan/pkg/recon/shodan"
	_ "github.com/pyneda/sukyan/pkg/recon/subdomain"
)

// phaseTimeout bounds each phase: when it elapses, phaseCtx is cancelled
// and runPhase stops waiting for the phase's module goroutines and moves on
// to the next phase. A module that ignores ctx cancellation keeps running
// in the background after that point.
const phaseTimeout = 5 * time.Minute

// ProxyConfig selects the outbound proxy a scan's modules should dial
// through.
type ProxyConfig struct {
	HTTP  string
	HTTPS string
	Tor   bool
}

// ModulesConfig carries per-category enabled-source lists, per-module
// settings, and shared API keys, as loaded from configuration.
type ModulesConfig struct {
	Enabled  map[modules.Category][]string
	Settings map[modules.Category]map[string]any
	APIKeys  map[string]string
}

// RunOptions parameterizes a single RunScan call.
type RunOptions struct {
	ScanID     string
	RateLimit  float64
	Proxy      ProxyConfig
	ModulesCfg ModulesConfig
}

// Engine sequences the phases of a scan against a shared result store and
// progress broadcaster.
type Engine struct {
	store       *db.DatabaseConnection
	broadcaster *broadcast.Broadcaster
}

// New builds an Engine bound to store and broadcaster.
func New(store *db.DatabaseConnection, broadcaster *broadcast.Broadcaster) *Engine {
	return &Engine{store: store, broadcaster: broadcaster}
}

type phaseSpec struct {
	Label      string
	Categories []modules.Category
}

var phases = []phaseSpec{
	{"Discovery", []modules.Category{modules.CategorySubdomain, modules.CategoryGithub, modules.CategoryCloudBuckets}},
	{"Port scan", []modules.Category{modules.CategoryPortscan}},
	{"Service enrichment", []modules.Category{modules.CategoryShodan}},
	{"HTTP probing", []modules.Category{modules.CategoryHTTP}},
	{"Visual capture", []modules.Category{modules.CategoryScreenshot}},
}

// categoriesToStrings renders a phase's module categories for the `phase`
// progress event's `modules` field.
func categoriesToStrings(categories []modules.Category) []string {
	out := make([]string, len(categories))
	for i, c := range categories {
		out[i] = string(c)
	}
	return out
}

// RunScan executes every phase against target in order, storing findings
// through the Engine's result store and publishing progress through its
// broadcaster. A module panic or error never aborts the scan; only an
// engine-level failure (store, scan bookkeeping) does.
func (e *Engine) RunScan(ctx context.Context, target string, opts RunOptions) error {
	scanID := opts.ScanID
	if scanID == "" {
		scanID = "cli_" + uuid.New().String()[:8]
	}

	e.broadcaster.Publish(scanID, broadcast.Event{Type: broadcast.EventStatus, Status: "running"})

	if err := e.store.CreateScan(scanID, target, db.ScanStatusPending); err != nil && err != db.ErrScanAlreadyExists {
		return e.fail(scanID, fmt.Errorf("creating scan record: %w", err))
	}
	if err := e.store.UpdateScanStatus(scanID, db.ScanStatusRunning); err != nil {
		return e.fail(scanID, fmt.Errorf("marking scan running: %w", err))
	}

	rate := opts.RateLimit
	if rate <= 0 {
		rate = 10
	}
	limiter := ratelimit.NewLimiter(rate)
	proxy := proxysel.New(opts.Proxy.HTTP, opts.Proxy.HTTPS, opts.Proxy.Tor)

	for _, phase := range phases {
		e.runPhase(ctx, scanID, target, phase, limiter, proxy, opts.ModulesCfg)
	}

	deleted, err := e.store.Compact(target, nil)
	if err != nil {
		log.Warn().Err(err).Str("target", target).Msg("finding compaction failed, continuing")
	} else {
		log.Info().Int("deleted", deleted).Str("target", target).Msg("compacted duplicate findings")
	}

	summary, err := e.summarize(target, scanID)
	if err != nil {
		log.Warn().Err(err).Str("target", target).Msg("failed to build scan summary")
		summary = map[string]int{}
	}

	if err := e.store.UpdateScanStatus(scanID, db.ScanStatusCompleted); err != nil {
		return e.fail(scanID, fmt.Errorf("marking scan completed: %w", err))
	}
	e.broadcaster.Publish(scanID, broadcast.Event{Type: broadcast.EventStatus, Status: "completed", Summary: summary})
	return nil
}

func (e *Engine) fail(scanID string, err error) error {
	if updateErr := e.store.UpdateScanStatus(scanID, db.ScanStatusFailed); updateErr != nil {
		log.Error().Err(updateErr).Str("scan_id", scanID).Msg("failed to mark already-failing scan as failed")
	}
	e.broadcaster.Publish(scanID, broadcast.Event{Type: broadcast.EventError, Error: err.Error()})
	return err
}

func (e *Engine) runPhase(ctx context.Context, scanID, target string, phase phaseSpec, limiter *ratelimit.Limiter, proxy *proxysel.Selector, cfg ModulesConfig) {
	e.broadcaster.Publish(scanID, broadcast.Event{Type: broadcast.EventPhase, Phase: phase.Label, Modules: categoriesToStrings(phase.Categories)})

	phaseCtx, cancel := context.WithTimeout(ctx, phaseTimeout)
	defer cancel()

	p := pool.New().WithMaxGoroutines(16)
	for _, category := range phase.Categories {
		enabled := cfg.Enabled[category]
		if len(enabled) == 0 {
			continue
		}
		moduleCfg := modules.ModuleConfig{
			Settings:    cfg.Settings[category],
			APIKeys:     cfg.APIKeys,
			Store:       e.store,
			ScanID:      scanID,
			RateLimiter: limiter,
			Proxy:       proxy,
		}
		for _, mod := range modules.Build(category, enabled, moduleCfg) {
			mod := mod
			p.Go(func() {
				e.runModule(phaseCtx, scanID, target, mod)
			})
		}
	}
	done := make(chan struct{})
	go func() {
		p.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-phaseCtx.Done():
	}

	if phaseCtx.Err() != nil {
		log.Warn().Str("scan_id", scanID).Str("phase", phase.Label).Msg("phase timed out, continuing to next phase")
	}
}

// runModule runs a single module's Run inside an isolation shell: a panic
// or error is logged and reported as a module_end event but never
// propagates out, so one broken module never aborts the scan.
func (e *Engine) runModule(ctx context.Context, scanID, target string, mod modules.Module) {
	if !mod.ValidateTarget(target) {
		log.Debug().Str("module", mod.Name()).Str("target", target).Msg("module rejected target, skipping")
		return
	}

	var runErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				runErr = fmt.Errorf("module panicked: %v", r)
			}
		}()
		runErr = mod.Run(ctx, target)
	}()

	ev := broadcast.Event{Type: broadcast.EventModuleEnd, Module: mod.Name()}
	if runErr != nil {
		log.Error().Err(runErr).Str("module", mod.Name()).Str("scan_id", scanID).Msg("module failed")
		ev.Status = "failed"
		ev.Error = runErr.Error()
	} else {
		ev.Status = "completed"
	}
	e.broadcaster.Publish(scanID, ev)
}

func (e *Engine) summarize(target, scanID string) (map[string]int, error) {
	findings, err := e.store.GetFindings(target, nil, &scanID)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, f := range findings {
		counts[string(f.Type)]++
	}

	subdomains, err := e.store.GetUniqueSubdomains(target)
	if err == nil {
		counts["unique_subdomains"] = len(subdomains)
	}
	return counts, nil
}
