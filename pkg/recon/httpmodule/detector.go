// Package httpmodule probes discovered hosts over HTTP(S) and fingerprints
// whatever responds.
package httpmodule

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	wappalyzer "github.com/projectdiscovery/wappalyzergo"
	"github.com/pyneda/sukyan/db"
	"github.com/pyneda/sukyan/lib"
	"github.com/pyneda/sukyan/pkg/modules"
	"github.com/pyneda/sukyan/pkg/recon/common"
	"github.com/pyneda/sukyan/pkg/recon/types"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

func init() {
	modules.Register(modules.CategoryHTTP, "detector", newDetector)
}

const maxBodyRead = 128 * 1024

var httpReadyPorts = map[int]struct{}{80: {}, 443: {}, 8000: {}, 8080: {}, 8443: {}, 8888: {}}

// detector probes subdomains and port-scan-prioritized hosts over both
// HTTP and HTTPS, recording whatever responds.
type detector struct {
	modules.Base
	client        *http.Client
	concurrency   int
	probingLimit  int
	wappalyzer    *wappalyzer.Wappalyze
}

func newDetector(cfg modules.ModuleConfig) modules.Module {
	d := &detector{
		Base:         modules.NewBase(cfg, modules.CategoryHTTP, "detector"),
		concurrency:  20,
		probingLimit: 100,
	}
	d.client = common.NewHTTPClient(cfg, 5*time.Second)
	if concurrency, ok := cfg.Settings["concurrency"].(int); ok && concurrency > 0 {
		d.concurrency = concurrency
	}
	if limit, ok := cfg.Settings["probing_limit"].(int); ok && limit > 0 {
		d.probingLimit = limit
	}
	if w, err := wappalyzer.New(); err == nil {
		d.wappalyzer = w
	} else {
		log.Warn().Err(err).Msg("failed to initialize wappalyzer, HTTP findings will carry no technology fingerprints")
	}
	return d
}

func (d *detector) Name() string               { return "detector" }
func (d *detector) Category() modules.Category { return modules.CategoryHTTP }
func (d *detector) ValidateTarget(target string) bool {
	return common.ValidateDomainTarget(target)
}

func (d *detector) Run(ctx context.Context, target string) error {
	targets, err := d.collectTargets(target)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		targets = []string{target}
	}
	if len(targets) > d.probingLimit {
		log.Info().Int("limit", d.probingLimit).Int("candidates", len(targets)).Msg("limiting HTTP probes")
		targets = targets[:d.probingLimit]
	}

	p := pool.New().WithMaxGoroutines(d.concurrency)
	var mu sync.Mutex
	var findings []types.HTTPPayload

	for _, host := range targets {
		host := host
		p.Go(func() {
			for _, result := range d.probe(ctx, host) {
				mu.Lock()
				findings = append(findings, result)
				mu.Unlock()
			}
		})
	}
	p.Wait()

	if len(findings) == 0 {
		log.Info().Str("target", target).Msg("no active HTTP services discovered")
		return nil
	}
	if err := d.StoreFindingsDefaultType(target, "http_detector", findings); err != nil {
		return err
	}
	log.Info().Int("count", len(findings)).Str("target", target).Msg("identified HTTP services")
	return nil
}

// collectTargets pulls subdomain findings and HTTP-ready ports from prior
// phases, preferring hosts whose port scan found a web port open.
func (d *detector) collectTargets(target string) ([]string, error) {
	subdomains, err := d.Store.GetUniqueSubdomains(target)
	if err != nil {
		return nil, err
	}

	portFindings, err := d.Store.GetUniqueFindings(target, db.FindingTypePort, nil)
	if err != nil {
		return nil, err
	}

	prioritized := make(map[string]struct{})
	for _, entry := range portFindings {
		portVal, ok := entry["port"].(float64)
		if !ok {
			continue
		}
		if _, ready := httpReadyPorts[int(portVal)]; ready {
			if ip, ok := entry["ip"].(string); ok && ip != "" {
				prioritized[ip] = struct{}{}
			}
		}
	}

	ordered := make([]string, 0, len(prioritized)+len(subdomains))
	for host := range prioritized {
		ordered = append(ordered, host)
	}
	for _, sub := range subdomains {
		if _, already := prioritized[sub]; !already {
			ordered = append(ordered, sub)
		}
	}
	return ordered, nil
}

func (d *detector) probe(ctx context.Context, host string) []types.HTTPPayload {
	var results []types.HTTPPayload
	for _, scheme := range []string{"http", "https"} {
		if d.RateLimiter != nil {
			if err := d.RateLimiter.Acquire(ctx); err != nil {
				return results
			}
		}
		result, err := d.probeOne(ctx, scheme+"://"+host)
		if err != nil {
			continue
		}
		results = append(results, result)
	}
	return results
}

func (d *detector) probeOne(ctx context.Context, url string) (types.HTTPPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return types.HTTPPayload{}, err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return types.HTTPPayload{}, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyRead))

	title := "No Title"
	if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body)); err == nil {
		if t := doc.Find("title").First().Text(); t != "" {
			title = t
		}
	}

	payload := types.HTTPPayload{
		URL:        resp.Request.URL.String(),
		Status:     resp.StatusCode,
		Server:     headerOrDefault(resp.Header, "Server"),
		Title:      title,
		XPoweredBy: headerOrDefault(resp.Header, "X-Powered-By"),
		BodyHash:   lib.HashBytes(body),
	}

	if d.wappalyzer != nil {
		fingerprints := d.wappalyzer.Fingerprint(resp.Header, body)
		for name := range fingerprints {
			payload.Technologies = append(payload.Technologies, name)
		}
	}

	return payload, nil
}

func headerOrDefault(h http.Header, key string) string {
	if v := h.Get(key); v != "" {
		return v
	}
	return "N/A"
}
