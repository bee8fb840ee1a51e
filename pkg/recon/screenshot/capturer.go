// Package screenshot captures visual snapshots of HTTP services discovered
// by earlier phases using a pooled headless-Chromium browser.
package screenshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/gosimple/slug"
	"github.com/pyneda/sukyan/db"
	"github.com/pyneda/sukyan/pkg/browser"
	"github.com/pyneda/sukyan/pkg/modules"
	"github.com/pyneda/sukyan/pkg/recon/types"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

func init() {
	modules.Register(modules.CategoryScreenshot, "capturer", newCapturer)
}

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

var invalidFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9_\-]`)

// capturer navigates to every HTTP URL the detector module found and saves
// a PNG screenshot, falling back through networkidle -> load ->
// domcontentloaded wait strategies the way the Python ancestor did.
type capturer struct {
	modules.Base
	outputDir   string
	concurrency int
	timeout     time.Duration
	poolSize    int
}

func newCapturer(cfg modules.ModuleConfig) modules.Module {
	c := &capturer{
		Base:        modules.NewBase(cfg, modules.CategoryScreenshot, "capturer"),
		outputDir:   "reports/screenshots",
		concurrency: 5,
		timeout:     45 * time.Second,
		poolSize:    4,
	}
	if dir, ok := cfg.Settings["output_dir"].(string); ok && dir != "" {
		c.outputDir = dir
	}
	if n, ok := cfg.Settings["concurrency"].(int); ok && n > 0 {
		c.concurrency = n
		c.poolSize = n
	}
	if secs, ok := cfg.Settings["timeout"].(int); ok && secs > 0 {
		c.timeout = time.Duration(secs) * time.Second
	}
	return c
}

func (c *capturer) Name() string               { return "capturer" }
func (c *capturer) Category() modules.Category { return modules.CategoryScreenshot }

func (c *capturer) Run(ctx context.Context, target string) error {
	urls, err := c.collectURLs(target)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		log.Info().Str("target", target).Msg("no active services found to capture")
		return nil
	}

	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return fmt.Errorf("creating screenshot output dir: %w", err)
	}

	proxyURL := ""
	if c.Proxy != nil {
		if u := c.Proxy.RequestProxyURL(); u != nil {
			proxyURL = u.String()
		}
	}

	manager := browser.NewPagePoolManager(browser.PagePoolManagerConfig{
		PoolSize:  c.poolSize,
		UserAgent: userAgent,
		ProxyURL:  proxyURL,
	}, "screenshot")
	defer manager.Close()

	log.Info().Int("count", len(urls)).Msg("launching browser for screenshot captures")

	p := pool.New().WithMaxGoroutines(c.concurrency)
	var mu sync.Mutex
	var findings []types.ScreenshotPayload

	for _, u := range urls {
		u := u
		p.Go(func() {
			if c.RateLimiter != nil {
				if err := c.RateLimiter.Acquire(ctx); err != nil {
					return
				}
			}
			finding := c.capture(manager, u)
			mu.Lock()
			findings = append(findings, finding)
			mu.Unlock()
		})
	}
	p.Wait()

	if len(findings) == 0 {
		log.Warn().Msg("no screenshot results were generated")
		return nil
	}

	if err := c.StoreFindingsDefaultType(target, "screenshot_capturer", findings); err != nil {
		return err
	}

	success := 0
	for _, f := range findings {
		if f.Status == "success" {
			success++
		}
	}
	log.Info().Int("total", len(findings)).Int("success", success).Msg("screenshot capture complete")
	return nil
}

func (c *capturer) collectURLs(target string) ([]string, error) {
	entries, err := c.Store.GetUniqueFindings(target, db.FindingTypeHTTP, []string{"url"})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var urls []string
	for _, entry := range entries {
		u, ok := entry["url"].(string)
		if !ok || u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	return urls, nil
}

func (c *capturer) capture(manager *browser.PagePoolManager, url string) types.ScreenshotPayload {
	page := manager.NewPage()
	defer manager.ReleasePage(page)

	page = page.Timeout(c.timeout)

	var navErr error
	for _, waitStrategy := range []string{"networkidle", "load", "domcontentloaded"} {
		navErr = navigate(page, url, waitStrategy)
		if navErr == nil {
			break
		}
		log.Debug().Err(navErr).Str("url", url).Str("wait", waitStrategy).Msg("screenshot navigation attempt failed")
	}

	if navErr != nil {
		return types.ScreenshotPayload{URL: url, Status: "failed", Error: navErr.Error()}
	}

	time.Sleep(1 * time.Second)

	filename := screenshotFilename(url)
	filepath := filepath.Join(c.outputDir, filename)

	data, err := page.Screenshot(true, nil)
	if err != nil {
		return types.ScreenshotPayload{URL: url, Status: "failed", Error: err.Error()}
	}
	if err := os.WriteFile(filepath, data, 0o644); err != nil {
		return types.ScreenshotPayload{URL: url, Status: "failed", Error: err.Error()}
	}

	return types.ScreenshotPayload{
		URL:            url,
		ScreenshotPath: filepath,
		Status:         "success",
	}
}

// navigate drives page to url and waits using the named strategy,
// mirroring the networkidle -> load -> domcontentloaded fallback chain
// the Playwright-based ancestor used for stubborn single-page apps.
func navigate(page *rod.Page, url, waitStrategy string) error {
	if err := page.Navigate(url); err != nil {
		return err
	}
	switch waitStrategy {
	case "networkidle":
		return page.WaitIdle(5 * time.Second)
	case "load":
		return page.WaitLoad()
	default:
		return page.WaitDOMStable(500*time.Millisecond, 0)
	}
}

func screenshotFilename(rawURL string) string {
	cleaned := rawURL
	if idx := strings.Index(cleaned, "://"); idx != -1 {
		cleaned = cleaned[idx+3:]
	}
	cleaned = strings.NewReplacer("/", "_", ":", "_").Replace(cleaned)
	safe := invalidFilenameChars.ReplaceAllString(slug.Make(cleaned), "_")
	if len(safe) > 150 {
		safe = safe[:150]
	}
	return safe + ".png"
}
