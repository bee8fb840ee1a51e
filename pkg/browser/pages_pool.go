package browser

import (
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"
)

// PagePoolManagerConfig configures a headless-Chromium page pool.
type PagePoolManagerConfig struct {
	PoolSize  int
	UserAgent string
	ProxyURL  string
}

// PagePoolManager launches a headless browser once and hands out pooled
// pages to concurrent screenshot captures, avoiding a fresh browser
// process per request.
type PagePoolManager struct {
	browser *rod.Browser
	pool    rod.Pool[rod.Page]
	config  PagePoolManagerConfig
}

func NewPagePoolManager(config PagePoolManagerConfig, source string) *PagePoolManager {
	manager := PagePoolManager{
		config: config,
	}
	manager.Start(source)

	return &manager
}

func (b *PagePoolManager) Start(source string) {
	l := GetBrowserLauncher(b.config.ProxyURL)
	controlURL := l.MustLaunch()
	b.browser = rod.New().
		ControlURL(controlURL).
		MustConnect()

	poolSize := 4
	if b.config.PoolSize > 0 {
		poolSize = b.config.PoolSize
	}
	b.pool = rod.NewPagePool(poolSize)
}

func (b *PagePoolManager) NewPage() *rod.Page {
	page, err := b.pool.Get(b.createPage)
	if err != nil {
		log.Error().Err(err).Msg("Error getting page from pool")
	}

	if b.config.UserAgent != "" {
		_ = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: b.config.UserAgent})
	}

	return page
}

func (b *PagePoolManager) ReleasePage(page *rod.Page) {
	b.pool.Put(page)
}

func (b *PagePoolManager) createPage() (*rod.Page, error) {
	return b.browser.Page(proto.TargetCreateTarget{})
}

func (b *PagePoolManager) Close() {
	b.pool.Cleanup(func(p *rod.Page) { p.Close() })
	b.browser.Close()
}
