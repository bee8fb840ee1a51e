// Package modules implements the compile-time module registry: each
// reconnaissance source registers itself by category and name from its own
// package's init(), and the engine looks modules up by the names enabled in
// configuration. There is no reflection or package scanning — unlike the
// registry it replaces, which walked a directory of Python files at
// startup, every candidate module is linked into the binary and known at
// compile time.
package modules

import (
	"context"
	"fmt"
	"strings"

	"github.com/pyneda/sukyan/db"
	"github.com/pyneda/sukyan/pkg/scan/proxysel"
	"github.com/pyneda/sukyan/pkg/scan/ratelimit"
	"github.com/rs/zerolog/log"
)

// Category groups modules that address the same reconnaissance phase.
type Category string

const (
	CategorySubdomain    Category = "subdomain"
	CategoryPortscan     Category = "portscan"
	CategoryHTTP         Category = "http"
	CategoryScreenshot   Category = "screenshot"
	CategoryShodan       Category = "shodan"
	CategoryGithub       Category = "github"
	CategoryCloudBuckets Category = "cloud_buckets"
)

// Module is one reconnaissance source: a named unit of work within a
// category that validates its target and, when run, stores whatever
// findings it produces.
type Module interface {
	Name() string
	Category() Category
	ValidateTarget(target string) bool
	Run(ctx context.Context, target string) error
}

// Constructor builds a fresh Module instance bound to cfg. Each module
// package registers one Constructor per source it implements.
type Constructor func(cfg ModuleConfig) Module

// ModuleConfig carries everything a Constructor needs to build a Module
// instance: its settings, credentials, and the shared scan-scoped
// collaborators (store, rate limiter, proxy selector).
type ModuleConfig struct {
	Settings    map[string]any
	APIKeys     map[string]string
	Store       *db.DatabaseConnection
	ScanID      string
	RateLimiter *ratelimit.Limiter
	Proxy       *proxysel.Selector
}

var registry = make(map[Category]map[string]Constructor)

// Register adds a named constructor under category. Called from module
// source packages' init() functions.
func Register(category Category, name string, ctor Constructor) {
	if registry[category] == nil {
		registry[category] = make(map[string]Constructor)
	}
	if _, exists := registry[category][name]; exists {
		log.Warn().Str("category", string(category)).Str("name", name).Msg("module registered more than once, keeping the latest registration")
	}
	registry[category][name] = ctor
}

// Lookup returns the constructor registered for category/name, if any.
func Lookup(category Category, name string) (Constructor, bool) {
	byName, ok := registry[category]
	if !ok {
		return nil, false
	}
	ctor, ok := byName[name]
	return ctor, ok
}

// Build resolves every enabled name under category to a live Module
// instance. Unknown names are logged and skipped rather than failing the
// whole category, so one misconfigured entry does not block its siblings.
func Build(category Category, enabled []string, cfg ModuleConfig) []Module {
	if _, ok := registry[category]; !ok && len(enabled) > 0 {
		log.Warn().Str("category", string(category)).Msg("no modules registered for category, skipping")
		return nil
	}

	var built []Module
	for _, name := range enabled {
		ctor, ok := Lookup(category, name)
		if !ok {
			log.Warn().Str("category", string(category)).Str("name", name).Msg("unknown module name in configuration, skipping")
			continue
		}
		built = append(built, ctor(cfg))
	}
	return built
}

// DefaultValidateTarget is the fallback target check a Module may embed via
// Base: a non-empty-looking hostname with at least one label
// separator.
func DefaultValidateTarget(target string) bool {
	return strings.Contains(target, ".") && len(target) > 3
}

// Base is embedded by module implementations to provide the shared
// finding-storage helpers, the scan-scoped collaborators, and a default
// ValidateTarget, mirroring the teacher's small-typed-helper idiom rather
// than a variadic/overloaded store function.
type Base struct {
	Store       *db.DatabaseConnection
	RateLimiter *ratelimit.Limiter
	Proxy       *proxysel.Selector

	scanID   string
	name     string
	category Category
}

// NewBase builds a Base bound to cfg for a module identified by category
// and name.
func NewBase(cfg ModuleConfig, category Category, name string) Base {
	return Base{
		Store:       cfg.Store,
		RateLimiter: cfg.RateLimiter,
		Proxy:       cfg.Proxy,
		scanID:      cfg.ScanID,
		name:        name,
		category:    category,
	}
}

// StoreFindings persists payload under an explicit finding type.
func (m Base) StoreFindings(target, source string, typ db.FindingType, payload any) error {
	module := fmt.Sprintf("%s/%s", m.category, m.name)
	var scanID *string
	if m.scanID != "" {
		scanID = &m.scanID
	}
	return m.Store.StoreFinding(scanID, target, module, source, typ, payload)
}

// categoryFindingType maps a module category to the FindingType its
// findings are stored as by default. Most categories share a name with
// their finding type; portscan and cloud_buckets don't (db.FindingType
// deliberately has no "portscan" member, and cloud bucket findings are
// singular "cloud_bucket"), so the mapping is explicit rather than a bare
// cast.
var categoryFindingType = map[Category]db.FindingType{
	CategorySubdomain:    db.FindingTypeSubdomain,
	CategoryPortscan:     db.FindingTypePort,
	CategoryHTTP:         db.FindingTypeHTTP,
	CategoryScreenshot:   db.FindingTypeScreenshot,
	CategoryShodan:       db.FindingTypeEnrichment,
	CategoryGithub:       db.FindingTypeGithub,
	CategoryCloudBuckets: db.FindingTypeCloudBucket,
}

// StoreFindingsDefaultType persists payload using the module's own category
// to resolve a FindingType, for the common case where a module's findings
// are always the one type associated with its category.
func (m Base) StoreFindingsDefaultType(target, source string, payload any) error {
	typ, ok := categoryFindingType[m.category]
	if !ok {
		return fmt.Errorf("no default finding type registered for category %q", m.category)
	}
	return m.StoreFindings(target, source, typ, payload)
}

// ValidateTarget is the default check; module implementations embedding
// Base may override it by defining their own method of the same name.
func (m Base) ValidateTarget(target string) bool {
	return DefaultValidateTarget(target)
}
