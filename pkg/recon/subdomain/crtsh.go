// Package subdomain implements subdomain-discovery sources.
package subdomain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/pyneda/sukyan/pkg/modules"
	"github.com/pyneda/sukyan/pkg/recon/common"
	"github.com/pyneda/sukyan/pkg/recon/types"
	"github.com/rs/zerolog/log"
)

func init() {
	modules.Register(modules.CategorySubdomain, "crtsh", newCrtsh)
}

type crtshEntry struct {
	NameValue string `json:"name_value"`
}

// crtsh discovers subdomains by querying crt.sh's certificate transparency
// log search.
type crtsh struct {
	modules.Base
	client *http.Client
}

func newCrtsh(cfg modules.ModuleConfig) modules.Module {
	return &crtsh{
		Base:   modules.NewBase(cfg, modules.CategorySubdomain, "crtsh"),
		client: common.NewHTTPClient(cfg, 30*time.Second),
	}
}

func (c *crtsh) Name() string               { return "crtsh" }
func (c *crtsh) Category() modules.Category { return modules.CategorySubdomain }
func (c *crtsh) ValidateTarget(target string) bool {
	return common.ValidateDomainTarget(target)
}

func (c *crtsh) Run(ctx context.Context, target string) error {
	if c.RateLimiter != nil {
		if err := c.RateLimiter.Acquire(ctx); err != nil {
			return err
		}
	}

	requestURL := fmt.Sprintf("https://crt.sh/?q=%%.%s&output=json", target)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("querying crt.sh: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("crt.sh returned status %d", resp.StatusCode)
	}

	var entries []crtshEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return fmt.Errorf("decoding crt.sh response: %w", err)
	}

	seen := make(map[string]struct{})
	for _, entry := range entries {
		for _, domain := range strings.Split(entry.NameValue, "\n") {
			domain = strings.ToLower(strings.TrimSpace(domain))
			domain = strings.TrimPrefix(domain, "*.")
			if domain == "" || domain == target || !strings.HasSuffix(domain, "."+target) {
				continue
			}
			seen[domain] = struct{}{}
		}
	}

	if len(seen) == 0 {
		log.Info().Str("target", target).Msg("crt.sh found no subdomains")
		return nil
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	findings := make([]types.SubdomainPayload, 0, len(names))
	for _, name := range names {
		findings = append(findings, types.SubdomainPayload{Subdomain: name, Source: "crt.sh"})
	}

	if err := c.StoreFindingsDefaultType(target, "crt.sh", findings); err != nil {
		return err
	}
	log.Info().Int("count", len(findings)).Str("target", target).Msg("crt.sh discovered subdomains")
	return nil
}
