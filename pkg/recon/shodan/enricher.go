// Package shodan enriches discovered IPs with data from the Shodan host
// API.
package shodan

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/pyneda/sukyan/db"
	"github.com/pyneda/sukyan/pkg/modules"
	"github.com/pyneda/sukyan/pkg/recon/common"
	"github.com/pyneda/sukyan/pkg/recon/types"
	"github.com/rs/zerolog/log"
)

func init() {
	modules.Register(modules.CategoryShodan, "enricher", newEnricher)
}

type shodanHostResponse struct {
	Org       string   `json:"org"`
	OS        string   `json:"os"`
	Ports     []int    `json:"ports"`
	Vulns     []string `json:"vulns"`
	Hostnames []string `json:"hostnames"`
	Data      []struct {
		Port int    `json:"port"`
		Data string `json:"data"`
		Product string `json:"product"`
	} `json:"data"`
}

const maxBannerLen = 500

// enricher queries the Shodan host API for every IP discovered by prior
// phases, falling back to resolving the target directly when portscan
// found nothing.
type enricher struct {
	modules.Base
	client *http.Client
	apiKey string
}

func newEnricher(cfg modules.ModuleConfig) modules.Module {
	return &enricher{
		Base:   modules.NewBase(cfg, modules.CategoryShodan, "enricher"),
		client: common.NewHTTPClient(cfg, 15*time.Second),
		apiKey: cfg.APIKeys["shodan"],
	}
}

func (e *enricher) Name() string               { return "enricher" }
func (e *enricher) Category() modules.Category { return modules.CategoryShodan }

func (e *enricher) Run(ctx context.Context, target string) error {
	if e.apiKey == "" {
		log.Warn().Msg("shodan API key missing, skipping enrichment")
		return nil
	}

	ips, err := e.collectIPs(target)
	if err != nil {
		return err
	}
	if len(ips) == 0 {
		resolved, err := net.DefaultResolver.LookupHost(ctx, target)
		if err != nil {
			log.Error().Err(err).Str("target", target).Msg("failed to resolve target for shodan enrichment")
			return nil
		}
		ips = resolved
	}

	log.Info().Int("count", len(ips)).Str("target", target).Msg("enriching IPs via shodan")

	var findings []types.EnrichmentPayload
	for _, ip := range ips {
		if e.RateLimiter != nil {
			if err := e.RateLimiter.Acquire(ctx); err != nil {
				return err
			}
		}
		payload, err := e.lookup(ctx, ip)
		if err != nil {
			log.Error().Err(err).Str("ip", ip).Msg("shodan lookup failed")
			continue
		}
		findings = append(findings, payload)
	}

	if len(findings) == 0 {
		log.Info().Str("target", target).Msg("no shodan data discovered")
		return nil
	}
	if err := e.StoreFindingsDefaultType(target, "shodan", findings); err != nil {
		return err
	}
	log.Info().Int("count", len(findings)).Str("target", target).Msg("stored shodan enrichment")
	return nil
}

func (e *enricher) collectIPs(target string) ([]string, error) {
	entries, err := e.Store.GetUniqueFindings(target, db.FindingTypePort, []string{"ip"})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var ips []string
	for _, entry := range entries {
		ip, ok := entry["ip"].(string)
		if !ok || ip == "" {
			continue
		}
		if _, dup := seen[ip]; dup {
			continue
		}
		seen[ip] = struct{}{}
		ips = append(ips, ip)
	}
	return ips, nil
}

func (e *enricher) lookup(ctx context.Context, ip string) (types.EnrichmentPayload, error) {
	url := fmt.Sprintf("https://api.shodan.io/shodan/host/%s?key=%s", ip, e.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return types.EnrichmentPayload{}, err
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return types.EnrichmentPayload{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.EnrichmentPayload{}, fmt.Errorf("shodan api returned status %d", resp.StatusCode)
	}

	var parsed shodanHostResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return types.EnrichmentPayload{}, fmt.Errorf("decoding shodan response: %w", err)
	}

	services := make([]types.EnrichmentService, 0, len(parsed.Data))
	for _, svc := range parsed.Data {
		banner := svc.Data
		if len(banner) > maxBannerLen {
			banner = banner[:maxBannerLen]
		}
		services = append(services, types.EnrichmentService{
			Port:    svc.Port,
			Banner:  banner,
			Service: orUnknown(svc.Product),
		})
	}

	return types.EnrichmentPayload{
		IP:        ip,
		Org:       orUnknown(parsed.Org),
		OS:        orUnknown(parsed.OS),
		Ports:     parsed.Ports,
		Vulns:     parsed.Vulns,
		Hostnames: parsed.Hostnames,
		Data:      services,
	}, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
