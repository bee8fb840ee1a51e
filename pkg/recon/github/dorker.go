// Package github searches GitHub's code search API for dork matches
// against a target domain.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pyneda/sukyan/pkg/modules"
	"github.com/pyneda/sukyan/pkg/recon/common"
	"github.com/pyneda/sukyan/pkg/recon/types"
	"github.com/rs/zerolog/log"
)

func init() {
	modules.Register(modules.CategoryGithub, "dorker", newDorker)
}

const resultsPerDork = 10

var defaultDorks = []string{`"{domain}"`, `"{domain}" api_key`, `"{domain}" secret`}

type codeSearchItem struct {
	HTMLURL    string `json:"html_url"`
	Path       string `json:"path"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

type codeSearchResponse struct {
	Items []codeSearchItem `json:"items"`
}

// dorker runs a set of code-search dork templates against GitHub, scoped
// to a target domain.
type dorker struct {
	modules.Base
	client *http.Client
	token  string
	dorks  []string
}

func newDorker(cfg modules.ModuleConfig) modules.Module {
	d := &dorker{
		Base:   modules.NewBase(cfg, modules.CategoryGithub, "dorker"),
		client: common.NewHTTPClient(cfg, 15*time.Second),
		token:  cfg.APIKeys["github"],
		dorks:  defaultDorks,
	}
	if dorks, ok := cfg.Settings["dorks"].([]string); ok && len(dorks) > 0 {
		d.dorks = dorks
	}
	return d
}

func (d *dorker) Name() string               { return "dorker" }
func (d *dorker) Category() modules.Category { return modules.CategoryGithub }

func (d *dorker) Run(ctx context.Context, target string) error {
	var findings []types.GithubPayload

	for _, template := range d.dorks {
		query := strings.ReplaceAll(template, "{domain}", target)
		log.Info().Str("query", query).Msg("executing github dork")

		if d.RateLimiter != nil {
			if err := d.RateLimiter.Acquire(ctx); err != nil {
				return err
			}
		}

		results, err := d.search(ctx, query)
		if err != nil {
			if strings.Contains(err.Error(), "403") {
				log.Warn().Msg("github rate limit hit, stopping dorking early")
				break
			}
			log.Error().Err(err).Str("query", query).Msg("github dork failed")
			continue
		}

		if len(results) > resultsPerDork {
			results = results[:resultsPerDork]
		}
		for _, item := range results {
			findings = append(findings, types.GithubPayload{
				Query:      query,
				URL:        item.HTMLURL,
				Repository: item.Repository.FullName,
				Path:       item.Path,
			})
		}
	}

	if len(findings) == 0 {
		log.Info().Str("target", target).Msg("no github exposure discovered")
		return nil
	}
	if err := d.StoreFindingsDefaultType(target, "github_dorker", findings); err != nil {
		return err
	}
	log.Info().Int("count", len(findings)).Str("target", target).Msg("stored github dork results")
	return nil
}

func (d *dorker) search(ctx context.Context, query string) ([]codeSearchItem, error) {
	endpoint := "https://api.github.com/search/code?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github search api returned status %d", resp.StatusCode)
	}

	var parsed codeSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding github search response: %w", err)
	}
	return parsed.Items, nil
}
