// Package cloudbuckets probes for publicly accessible cloud storage
// buckets named after a target domain.
package cloudbuckets

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pyneda/sukyan/pkg/modules"
	"github.com/pyneda/sukyan/pkg/recon/common"
	"github.com/pyneda/sukyan/pkg/recon/types"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

func init() {
	modules.Register(modules.CategoryCloudBuckets, "enumerator", newEnumerator)
}

var defaultWordlist = []string{"{domain}", "{domain}-backup", "{domain}-assets", "backup-{domain}"}
var defaultProviders = []string{"aws", "azure", "gcp"}

// enumerator builds candidate bucket names from a wordlist and checks each
// one against AWS, Azure, and GCP's public object-storage URL conventions.
type enumerator struct {
	modules.Base
	client    *http.Client
	wordlist  []string
	providers []string
}

func newEnumerator(cfg modules.ModuleConfig) modules.Module {
	e := &enumerator{
		Base:      modules.NewBase(cfg, modules.CategoryCloudBuckets, "enumerator"),
		client:    common.NewHTTPClient(cfg, 5*time.Second),
		wordlist:  defaultWordlist,
		providers: defaultProviders,
	}
	if wordlist, ok := cfg.Settings["wordlist"].([]string); ok && len(wordlist) > 0 {
		e.wordlist = wordlist
	}
	if providers, ok := cfg.Settings["providers"].([]string); ok && len(providers) > 0 {
		e.providers = providers
	}
	return e
}

func (e *enumerator) Name() string               { return "enumerator" }
func (e *enumerator) Category() modules.Category { return modules.CategoryCloudBuckets }

func (e *enumerator) Run(ctx context.Context, target string) error {
	domainLabel := target
	if idx := strings.Index(target, "."); idx > 0 {
		domainLabel = target[:idx]
	}

	var candidates []string
	for _, template := range e.wordlist {
		candidates = append(candidates, strings.ReplaceAll(template, "{domain}", domainLabel))
	}

	log.Info().Strs("buckets", candidates).Int("providers", len(e.providers)).Msg("enumerating cloud buckets")

	p := pool.New().WithMaxGoroutines(20)
	var mu sync.Mutex
	var findings []types.CloudBucketPayload

	for _, name := range candidates {
		for _, provider := range e.providers {
			name, provider := name, provider
			p.Go(func() {
				if e.RateLimiter != nil {
					if err := e.RateLimiter.Acquire(ctx); err != nil {
						return
					}
				}
				if finding, ok := e.checkBucket(ctx, name, provider); ok {
					mu.Lock()
					findings = append(findings, finding)
					mu.Unlock()
				}
			})
		}
	}
	p.Wait()

	if len(findings) == 0 {
		log.Info().Str("target", target).Msg("no public cloud buckets found")
		return nil
	}
	if err := e.StoreFindingsDefaultType(target, "cloud_bucket_enumerator", findings); err != nil {
		return err
	}
	log.Info().Int("count", len(findings)).Str("target", target).Msg("found potentially public cloud buckets")
	return nil
}

func bucketURL(name, provider string) string {
	switch provider {
	case "aws":
		return fmt.Sprintf("https://%s.s3.amazonaws.com", name)
	case "azure":
		return fmt.Sprintf("https://%s.blob.core.windows.net/", name)
	case "gcp":
		return fmt.Sprintf("https://storage.googleapis.com/%s/", name)
	default:
		return ""
	}
}

func (e *enumerator) checkBucket(ctx context.Context, name, provider string) (types.CloudBucketPayload, bool) {
	url := bucketURL(name, provider)
	if url == "" {
		return types.CloudBucketPayload{}, false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return types.CloudBucketPayload{}, false
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return types.CloudBucketPayload{}, false
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return types.CloudBucketPayload{Bucket: name, Provider: provider, URL: url, Status: "public"}, true
	case http.StatusForbidden:
		return types.CloudBucketPayload{Bucket: name, Provider: provider, URL: url, Status: "private"}, true
	default:
		return types.CloudBucketPayload{}, false
	}
}
