// Package portscan implements TCP port-sweep sources.
package portscan

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/projectdiscovery/cdncheck"
	"github.com/pyneda/sukyan/lib"
	"github.com/pyneda/sukyan/pkg/modules"
	"github.com/pyneda/sukyan/pkg/recon/types"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

func init() {
	modules.Register(modules.CategoryPortscan, "scanner", newScanner)
}

var defaultPorts = []int{
	21, 22, 23, 25, 53, 80, 110, 111, 135, 139, 143, 443, 445,
	993, 995, 1723, 3306, 3389, 5900, 8080, 8443,
}

// scanner resolves a target to an IP and sweeps a configurable port list,
// recording each port found open.
type scanner struct {
	modules.Base
	ports       []int
	timeout     time.Duration
	concurrency int
	cdn         *cdncheck.Client
}

func newScanner(cfg modules.ModuleConfig) modules.Module {
	s := &scanner{
		Base:        modules.NewBase(cfg, modules.CategoryPortscan, "scanner"),
		ports:       defaultPorts,
		timeout:     2 * time.Second,
		concurrency: 100,
		cdn:         cdncheck.New(),
	}
	if ports, ok := cfg.Settings["ports"].([]int); ok && len(ports) > 0 {
		s.ports = ports
	}
	if timeout, ok := cfg.Settings["timeout"].(int); ok && timeout > 0 {
		s.timeout = time.Duration(timeout) * time.Second
	}
	if concurrency, ok := cfg.Settings["concurrency"].(int); ok && concurrency > 0 {
		s.concurrency = concurrency
	}
	return s
}

func (s *scanner) Name() string               { return "scanner" }
func (s *scanner) Category() modules.Category { return modules.CategoryPortscan }

func (s *scanner) Run(ctx context.Context, target string) error {
	ip, err := resolveIP(target)
	if err != nil {
		log.Error().Err(err).Str("target", target).Msg("could not resolve target, skipping port scan")
		return nil
	}
	log.Info().Str("target", target).Str("ip", ip.String()).Msg("resolved target, starting port scan")

	if fronted, provider := s.isCDNFronted(ip); fronted {
		log.Info().Str("target", target).Str("ip", ip.String()).Str("provider", provider).
			Msg("target resolves behind a CDN/cloud edge, open ports would reflect the edge rather than the origin; scanning anyway but flagging it")
	}

	p := pool.New().WithMaxGoroutines(s.concurrency)
	var mu sync.Mutex
	var open []int
	for _, port := range s.ports {
		port := port
		p.Go(func() {
			if ctx.Err() != nil {
				return
			}
			if s.RateLimiter != nil {
				if err := s.RateLimiter.Acquire(ctx); err != nil {
					return
				}
			}
			if checkPort(ctx, ip.String(), port, s.timeout) {
				mu.Lock()
				open = append(open, port)
				mu.Unlock()
			}
		})
	}
	p.Wait()

	if len(open) == 0 {
		log.Info().Str("target", target).Msg("no open ports found")
		return nil
	}

	findings := make([]types.PortPayload, 0, len(open))
	for _, port := range open {
		findings = append(findings, types.PortPayload{IP: ip.String(), Port: port, State: "open"})
	}
	if err := s.StoreFindingsDefaultType(target, "port_scanner", findings); err != nil {
		return err
	}
	log.Info().Int("count", len(open)).Str("target", target).Msg("found open ports")
	return nil
}

func (s *scanner) isCDNFronted(ip net.IP) (bool, string) {
	if matched, provider, err := s.cdn.CheckCDN(ip); err == nil && matched {
		return true, provider
	}
	if matched, provider, err := s.cdn.CheckCloud(ip); err == nil && matched {
		return true, provider
	}
	return false, ""
}

func resolveIP(target string) (net.IP, error) {
	ips, err := lib.ResolveDomain(target)
	if err != nil {
		return nil, err
	}
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			return v4, nil
		}
	}
	return ips[0], nil
}

func checkPort(ctx context.Context, ip string, port int, timeout time.Duration) bool {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(ip, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
