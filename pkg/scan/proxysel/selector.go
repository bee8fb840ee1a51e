// Package proxysel selects which outbound proxy, if any, a module's HTTP
// client should dial through.
package proxysel

import (
	"context"
	"net"
	"net/url"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/proxy"
)

const torProxyURL = "socks5://127.0.0.1:9050"

// Selector picks a single upstream proxy from Tor, an HTTPS proxy, or an
// HTTP proxy, in that precedence order, mirroring
// ProxyManager.get_connector's "tor_proxy or https_proxy or http_proxy".
type Selector struct {
	httpProxy, httpsProxy string
	useTor                bool
}

// New builds a Selector. httpProxy/httpsProxy are plain URLs
// ("http://host:port" or "socks5://host:port"); useTor routes through a
// local Tor SOCKS5 listener on 127.0.0.1:9050 ahead of both.
func New(httpProxy, httpsProxy string, useTor bool) *Selector {
	return &Selector{httpProxy: httpProxy, httpsProxy: httpsProxy, useTor: useTor}
}

func (s *Selector) selected() string {
	if s.useTor {
		return torProxyURL
	}
	if s.httpsProxy != "" {
		return s.httpsProxy
	}
	return s.httpProxy
}

// ConnectionFactory returns a dial function for http.Transport.DialContext
// when the selected proxy is a SOCKS endpoint, and nil otherwise (plain
// HTTP proxies are handled via RequestProxyURL instead, never both, to
// avoid double-proxying a single request).
func (s *Selector) ConnectionFactory() func(ctx context.Context, network, addr string) (net.Conn, error) {
	raw := s.selected()
	if raw == "" || !isSocks(raw) {
		return nil
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		log.Error().Err(err).Str("proxy", raw).Msg("failed to parse SOCKS proxy url, disabling proxy")
		return nil
	}

	dialer, err := proxy.FromURL(parsed, proxy.Direct)
	if err != nil {
		log.Error().Err(err).Str("proxy", raw).Msg("failed to build SOCKS dialer, disabling proxy")
		return nil
	}

	contextDialer, ok := dialer.(proxy.ContextDialer)
	if !ok {
		return func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}
	return contextDialer.DialContext
}

// RequestProxyURL returns the URL to set on http.Transport.Proxy for a
// plain HTTP/HTTPS proxy, or nil when no proxy is selected or the selected
// one is a SOCKS endpoint (those are handled by ConnectionFactory instead).
func (s *Selector) RequestProxyURL() *url.URL {
	raw := s.selected()
	if raw == "" || isSocks(raw) {
		return nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		log.Error().Err(err).Str("proxy", raw).Msg("failed to parse proxy url")
		return nil
	}
	return parsed
}

func isSocks(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "socks5", "socks5h", "socks4", "socks4a", "socks":
		return true
	default:
		return false
	}
}
