package common

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/pyneda/sukyan/pkg/modules"
)

// NewHTTPClient builds an http.Client wired to cfg's proxy selection,
// mirroring the teacher's CreateHttpTransport shape (dialer timeouts, idle
// connection limits, permissive TLS for recon targets with self-signed
// certs) but sourcing its proxy from the per-scan Selector instead of a
// single global viper key.
func NewHTTPClient(cfg modules.ModuleConfig, timeout time.Duration) *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: true},
	}
	if cfg.Proxy != nil {
		if dial := cfg.Proxy.ConnectionFactory(); dial != nil {
			transport.DialContext = dial
		}
		if proxyURL := cfg.Proxy.RequestProxyURL(); proxyURL != nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}
