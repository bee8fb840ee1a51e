package browser

import (
	"github.com/go-rod/rod/lib/launcher"
)

// GetBrowserLauncher builds headless-Chromium launch options for the
// screenshot module: always headless (recon never needs a visible
// browser), hardened against flaky pages with the same flags the teacher
// carried for crawling.
func GetBrowserLauncher(proxyURL string) *launcher.Launcher {
	options := launcher.New().
		Headless(true).
		Set("allow-running-insecure-content").
		Set("disable-infobars").
		Set("disable-extensions").
		Set("no-sandbox")

	if proxyURL != "" {
		options = options.Proxy(proxyURL)
	}
	return options
}
