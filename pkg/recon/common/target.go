// Package common holds small helpers shared across recon module packages.
package common

import (
	"github.com/jpillora/go-tld"
)

// ValidateDomainTarget tightens the registry's default ValidateTarget check
// by requiring target to parse as a public suffix plus at least one label,
// rejecting inputs like "localhost" or a bare TLD that the default
// "contains a dot" check would let through.
func ValidateDomainTarget(target string) bool {
	parsed, err := tld.Parse("http://" + target)
	if err != nil {
		return false
	}
	return parsed.Domain != "" && parsed.TLD != ""
}
