package lib

import (
	"fmt"
	"net"
)

// ResolveDomain takes a domain name and returns its IP addresses.
func ResolveDomain(domain string) ([]net.IP, error) {
	ips, err := net.LookupIP(domain)
	if err != nil {
		return nil, err
	}

	if len(ips) == 0 {
		return nil, fmt.Errorf("no IPs found for domain %s", domain)
	}

	return ips, nil
}
