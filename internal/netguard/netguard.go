// Package netguard guards every outbound call the token engine makes on
// an administrator's say-so — broker IdP endpoints and a client's
// registered backchannel_logout_uri — against SSRF: requests that would
// otherwise let a realm admin point the server at its own internal
// network.
package netguard

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// blockedHosts are rejected outright, before any DNS lookup.
var blockedHosts = []string{
	"localhost",
	"0.0.0.0",
	"127.0.0.1",
	"::1",
	"[::1]",
	"ip6-localhost",
	"ip6-loopback",
}

// blockedCIDRs covers the private, loopback, link-local, and
// special-use ranges a broker or backchannel-logout target must never
// resolve into.
var blockedCIDRs = []string{
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
	"ff00::/8",
	"0.0.0.0/8",
	"100.64.0.0/10",
	"192.0.0.0/24",
	"192.0.2.0/24",
	"198.18.0.0/15",
	"198.51.100.0/24",
	"203.0.113.0/24",
	"224.0.0.0/4",
	"240.0.0.0/4",
}

// ValidateOutboundURL parses raw as an absolute HTTP(S) URL and
// validates its host. Re-run this immediately before every dial, not
// just at registration time, so a DNS record changed after validation
// (rebinding) can't slip a private address through.
func ValidateOutboundURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("malformed URL")
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("unsupported URL scheme")
	}
	if u.Hostname() == "" {
		return fmt.Errorf("missing host")
	}
	return ValidateHost(u.Hostname())
}

// ValidateHost resolves host and rejects it if it is, or resolves to,
// a private, loopback, link-local, or otherwise non-public address.
func ValidateHost(host string) error {
	host = strings.ToLower(strings.TrimSpace(host))

	for _, blocked := range blockedHosts {
		if host == blocked {
			return fmt.Errorf("connections to localhost are forbidden")
		}
	}

	if ip := net.ParseIP(host); ip != nil {
		return validatePublicIP(ip)
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return fmt.Errorf("hostname resolution failed")
	}
	if len(ips) == 0 {
		return fmt.Errorf("hostname resolves to no IP addresses")
	}
	for _, ip := range ips {
		if err := validatePublicIP(ip); err != nil {
			return fmt.Errorf("connection to a non-public address is blocked")
		}
	}
	return nil
}

func validatePublicIP(ip net.IP) error {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return fmt.Errorf("non-public address")
	}

	for _, block := range blockedCIDRs {
		_, cidr, err := net.ParseCIDR(block)
		if err != nil {
			continue
		}
		if cidr.Contains(ip) {
			return fmt.Errorf("blocked CIDR range: %s", block)
		}
	}
	return nil
}
