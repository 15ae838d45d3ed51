package middleware

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// IPAllowlist is a fixed set of addresses and ranges.
type IPAllowlist struct {
	prefixes []netip.Prefix
}

// NewIPAllowlist parses entries, each a single IP ("127.0.0.1") or a CIDR
// range ("10.0.0.0/8"). Blank entries are ignored.
func NewIPAllowlist(entries []string) (*IPAllowlist, error) {
	list := &IPAllowlist{}
	for _, raw := range entries {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}

		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid allowlist entry %q: %w", entry, err)
			}
			list.prefixes = append(list.prefixes, prefix.Masked())
			continue
		}

		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid allowlist entry %q: %w", entry, err)
		}
		addr = addr.Unmap().WithZone("")
		list.prefixes = append(list.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return list, nil
}

// Contains reports whether ip is allowlisted. Unparseable input is never
// allowed.
func (l *IPAllowlist) Contains(ip string) bool {
	if l == nil {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap().WithZone("")
	for _, p := range l.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func (l *IPAllowlist) Len() int {
	if l == nil {
		return 0
	}
	return len(l.prefixes)
}

// ClientIP returns the request's source address without the port. When chi's
// RealIP middleware runs first, RemoteAddr already holds the forwarded address.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
