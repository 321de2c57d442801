// Package netaddr normalizes peer addresses reported by the daemon into bare IPs
// and classifies them for geolocation.
package netaddr

import (
	"net"
	"net/netip"
	"strconv"
	"strings"
)

// ExtractIP returns the host part of a daemon address in "host:port",
// "[ipv6]:port" or bare form. The port is never validated.
func ExtractIP(address string) string {
	if address == "" {
		return ""
	}

	// [2001:db8::1]:8333
	if open, end := strings.IndexByte(address, '['), strings.IndexByte(address, ']'); open >= 0 && end > open {
		return address[open+1 : end]
	}

	switch strings.Count(address, ":") {
	case 0:
		return address
	case 1:
		return address[:strings.IndexByte(address, ':')]
	}

	// Bare IPv6 like 2001:db8::1 ends with digits too, keep it whole.
	if IsValidIP(address) {
		return address
	}

	last := strings.LastIndexByte(address, ':')
	if last > 0 && isDigits(address[last+1:]) {
		return address[:last]
	}

	return address
}

// IsValidIP reports whether ip is a dotted-quad IPv4 or an IPv6 address.
// Zones are accepted only for link-local IPv6 (fe80::1%eth0).
// Hostnames and addresses with ports are invalid.
func IsValidIP(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}

	if addr.Zone() != "" && !addr.IsLinkLocalUnicast() {
		return false
	}

	return true
}

// IsLocalAddress reports whether ip is loopback, RFC1918 private, link-local
// or unspecified, i.e. carries no useful public geolocation.
// Unparsable input is not local.
func IsLocalAddress(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()

	return addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsUnspecified()
}

// JoinHostPort formats a node local address for display: "[v6]:port" or "v4:port".
func JoinHostPort(address string, port int) string {
	return net.JoinHostPort(address, strconv.Itoa(port))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}
