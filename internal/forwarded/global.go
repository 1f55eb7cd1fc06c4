package forwarded

import "net"

// documentationRanges are the IPv4 ranges reserved by RFC 5737 for use
// in documentation and examples.
var documentationRanges = []*net.IPNet{
	mustCIDR("192.0.2.0/24"),
	mustCIDR("198.51.100.0/24"),
	mustCIDR("203.0.113.0/24"),
}

func mustCIDR(s string) *net.IPNet {
	_, n, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	return n
}

// IsGlobal reports whether ip is globally routable. IPv4 addresses must
// be none of: private, loopback, link-local, broadcast, documentation,
// or unspecified. IPv6 addresses are held to the lenient policy adopted
// for this implementation (see design notes): only loopback and
// unspecified are rejected, since the standard library exposes no
// stable "is globally routable" predicate for IPv6.
func IsGlobal(ip net.IP) bool {
	if ip == nil {
		return false
	}

	if v4 := ip.To4(); v4 != nil {
		if v4.IsPrivate() || v4.IsLoopback() || v4.IsLinkLocalUnicast() ||
			v4.IsUnspecified() || isBroadcast(v4) || isDocumentation(v4) {
			return false
		}
		return true
	}

	return !ip.IsLoopback() && !ip.IsUnspecified()
}

func isBroadcast(v4 net.IP) bool {
	return v4.Equal(net.IPv4bcast)
}

func isDocumentation(v4 net.IP) bool {
	for _, r := range documentationRanges {
		if r.Contains(v4) {
			return true
		}
	}
	return false
}
