// Package forwarded extracts the client IP a request claims to
// originate from, by inspecting a configured header, the X-Forwarded-For
// header, or the Forwarded header (RFC 7239), in that order.
package forwarded

import (
	"net"
	"net/http"
	"strings"
)

const ipv6TrimCutset = "\"[]"

// Options controls how the extractor looks up the forwarded IP.
type Options struct {
	// HeaderName, if non-empty, names a header that takes priority over
	// X-Forwarded-For and Forwarded.
	HeaderName string
	// OnlyHeader, when true, suppresses the X-Forwarded-For/Forwarded
	// fallback entirely: if HeaderName is unset or absent, the result is
	// "no forwarded IP" regardless of what those headers contain.
	OnlyHeader bool
}

// Extract returns the forwarded client IP per the lookup order in the
// design, or nil if none of the configured sources yield a parseable
// address.
func Extract(headers http.Header, opts Options) net.IP {
	if opts.HeaderName != "" {
		if raw := headers.Get(opts.HeaderName); raw != "" {
			return parseIP(normalize(raw))
		}
	}

	if opts.OnlyHeader {
		return nil
	}

	if raw := headers.Get("X-Forwarded-For"); raw != "" {
		first, _, _ := strings.Cut(raw, ",")
		return parseIP(normalize(first))
	}

	if raw := headers.Get("Forwarded"); raw != "" {
		if value, ok := forwardedFor(raw); ok {
			return parseIP(normalize(value))
		}
	}

	return nil
}

// normalize trims whitespace, strips the quoting/bracket characters
// RFC 7239 allows around an IPv6 literal, and lowercases the result.
func normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, ipv6TrimCutset)
	return strings.ToLower(s)
}

// forwardedFor extracts the value of the first for= element of an RFC
// 7239 Forwarded header.
func forwardedFor(header string) (string, bool) {
	lower := strings.ToLower(header)
	for _, element := range strings.Split(lower, ";") {
		rest, ok := strings.CutPrefix(strings.TrimSpace(element), "for=")
		if !ok {
			continue
		}
		value, _, _ := strings.Cut(rest, ",")
		return value, true
	}
	return "", false
}

// parseIP parses s as an IPv4 address first, then IPv6, returning nil
// on failure.
func parseIP(s string) net.IP {
	if ip := net.ParseIP(s); ip != nil {
		return ip
	}
	return nil
}
