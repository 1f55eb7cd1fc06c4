package forwarded

import (
	"net/http"
	"testing"
)

func headersOf(pairs ...string) http.Header {
	h := http.Header{}
	for i := 0; i+1 < len(pairs); i += 2 {
		h.Set(pairs[i], pairs[i+1])
	}
	return h
}

func TestExtractS1IPv4XFF(t *testing.T) {
	h := headersOf("X-Forwarded-For", "192.0.2.43")
	ip := Extract(h, Options{})
	if ip == nil || ip.String() != "192.0.2.43" {
		t.Fatalf("got %v, want 192.0.2.43", ip)
	}
}

func TestExtractS2IPv6Forwarded(t *testing.T) {
	h := headersOf("Forwarded", `for="[2001:db8:cafe::17]"`)
	ip := Extract(h, Options{})
	if ip == nil || ip.String() != "2001:db8:cafe::17" {
		t.Fatalf("got %v, want 2001:db8:cafe::17", ip)
	}
}

func TestExtractS3XFFPrecedence(t *testing.T) {
	h := headersOf(
		"Forwarded", `by=203.0.113.42;for=192.0.2.46, for="[2001:db8:cafe::18]"`,
		"X-Forwarded-For", `192.0.2.44, "[2001:db8:cafe::17]"`,
	)
	ip := Extract(h, Options{})
	if ip == nil || ip.String() != "192.0.2.44" {
		t.Fatalf("got %v, want 192.0.2.44", ip)
	}
}

func TestExtractS4CustomHeaderOverride(t *testing.T) {
	h := headersOf(
		"CF-Connecting-IP", "203.0.113.42",
		"X-Forwarded-For", "9.9.9.9",
		"Forwarded", "for=1.1.1.1",
	)
	ip := Extract(h, Options{HeaderName: "CF-Connecting-IP"})
	if ip == nil || ip.String() != "203.0.113.42" {
		t.Fatalf("got %v, want 203.0.113.42", ip)
	}
}

func TestExtractS6OnlyHeaderSuppressesFallback(t *testing.T) {
	h := headersOf("X-Forwarded-For", "192.0.2.43", "Forwarded", "for=192.0.2.44")
	ip := Extract(h, Options{HeaderName: "CF-Connecting-IP", OnlyHeader: true})
	if ip != nil {
		t.Fatalf("expected no IP, got %v", ip)
	}
}

func TestExtractNoHeadersPresent(t *testing.T) {
	if ip := Extract(http.Header{}, Options{}); ip != nil {
		t.Fatalf("expected no IP, got %v", ip)
	}
}

func TestExtractUnparseableFallsThrough(t *testing.T) {
	h := headersOf("X-Forwarded-For", "not-an-ip")
	if ip := Extract(h, Options{}); ip != nil {
		t.Fatalf("expected no IP for unparseable value, got %v", ip)
	}
}
