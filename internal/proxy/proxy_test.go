package proxy

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/pterm/pterm"

	"prux/internal/geoip"
	"prux/internal/pathmatch"
)

func testLogger() *pterm.Logger {
	return pterm.DefaultLogger.WithLevel(pterm.LogLevelTrace)
}

func newProxyTo(t *testing.T, upstream *httptest.Server, resolver *geoip.Resolver, policy *pathmatch.Policy) *Proxy {
	t.Helper()
	base, err := url.Parse(upstream.URL)
	if err != nil {
		t.Fatalf("parse upstream url: %v", err)
	}
	return New(Config{
		UpstreamBase:  base,
		MaxmindPolicy: policy,
	}, resolver, upstream.Client(), testLogger(), nil, nil)
}

func TestServeHTTPRewritesURIAndQuery(t *testing.T) {
	var gotPath, gotQuery string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	p := newProxyTo(t, upstream, nil, pathmatch.NewPolicy(nil, nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/users/1?verbose=true", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()

	p.ServeHTTP(rec, req)

	if gotPath != "/api/users/1" {
		t.Errorf("path = %q, want /api/users/1", gotPath)
	}
	if gotQuery != "verbose=true" {
		t.Errorf("query = %q, want verbose=true", gotQuery)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestServeHTTPSkipsEnrichmentForNonGlobalIP(t *testing.T) {
	var gotHeader string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("Prux-Addr")
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	p := newProxyTo(t, upstream, nil, pathmatch.NewPolicy(nil, nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.5:5555"
	rec := httptest.NewRecorder()

	p.ServeHTTP(rec, req)

	if gotHeader != "" {
		t.Errorf("expected no Prux-Addr for private IP, got %q", gotHeader)
	}
}

func TestServeHTTPAppliesEnrichmentForGlobalIP(t *testing.T) {
	geoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"city":{"names":{"en":"Mountain View"}}}`))
	}))
	defer geoSrv.Close()

	resolver := geoip.New("id", "pass", 10, time.Minute)

	var gotAddr, gotCity string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAddr = r.Header.Get("Prux-Addr")
		gotCity = r.Header.Get("Prux-City")
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	p := newProxyTo(t, upstream, resolver, pathmatch.NewPolicy(nil, nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "8.8.8.8")
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()

	// Point the resolver at the fake MaxMind server.
	resolver.SetHTTPClient(&http.Client{Transport: rewriteHostTransport{base: geoSrv.URL}})

	p.ServeHTTP(rec, req)

	if gotAddr != "8.8.8.8" {
		t.Errorf("Prux-Addr = %q, want 8.8.8.8", gotAddr)
	}
	if gotCity != "Mountain View" {
		t.Errorf("Prux-City = %q, want Mountain View", gotCity)
	}
}

func TestServeHTTPUpstreamErrorReturnsBadGateway(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base, _ := url.Parse(upstream.URL)
	upstream.Close() // force a connection error

	p := New(Config{UpstreamBase: base, MaxmindPolicy: pathmatch.NewPolicy(nil, nil, nil)}, nil, nil, testLogger(), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()

	p.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if rec.Body.String() != badGatewayBody {
		t.Fatalf("body = %q, want %q", rec.Body.String(), badGatewayBody)
	}
}

type rewriteHostTransport struct{ base string }

func (t rewriteHostTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base, err := http.NewRequest(req.Method, t.base+req.URL.Path, req.Body)
	if err != nil {
		return nil, err
	}
	base.Header = req.Header
	return http.DefaultTransport.RoundTrip(base)
}
