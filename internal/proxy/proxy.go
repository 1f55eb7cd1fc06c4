// Package proxy implements the enrichment reverse-proxy request
// pipeline: rewrite the URI onto the upstream, determine the effective
// client IP, optionally enrich with GeoIP headers, and dispatch.
package proxy

import (
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"

	"prux/internal/forwarded"
	"prux/internal/geoip"
	"prux/internal/inject"
	"prux/internal/pathmatch"
)

const badGatewayBody = "Something went wrong, please try again later."

// Observer receives counters for served requests; the admin package's
// Counters type satisfies this.
type Observer interface {
	ObserveRequest()
	ObserveEnrichmentApplied()
	ObserveEnrichmentSkipped()
	ObserveEnrichmentFailed()
}

// AuditSink receives a summary of every served request when auditing is
// enabled. Implementations must not block the request path.
type AuditSink interface {
	Observe(RequestSummary)
}

// RequestSummary is everything the audit sink needs to persist one row.
type RequestSummary struct {
	RequestID           string
	Timestamp           time.Time
	Method              string
	Host                string
	Path                string
	StatusCode          int
	ResponseTime        time.Duration
	ClientIP            string
	Enrichment          string
	GeoBody             []byte
	UpstreamHTTPVersion string
	UserAgent           string
}

// Config configures one Proxy instance.
type Config struct {
	UpstreamBase             *url.URL
	ForwardedIPHeader        string
	UseForwardedIPHeaderOnly bool
	MaxmindPolicy            *pathmatch.Policy
}

// Proxy forwards requests to a single upstream origin, injecting
// Prux-* GeoIP headers before dispatch.
type Proxy struct {
	cfg      Config
	resolver *geoip.Resolver
	client   *http.Client
	logger   *pterm.Logger
	observer Observer
	audit    AuditSink
}

// New constructs a Proxy. resolver may be nil if no MaxmindID/Password
// was configured, in which case enrichment is always skipped.
func New(cfg Config, resolver *geoip.Resolver, client *http.Client, logger *pterm.Logger, observer Observer, audit AuditSink) *Proxy {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Proxy{cfg: cfg, resolver: resolver, client: client, logger: logger, observer: observer, audit: audit}
}

// ServeHTTP implements http.Handler, running every accepted request
// through the enrichment pipeline before dispatching upstream.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	enrichment := "skipped"
	var geoBody []byte
	requestID := uuid.NewString()
	w.Header().Set("Prux-Request-Id", requestID)

	outReq, err := p.rewriteRequest(r)
	if err != nil {
		p.logger.WithCaller().Error("failed to build upstream request", p.logger.Args("error", err))
		if p.observer != nil {
			p.observer.ObserveRequest()
		}
		writeBadGateway(w)
		p.recordAudit(r, requestID, start, http.StatusBadGateway, nil, enrichment, nil, "")
		return
	}

	clientIP := p.effectiveClientIP(r)
	if clientIP != nil {
		set := inject.NewEnrichmentSet(canonical(clientIP))

		if p.resolver != nil && p.maxmindPolicyAdmits(r.URL.Path) {
			body, err := p.resolver.Lookup(r.Context(), clientIP)
			if err != nil {
				p.logger.Warn("geoip lookup failed", p.logger.Args("error", err, "ip", clientIP.String()))
				enrichment = "failed"
				if p.observer != nil {
					p.observer.ObserveRequest()
					p.observer.ObserveEnrichmentFailed()
				}
				writeBadGateway(w)
				p.recordAudit(r, requestID, start, http.StatusBadGateway, clientIP, enrichment, nil, "")
				return
			}
			geoBody = body
			inject.Merge(set, body)
			enrichment = "applied"
		}

		set.Apply(outReq.Header.Set)
	}

	if p.observer != nil {
		p.observer.ObserveRequest()
		switch enrichment {
		case "applied":
			p.observer.ObserveEnrichmentApplied()
		case "skipped":
			p.observer.ObserveEnrichmentSkipped()
		}
	}

	resp, err := p.client.Do(outReq)
	if err != nil {
		p.logger.WithCaller().Error("upstream request failed", p.logger.Args("error", err, "url", outReq.URL.String()))
		writeBadGateway(w)
		p.recordAudit(r, requestID, start, http.StatusBadGateway, clientIP, enrichment, geoBody, "")
		return
	}
	defer resp.Body.Close()

	for key, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.Header().Set("proxy-info", proxyInfo(resp))
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)

	p.recordAudit(r, requestID, start, resp.StatusCode, clientIP, enrichment, geoBody, versionString(resp.ProtoMajor, resp.ProtoMinor))
}

func (p *Proxy) recordAudit(r *http.Request, requestID string, start time.Time, status int, clientIP net.IP, enrichment string, geoBody []byte, version string) {
	if p.audit == nil {
		return
	}
	ip := ""
	if clientIP != nil {
		ip = canonical(clientIP)
	}
	p.audit.Observe(RequestSummary{
		RequestID:           requestID,
		Timestamp:           start,
		Method:              r.Method,
		Host:                r.Host,
		Path:                r.URL.Path,
		StatusCode:          status,
		ResponseTime:        time.Since(start),
		ClientIP:            ip,
		Enrichment:          enrichment,
		GeoBody:             geoBody,
		UpstreamHTTPVersion: version,
		UserAgent:           r.UserAgent(),
	})
}

// rewriteRequest builds the outgoing request by attaching the incoming
// path and query to the upstream base's scheme, authority, and base path.
func (p *Proxy) rewriteRequest(r *http.Request) (*http.Request, error) {
	target := *p.cfg.UpstreamBase
	target.Path = joinPath(p.cfg.UpstreamBase.Path, r.URL.Path)
	target.RawQuery = r.URL.RawQuery

	outReq, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), r.Body)
	if err != nil {
		return nil, err
	}
	outReq.Header = r.Header.Clone()
	outReq.ContentLength = r.ContentLength
	return outReq, nil
}

func joinPath(base, incoming string) string {
	if base == "" || base == "/" {
		return incoming
	}
	trimmedBase := base
	for len(trimmedBase) > 0 && trimmedBase[len(trimmedBase)-1] == '/' {
		trimmedBase = trimmedBase[:len(trimmedBase)-1]
	}
	if incoming == "" {
		return trimmedBase
	}
	if incoming[0] != '/' {
		return trimmedBase + "/" + incoming
	}
	return trimmedBase + incoming
}

// effectiveClientIP combines the forwarded-IP extractor with the
// transport peer address and the global-IP filter, per 4.D/4.F.
func (p *Proxy) effectiveClientIP(r *http.Request) net.IP {
	ip := forwarded.Extract(r.Header, forwarded.Options{
		HeaderName: p.cfg.ForwardedIPHeader,
		OnlyHeader: p.cfg.UseForwardedIPHeaderOnly,
	})

	if ip == nil {
		ip = peerIP(r)
	}

	if ip == nil || !forwarded.IsGlobal(ip) {
		return nil
	}
	return ip
}

func (p *Proxy) maxmindPolicyAdmits(path string) bool {
	if p.cfg.MaxmindPolicy == nil {
		return true
	}
	return p.cfg.MaxmindPolicy.Validate(path)
}

func peerIP(r *http.Request) net.IP {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return net.ParseIP(r.RemoteAddr)
	}
	return net.ParseIP(host)
}

func canonical(ip net.IP) string {
	if v4 := ip.To4(); v4 != nil {
		return v4.String()
	}
	return ip.String()
}

func writeBadGateway(w http.ResponseWriter) {
	w.WriteHeader(http.StatusBadGateway)
	io.WriteString(w, badGatewayBody)
}

// proxyInfo derives the "<version> prux-<semver>" response header from
// the upstream response's negotiated HTTP version. Unrecognized
// version pairs fall back to "2.0", matching the original's catch-all.
func proxyInfo(resp *http.Response) string {
	return versionString(resp.ProtoMajor, resp.ProtoMinor) + " prux-" + buildVersion
}

func versionString(major, minor int) string {
	switch {
	case major == 0 && minor == 9:
		return "0.9"
	case major == 1 && minor == 0:
		return "1.0"
	case major == 1 && minor == 1:
		return "1.1"
	case major == 2:
		return "2.0"
	default:
		return "2.0"
	}
}

// buildVersion is overridden from the version package by the caller
// during wiring; kept as a var so proxy stays decoupled from cmd/.
var buildVersion = "dev"

// SetBuildVersion lets the caller stamp the semver used in proxy-info.
func SetBuildVersion(v string) { buildVersion = v }
