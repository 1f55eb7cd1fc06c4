// Package geoip resolves a client IP address to a MaxMind GeoIP2 City
// JSON document, backed by a bounded TTL cache and single-flighted so
// concurrent lookups for the same address share one outbound request.
package geoip

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"prux/internal/geocache"
)

const maxmindCityEndpoint = "https://geoip.maxmind.com/geoip/v2.1/city/%s"

// Record is the raw MaxMind GeoIP2 City JSON body, checked to be valid
// JSON but otherwise left undecoded; the header injector decodes the
// fields it needs and ignores the rest.
type Record = json.RawMessage

// waiter coordinates the single outbound request for one in-flight key
// with any number of concurrent callers asking for the same address.
type waiter struct {
	done  chan struct{}
	value Record
	err   error
}

// Resolver looks up GeoIP records from MaxMind, caching results to stay
// within MaxMind's per-query billing and rate limits.
type Resolver struct {
	httpClient *http.Client
	authHeader string
	cache      *geocache.Map[Record]

	mu       sync.Mutex
	inflight map[string]*waiter
}

// New constructs a Resolver that authenticates to MaxMind as
// id:password and caches up to capacity records for ttl.
func New(id, password string, capacity int, ttl time.Duration) *Resolver {
	token := base64.StdEncoding.EncodeToString([]byte(id + ":" + password))

	return &Resolver{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		authHeader: "Basic " + token,
		cache:      geocache.New[Record](capacity, ttl, time.Second),
		inflight:   make(map[string]*waiter),
	}
}

// SetHTTPClient replaces the HTTP client used to reach MaxMind, e.g. to
// install a custom Transport for testing or connection tuning.
func (r *Resolver) SetHTTPClient(c *http.Client) { r.httpClient = c }

// CacheLen reports the current number of cached records, exposed for the
// admin/stats surface.
func (r *Resolver) CacheLen() int { return r.cache.Len() }

// CacheCapacity reports the configured cache capacity.
func (r *Resolver) CacheCapacity() int { return r.cache.Capacity() }

// Lookup returns the GeoIP record for ip, either from cache or by
// querying MaxMind. Concurrent lookups for the same ip share a single
// outbound HTTPS request.
func (r *Resolver) Lookup(ctx context.Context, ip net.IP) (Record, error) {
	key := canonical(ip)

	if cached, ok := r.cache.Get(key); ok {
		return cached, nil
	}

	r.mu.Lock()
	if w, ok := r.inflight[key]; ok {
		r.mu.Unlock()
		<-w.done
		return w.value, w.err
	}

	w := &waiter{done: make(chan struct{})}
	r.inflight[key] = w
	r.mu.Unlock()

	w.value, w.err = r.fetch(ctx, key)

	r.mu.Lock()
	delete(r.inflight, key)
	r.mu.Unlock()
	close(w.done)

	return w.value, w.err
}

func (r *Resolver) fetch(ctx context.Context, key string) (Record, error) {
	url := fmt.Sprintf(maxmindCityEndpoint, key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, lookupErr("build request", err)
	}
	req.Header.Set("Authorization", r.authHeader)
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, lookupErr("request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, lookupErr("read body", err)
	}

	var decoded Record
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, lookupErr("decode json", err)
	}

	r.cache.Insert(key, decoded)
	return decoded, nil
}

// canonical returns the canonical text form used as the cache key: IPv4
// dotted-quad, IPv6 lowercase colon-hex with no zone suffix.
func canonical(ip net.IP) string {
	if v4 := ip.To4(); v4 != nil {
		return v4.String()
	}
	return ip.String()
}
