// Package admin exposes a small operations surface (health, live stats,
// pprof) on a listener separate from the proxy's hot path, so a slow or
// malicious admin client can never affect proxied traffic.
package admin

import (
	"sync/atomic"
	"time"
)

// Counters tracks request-path outcomes with atomic operations so the
// proxy's request goroutines never contend with admin reads.
type Counters struct {
	total             atomic.Int64
	enrichmentApplied atomic.Int64
	enrichmentSkipped atomic.Int64
	enrichmentFailed  atomic.Int64
	startedAt         time.Time
}

// NewCounters returns a ready-to-use Counters, stamped with the current
// process start time.
func NewCounters() *Counters {
	return &Counters{startedAt: time.Now()}
}

func (c *Counters) ObserveRequest()          { c.total.Add(1) }
func (c *Counters) ObserveEnrichmentApplied() { c.enrichmentApplied.Add(1) }
func (c *Counters) ObserveEnrichmentSkipped() { c.enrichmentSkipped.Add(1) }
func (c *Counters) ObserveEnrichmentFailed()   { c.enrichmentFailed.Add(1) }

// CacheStats is satisfied by the resolver's cache introspection methods.
type CacheStats interface {
	CacheLen() int
	CacheCapacity() int
}

// Snapshot is the JSON-serializable view of current counters returned by
// /stats and pushed over /stream.
type Snapshot struct {
	TotalRequests     int64  `json:"total_requests"`
	EnrichmentApplied int64  `json:"enrichment_applied"`
	EnrichmentSkipped int64  `json:"enrichment_skipped"`
	EnrichmentFailed  int64  `json:"enrichment_failed"`
	CacheSize         int    `json:"cache_size"`
	CacheCapacity     int    `json:"cache_capacity"`
	UptimeSeconds     int64  `json:"uptime_seconds"`
	Version           string `json:"version"`
}

func (c *Counters) Snapshot(cache CacheStats, version string) Snapshot {
	s := Snapshot{
		TotalRequests:     c.total.Load(),
		EnrichmentApplied: c.enrichmentApplied.Load(),
		EnrichmentSkipped: c.enrichmentSkipped.Load(),
		EnrichmentFailed:  c.enrichmentFailed.Load(),
		UptimeSeconds:     int64(time.Since(c.startedAt).Seconds()),
		Version:           version,
	}
	if cache != nil {
		s.CacheSize = cache.CacheLen()
		s.CacheCapacity = cache.CacheCapacity()
	}
	return s
}
