package auditlog

import (
	"github.com/goccy/go-json"

	"prux/internal/proxy"
	"prux/internal/useragent"
)

// geoFields is the subset of the MaxMind City response the audit sink
// persists alongside each request, decoded independently of the
// injector since the two packages must not depend on each other.
type geoFields struct {
	City struct {
		Names map[string]string `json:"names"`
	} `json:"city"`
	Country struct {
		Names map[string]string `json:"names"`
	} `json:"country"`
	Subdivisions []struct {
		IsoCode string `json:"iso_code"`
	} `json:"subdivisions"`
	Location struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
		TimeZone  string   `json:"time_zone"`
	} `json:"location"`
	Traits struct {
		ISP     string `json:"isp"`
		Network string `json:"network"`
	} `json:"traits"`
}

// Sink adapts a Writer to the proxy.AuditSink interface, translating a
// proxy.RequestSummary into a persisted AccessLogEntry.
type Sink struct {
	writer *Writer
}

// NewSink wraps writer as a proxy.AuditSink.
func NewSink(writer *Writer) *Sink {
	return &Sink{writer: writer}
}

// Observe implements proxy.AuditSink.
func (s *Sink) Observe(summary proxy.RequestSummary) {
	entry := AccessLogEntry{
		Timestamp:           summary.Timestamp,
		RequestID:           summary.RequestID,
		Method:              summary.Method,
		Host:                summary.Host,
		Path:                summary.Path,
		StatusCode:          summary.StatusCode,
		ResponseTimeMs:      summary.ResponseTime.Milliseconds(),
		ClientIP:            summary.ClientIP,
		Enrichment:          EnrichmentMode(summary.Enrichment),
		UpstreamHTTPVersion: summary.UpstreamHTTPVersion,
	}

	if ua := useragent.Parse(summary.UserAgent); ua != nil {
		entry.Browser = ua.Browser
		entry.OS = ua.OS
		entry.DeviceType = ua.DeviceType
	}

	if len(summary.GeoBody) > 0 {
		var geo geoFields
		if err := json.Unmarshal(summary.GeoBody, &geo); err == nil {
			entry.GeoCity = geo.City.Names["en"]
			entry.GeoCountry = geo.Country.Names["en"]
			if len(geo.Subdivisions) > 0 {
				entry.GeoProvince = geo.Subdivisions[0].IsoCode
			}
			if geo.Location.Latitude != nil {
				entry.GeoLat = *geo.Location.Latitude
			}
			if geo.Location.Longitude != nil {
				entry.GeoLon = *geo.Location.Longitude
			}
			entry.GeoTimezone = geo.Location.TimeZone
			entry.GeoISP = geo.Traits.ISP
			entry.GeoNetwork = geo.Traits.Network
		}
	}

	s.writer.Enqueue(entry)
}
