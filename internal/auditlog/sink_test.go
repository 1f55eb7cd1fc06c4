package auditlog

import (
	"testing"
	"time"

	"prux/internal/proxy"
)

func TestObserveTranslatesGeoAndUserAgent(t *testing.T) {
	writer := &Writer{entries: make(chan AccessLogEntry, 1)}
	sink := NewSink(writer)

	sink.Observe(proxy.RequestSummary{
		RequestID:    "req-1",
		Timestamp:    time.Unix(0, 0),
		Method:       "GET",
		Host:         "example.com",
		Path:         "/widgets",
		StatusCode:   200,
		ResponseTime: 5 * time.Millisecond,
		ClientIP:     "8.8.8.8",
		Enrichment:   "applied",
		GeoBody: []byte(`{
			"city":{"names":{"en":"Mountain View"}},
			"country":{"names":{"en":"United States"}},
			"subdivisions":[{"iso_code":"CA"}],
			"location":{"latitude":37.386,"longitude":-122.0838,"time_zone":"America/Los_Angeles"},
			"traits":{"isp":"Google LLC","network":"8.8.8.0/24"}
		}`),
		UpstreamHTTPVersion: "1.1",
		UserAgent:           "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0",
	})

	entry := <-writer.entries

	if entry.RequestID != "req-1" {
		t.Errorf("RequestID = %q", entry.RequestID)
	}
	if entry.GeoCity != "Mountain View" || entry.GeoCountry != "United States" || entry.GeoProvince != "CA" {
		t.Errorf("geo fields wrong: %+v", entry)
	}
	if entry.GeoLat != 37.386 || entry.GeoLon != -122.0838 {
		t.Errorf("coords wrong: %+v", entry)
	}
	if entry.GeoISP != "Google LLC" || entry.GeoNetwork != "8.8.8.0/24" {
		t.Errorf("traits wrong: %+v", entry)
	}
	if entry.Browser != "Chrome" || entry.OS != "Windows" {
		t.Errorf("user-agent fields wrong: %+v", entry)
	}
	if entry.Enrichment != EnrichmentApplied {
		t.Errorf("Enrichment = %q", entry.Enrichment)
	}
}

func TestObserveHandlesMissingGeoBody(t *testing.T) {
	writer := &Writer{entries: make(chan AccessLogEntry, 1)}
	sink := NewSink(writer)

	sink.Observe(proxy.RequestSummary{
		RequestID:  "req-2",
		Timestamp:  time.Unix(0, 0),
		Enrichment: "skipped",
	})

	entry := <-writer.entries
	if entry.GeoCity != "" || entry.GeoCountry != "" {
		t.Errorf("expected empty geo fields, got %+v", entry)
	}
}
