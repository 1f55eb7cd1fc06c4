package auditlog

import "time"

// EnrichmentMode records what the enrichment pipeline actually did for a
// served request.
type EnrichmentMode string

const (
	EnrichmentApplied EnrichmentMode = "applied"
	EnrichmentSkipped EnrichmentMode = "skipped"
	EnrichmentFailed  EnrichmentMode = "failed"
)

// AccessLogEntry is one row per served request, written only when
// auditing is enabled. It is never read back by the live proxy path.
type AccessLogEntry struct {
	ID uint `gorm:"primarykey"`

	Timestamp      time.Time `gorm:"index:idx_timestamp"`
	RequestID      string    `gorm:"size:64"`
	Method         string    `gorm:"size:16"`
	Host           string    `gorm:"size:255"`
	Path           string    `gorm:"size:2048"`
	StatusCode     int
	ResponseTimeMs int64
	ClientIP       string `gorm:"size:64;index:idx_client_ip"`
	Enrichment     EnrichmentMode `gorm:"size:16"`

	GeoCountry  string `gorm:"size:128"`
	GeoCity     string `gorm:"size:128"`
	GeoProvince string `gorm:"size:16"`
	GeoLat      float64
	GeoLon      float64
	GeoTimezone string `gorm:"size:64"`
	GeoISP      string `gorm:"size:255"`
	GeoNetwork  string `gorm:"size:64"`

	Browser    string `gorm:"size:64"`
	OS         string `gorm:"size:64"`
	DeviceType string `gorm:"size:32"`

	UpstreamHTTPVersion string `gorm:"size:8"`
}

// TableName pins the table name independent of Go naming conventions.
func (AccessLogEntry) TableName() string { return "access_log_entries" }
