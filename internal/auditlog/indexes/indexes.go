// Package indexes reconciles the performance indexes on the access-log
// audit table against what is actually present in SQLite, dropping
// anything obsolete and creating anything missing.
package indexes

import (
	"strings"

	"github.com/pterm/pterm"
	"gorm.io/gorm"
)

// Definition represents an index name and its creation SQL.
type Definition struct {
	Name string
	SQL  string
}

const table = "access_log_entries"

// expectedDefinitions is the single source of truth for performance indexes.
var expectedDefinitions = []Definition{
	{Name: "idx_timestamp_status", SQL: `CREATE INDEX IF NOT EXISTS idx_timestamp_status ON access_log_entries(timestamp DESC, status_code)`},
	{Name: "idx_time_client_ip", SQL: `CREATE INDEX IF NOT EXISTS idx_time_client_ip ON access_log_entries(timestamp DESC, client_ip)`},
	{Name: "idx_geo_agg", SQL: `CREATE INDEX IF NOT EXISTS idx_geo_agg ON access_log_entries(geo_country, timestamp, client_ip) WHERE geo_country != ''`},
	{Name: "idx_enrichment", SQL: `CREATE INDEX IF NOT EXISTS idx_enrichment ON access_log_entries(enrichment, timestamp)`},
	{Name: "idx_status_code", SQL: `CREATE INDEX IF NOT EXISTS idx_status_code ON access_log_entries(status_code, timestamp)`},
	{Name: "idx_errors", SQL: `CREATE INDEX IF NOT EXISTS idx_errors ON access_log_entries(timestamp DESC, status_code, client_ip) WHERE status_code >= 400`},
	{Name: "idx_cleanup", SQL: `CREATE INDEX IF NOT EXISTS idx_cleanup ON access_log_entries(timestamp)`},
}

// legacyIndexes are index names from earlier table layouts; dropped on sight.
var legacyIndexes = []string{
	"idx_request_hash",
	"idx_time_host",
	"idx_time_backend",
	"idx_time_backend_url",
	"idx_summary_cover",
	"idx_path_agg",
	"idx_top_paths_cover",
	"idx_referer_agg",
	"idx_service_id",
	"idx_backend_agg",
	"idx_backend_url_agg",
	"idx_host_agg",
	"idx_ip_agg",
	"idx_top_ips_cover",
	"idx_ip_browser_agg",
	"idx_ip_backend_agg",
	"idx_ip_device_agg",
	"idx_ip_os_agg",
	"idx_ip_status_agg",
	"idx_ip_path_agg",
	"idx_ip_heatmap_agg",
	"idx_method",
	"idx_asn_agg",
	"idx_device_type",
	"idx_protocol",
	"idx_tls_version",
	"idx_slow",
	"idx_response_time",
}

// Ensure reconciles expected indexes against SQLite, dropping obsolete ones and creating missing ones.
func Ensure(db *gorm.DB, logger *pterm.Logger) (created int, dropped int, err error) {
	existingIndexes, err := fetchExistingIndexes(db)
	if err != nil {
		return 0, 0, err
	}

	existingSet := make(map[string]struct{}, len(existingIndexes))
	for _, name := range existingIndexes {
		existingSet[name] = struct{}{}
	}

	expectedSet := make(map[string]Definition, len(expectedDefinitions))
	for _, def := range expectedDefinitions {
		expectedSet[def.Name] = def
	}

	var unexpected []string
	for name := range existingSet {
		if _, ok := expectedSet[name]; !ok {
			unexpected = append(unexpected, name)
		}
	}

	if len(unexpected) > 0 {
		for _, name := range uniqueNames(append(legacyIndexes, unexpected...)) {
			if err := db.Exec("DROP INDEX IF EXISTS " + name).Error; err != nil {
				logger.Warn("Failed to drop index", logger.Args("index", name, "error", err))
				continue
			}
			dropped++
		}
	}

	for _, def := range expectedDefinitions {
		if err := db.Exec(def.SQL).Error; err != nil {
			logger.Warn("Failed to create index", logger.Args("index", def.Name, "error", err))
			return created, dropped, err
		}
		if _, ok := existingSet[def.Name]; !ok {
			created++
		}
	}

	return created, dropped, nil
}

func fetchExistingIndexes(db *gorm.DB) ([]string, error) {
	var names []string
	rows, err := db.Raw(`SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=? AND name NOT LIKE 'sqlite_%'`, table).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		name = strings.TrimSpace(name)
		if name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func uniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	result := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		result = append(result, name)
	}
	return result
}
