// Package config loads and validates the process configuration tree:
// defaults, then an optional config file, then environment variables,
// then CLI flags, in increasing order of precedence.
package config

import "github.com/go-playground/validator/v10"

// Server holds the proxy's upstream target and MaxMind credentials.
type Server struct {
	URI                      string `mapstructure:"uri" validate:"required,url"`
	MaxmindID                string `mapstructure:"maxmind_id"`
	MaxmindPassword          string `mapstructure:"maxmind_password"`
	PathInclusions           []string `mapstructure:"path_inclusions"`
	PathExclusions           []string `mapstructure:"path_exclusions"`
	CacheCapacity            int    `mapstructure:"cache_capacity" validate:"gte=0"`
	CacheDurationSecs        int    `mapstructure:"cache_duration_secs" validate:"gte=0"`
	ForwardedIPHeader        string `mapstructure:"forwarded_ip_header"`
	UseForwardedIPHeaderOnly bool   `mapstructure:"use_forwarded_ip_header_only"`
}

// Listener holds the proxy's own accept port.
type Listener struct {
	Port uint16 `mapstructure:"port"`
}

// Admin controls the separate operations/admin HTTP surface.
type Admin struct {
	Enabled bool `mapstructure:"enabled"`
	Port    uint16 `mapstructure:"port"`
	Pprof   bool `mapstructure:"pprof"`
}

// Audit controls the optional access-log persistence sink.
type Audit struct {
	Enabled       bool   `mapstructure:"enabled"`
	DatabasePath  string `mapstructure:"database_path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// Settings is the full process configuration tree.
type Settings struct {
	LogLevel string   `mapstructure:"loglevel" validate:"oneof=off error warn info debug trace"`
	Server   Server   `mapstructure:"server"`
	Listener Listener `mapstructure:"listener"`
	Admin    Admin    `mapstructure:"admin"`
	Audit    Audit    `mapstructure:"audit"`
}

// Default returns the baseline configuration before any file, env, or
// flag overrides are layered on.
func Default() Settings {
	return Settings{
		LogLevel: "info",
		Server: Server{
			CacheCapacity:     20480,
			CacheDurationSecs: 1440,
		},
		Listener: Listener{Port: 7479},
		Admin:    Admin{Enabled: true, Port: 7480, Pprof: false},
		Audit:    Audit{Enabled: false, DatabasePath: "prux_audit.db", RetentionDays: 30},
	}
}

// ValidationError wraps a validator failure so callers can distinguish
// configuration mistakes from other startup errors.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return "invalid configuration: " + e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate runs struct-tag validation over s.
func Validate(s *Settings) error {
	if err := validate.Struct(s); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}
