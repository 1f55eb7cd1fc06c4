package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const configFileBaseName = "prux"

// SaveFormat is one of the file formats Settings can be persisted as.
type SaveFormat string

const (
	FormatTOML SaveFormat = "TOML"
	FormatYAML SaveFormat = "YAML"
	FormatJSON SaveFormat = "JSON"
)

// Load builds a Settings tree from, in increasing precedence: built-in
// defaults, an optional config file, environment variables prefixed
// "PRUX" with "__" separating nested keys, and finally the CLI
// overrides already parsed into flags.
func Load(configPath string, flags *FlagOverrides) (*Settings, error) {
	v := viper.New()

	defaults := Default()
	if err := bindDefaults(v, &defaults); err != nil {
		return nil, fmt.Errorf("binding defaults: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
		}
	} else {
		v.SetConfigName(configFileBaseName)
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("binding environment overrides: %w", err)
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("unmarshaling configuration: %w", err)
	}

	if flags != nil {
		flags.ApplyTo(&settings)
	}

	if err := Validate(&settings); err != nil {
		return nil, err
	}

	return &settings, nil
}

// configKeys lists every settings key in mapstructure dotted form, used
// to bind each one explicitly to its documented "PRUX__"-prefixed,
// "__"-separated environment variable (e.g. "server.uri" ->
// "PRUX__SERVER__URI"). Binding explicitly, rather than relying on
// viper's SetEnvPrefix (which joins prefix and key with a single "_"),
// is what makes the documented double-underscore convention actually
// take effect.
var configKeys = []string{
	"loglevel",
	"server.uri",
	"server.maxmind_id",
	"server.maxmind_password",
	"server.path_inclusions",
	"server.path_exclusions",
	"server.cache_capacity",
	"server.cache_duration_secs",
	"server.forwarded_ip_header",
	"server.use_forwarded_ip_header_only",
	"listener.port",
	"admin.enabled",
	"admin.port",
	"admin.pprof",
	"audit.enabled",
	"audit.database_path",
	"audit.retention_days",
}

func bindEnv(v *viper.Viper) error {
	for _, key := range configKeys {
		envVar := "PRUX__" + strings.ToUpper(strings.ReplaceAll(key, ".", "__"))
		if err := v.BindEnv(key, envVar); err != nil {
			return err
		}
	}
	return nil
}

func bindDefaults(v *viper.Viper, s *Settings) error {
	v.SetDefault("loglevel", s.LogLevel)
	v.SetDefault("server.uri", s.Server.URI)
	v.SetDefault("server.maxmind_id", s.Server.MaxmindID)
	v.SetDefault("server.maxmind_password", s.Server.MaxmindPassword)
	v.SetDefault("server.path_inclusions", s.Server.PathInclusions)
	v.SetDefault("server.path_exclusions", s.Server.PathExclusions)
	v.SetDefault("server.cache_capacity", s.Server.CacheCapacity)
	v.SetDefault("server.cache_duration_secs", s.Server.CacheDurationSecs)
	v.SetDefault("server.forwarded_ip_header", s.Server.ForwardedIPHeader)
	v.SetDefault("server.use_forwarded_ip_header_only", s.Server.UseForwardedIPHeaderOnly)
	v.SetDefault("listener.port", s.Listener.Port)
	v.SetDefault("admin.enabled", s.Admin.Enabled)
	v.SetDefault("admin.port", s.Admin.Port)
	v.SetDefault("admin.pprof", s.Admin.Pprof)
	v.SetDefault("audit.enabled", s.Audit.Enabled)
	v.SetDefault("audit.database_path", s.Audit.DatabasePath)
	v.SetDefault("audit.retention_days", s.Audit.RetentionDays)
	return nil
}

// Save writes settings to dir/prux.<ext> in the requested format.
func Save(settings *Settings, dir string, format SaveFormat) (string, error) {
	v := viper.New()
	if err := bindDefaults(v, settings); err != nil {
		return "", err
	}

	var ext string
	switch format {
	case FormatTOML:
		ext = "toml"
	case FormatYAML:
		ext = "yaml"
	case FormatJSON:
		ext = "json"
	default:
		return "", fmt.Errorf("unsupported configuration format %q", format)
	}

	path := fmt.Sprintf("%s/%s.%s", strings.TrimSuffix(dir, "/"), configFileBaseName, ext)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := v.WriteConfigAs(path); err != nil {
		return "", err
	}
	return path, nil
}
