// Command prux runs the GeoIP-enriching reverse proxy.
//
// Logging:
//   - Base logger is created here via pterm
//   - Logger is passed to all components via dependency injection
//   - Components scope loggers with their own attributes
package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"prux/internal/admin"
	"prux/internal/auditlog"
	"prux/internal/banner"
	"prux/internal/config"
	"prux/internal/geoip"
	"prux/internal/pathmatch"
	"prux/internal/proxy"
	"prux/internal/server"
	"prux/internal/version"
)

func main() {
	logger := pterm.DefaultLogger.WithLevel(pterm.LogLevelInfo)

	var (
		configPath  string
		logLevel    string
		port        uint16
		serverURI   string
		maxmindID   string
		maxmindPass string
		adminPort   uint16
		noAdmin     bool
		saveConfig  string
		saveFormat  string
		showConfig  bool
		showVersion bool
	)

	rootCmd := &cobra.Command{
		Use:   "prux",
		Short: "GeoIP-enriching reverse proxy",
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Printf("prux %s (%s, built %s)\n", version.Version, version.Commit, version.BuildDate)
				return nil
			}

			overrides := &config.FlagOverrides{}
			if cmd.Flags().Changed("level") {
				overrides.LogLevel = &logLevel
			}
			if cmd.Flags().Changed("port") {
				overrides.Port = &port
			}
			if cmd.Flags().Changed("uri") {
				overrides.ServerURI = &serverURI
			}
			if cmd.Flags().Changed("maxmindid") {
				overrides.MaxmindID = &maxmindID
			}
			if cmd.Flags().Changed("maxmindpass") {
				overrides.MaxmindPass = &maxmindPass
			}
			if cmd.Flags().Changed("admin-port") {
				overrides.AdminPort = &adminPort
			}
			if cmd.Flags().Changed("no-admin") {
				overrides.NoAdmin = &noAdmin
			}

			settings, err := config.Load(configPath, overrides)
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}

			if saveConfig != "" {
				path, err := config.Save(settings, saveConfig, config.SaveFormat(saveFormat))
				if err != nil {
					return fmt.Errorf("saving configuration: %w", err)
				}
				logger.Info("configuration saved", logger.Args("path", path))
				return nil
			}

			if showConfig {
				fmt.Printf("%+v\n", *settings)
				return nil
			}

			return run(settings, logger)
		},
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a prux config file (toml/yaml/json)")
	rootCmd.Flags().StringVarP(&logLevel, "level", "l", "info", "log level: off, error, warn, info, debug, trace")
	rootCmd.Flags().Uint16VarP(&port, "port", "p", 0, "proxy listener port")
	rootCmd.Flags().StringVarP(&serverURI, "uri", "u", "", "upstream origin URI")
	rootCmd.Flags().StringVarP(&maxmindID, "maxmindid", "i", "", "MaxMind account ID")
	rootCmd.Flags().StringVarP(&maxmindPass, "maxmindpass", "s", "", "MaxMind license key")
	rootCmd.Flags().Uint16Var(&adminPort, "admin-port", 0, "admin/operations listener port")
	rootCmd.Flags().BoolVar(&noAdmin, "no-admin", false, "disable the admin/operations HTTP surface")
	rootCmd.Flags().StringVar(&saveConfig, "save-config", "", "write the effective configuration to this directory and exit")
	rootCmd.Flags().StringVar(&saveFormat, "format", string(config.FormatTOML), "format for --save-config: TOML, YAML, or JSON")
	rootCmd.Flags().BoolVar(&showConfig, "show-config", false, "print the effective configuration and exit")
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "print version information and exit")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("prux %s (%s, built %s)\n", version.Version, version.Commit, version.BuildDate)
		},
	}
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.WithCaller().Error("fatal error", logger.Args("error", err))
		os.Exit(1)
	}
}

func run(settings *config.Settings, logger *pterm.Logger) error {
	logger = logger.WithLevel(logLevelFromString(settings.LogLevel))

	proxy.SetBuildVersion(version.Version)
	banner.Print()

	upstream, err := url.Parse(settings.Server.URI)
	if err != nil {
		return fmt.Errorf("parsing upstream URI: %w", err)
	}

	var resolver *geoip.Resolver
	if settings.Server.MaxmindID != "" && settings.Server.MaxmindPassword != "" {
		resolver = geoip.New(
			settings.Server.MaxmindID,
			settings.Server.MaxmindPassword,
			settings.Server.CacheCapacity,
			time.Duration(settings.Server.CacheDurationSecs)*time.Second,
		)
	} else {
		logger.Warn("no MaxMind credentials configured, GeoIP enrichment disabled")
	}

	policy := pathmatch.NewPolicy(settings.Server.PathInclusions, settings.Server.PathExclusions, logger)
	counters := admin.NewCounters()

	var auditSink proxy.AuditSink
	var auditWriter *auditlog.Writer
	var cleanupService *auditlog.CleanupService
	if settings.Audit.Enabled {
		db, err := auditlog.NewConnection(&auditlog.Config{Path: settings.Audit.DatabasePath}, logger)
		if err != nil {
			return fmt.Errorf("opening audit database: %w", err)
		}
		auditWriter = auditlog.NewWriter(db, logger, 0)
		auditSink = auditlog.NewSink(auditWriter)

		cleanupService = auditlog.NewCleanupService(db, logger, settings.Audit.RetentionDays, 24*time.Hour, "03:00", true)
		cleanupService.Start()
	}

	p := proxy.New(proxy.Config{
		UpstreamBase:             upstream,
		ForwardedIPHeader:        settings.Server.ForwardedIPHeader,
		UseForwardedIPHeaderOnly: settings.Server.UseForwardedIPHeaderOnly,
		MaxmindPolicy:            policy,
	}, resolver, &http.Client{Timeout: 30 * time.Second}, logger, counters, auditSink)

	proxySrv := server.New(settings.Listener.Port, p, logger)

	var adminSrv *admin.Server
	if settings.Admin.Enabled {
		var cache admin.CacheStats
		if resolver != nil {
			cache = resolver
		}
		adminSrv = admin.NewServer(int(settings.Admin.Port), counters, cache, settings.Admin.Pprof, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 2)
	go func() { errCh <- proxySrv.ListenAndServe() }()
	if adminSrv != nil {
		go func() { errCh <- adminSrv.ListenAndServe() }()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.WithCaller().Error("server error", logger.Args("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := proxySrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("proxy shutdown error", logger.Args("error", err))
	}
	if adminSrv != nil {
		if err := adminSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("admin shutdown error", logger.Args("error", err))
		}
	}
	if cleanupService != nil {
		cleanupService.Stop()
	}
	if auditWriter != nil {
		auditWriter.Close()
	}

	return nil
}

func logLevelFromString(level string) pterm.LogLevel {
	switch level {
	case "off":
		return pterm.LogLevelDisabled
	case "error":
		return pterm.LogLevelError
	case "warn":
		return pterm.LogLevelWarn
	case "debug":
		return pterm.LogLevelDebug
	case "trace":
		return pterm.LogLevelTrace
	default:
		return pterm.LogLevelInfo
	}
}
