package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/stationlink/stationlink/internal/config"
	errwrap "github.com/stationlink/stationlink/internal/errors"
	"github.com/stationlink/stationlink/internal/metrics"
	"github.com/stationlink/stationlink/internal/observability"
	"github.com/stationlink/stationlink/internal/server"
	"github.com/stationlink/stationlink/internal/server/handlers"
	"github.com/stationlink/stationlink/internal/servers"
)

var (
	serverPort int
	serverHost string
)

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

// configHealthChecker ensures a validated configuration is loaded
type configHealthChecker struct{}

func (configHealthChecker) CheckHealth(ctx context.Context) error {
	cfg := config.GetConfig()
	if cfg == nil {
		return errwrap.NewInternalError("configuration not loaded")
	}
	return cfg.Validate()
}

// gameServersHealthChecker degrades health when no configured game server
// answers. It reads through the status cache.
type gameServersHealthChecker struct {
	aggregator *servers.Aggregator
}

func (c gameServersHealthChecker) CheckHealth(ctx context.Context) error {
	list := c.aggregator.Status(ctx)
	if len(list) == 0 {
		return nil
	}
	online := 0
	for _, s := range list {
		if s.State == servers.StateOnline {
			online++
		}
	}
	if online == 0 {
		return fmt.Errorf("none of %d game servers online: %w", len(list), handlers.ErrDegraded)
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API with graceful shutdown support.

Routes:
  GET /v3/server                 aggregated game server status
  GET /v3/discord/patrons        Discord IDs holding the supporter role
  GET /v3/discord/patrons/{id}   whether one Discord user is a supporter
  GET /v3/ratelimits             Discord rate limit bucket state

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Reload and validate config, drop the server status cache

Set server.watch_config to reload automatically when the config file
changes, and cache.warm_schedule to refresh server status on a cron
schedule.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		if err := observability.InitServerLogger(BinaryName, cfg.Logging.Level, BinaryName); err != nil {
			ExitWithCodeStderr(foundry.ExitConfigInvalid, "Failed to initialize server logger", err)
		}
		logger := observability.ServerLogger

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(BinaryName, cfg.Metrics.Port, BinaryName); err != nil {
				logger.Error("Failed to initialize metrics", zap.Error(err))
				return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
			}
		}
		metrics.SetServerStartTime(time.Now().Unix())

		topicClient := newTopicClient(cfg)
		aggregator := newAggregator(cfg, topicClient, servers.WithTTL(cfg.Cache.ServerStatusTTL))
		buckets := newDiscordBuckets(cfg)
		discordClient := newDiscordClient(cfg, buckets)

		logger.Info("Initializing server",
			zap.String("version", versionInfo.Version),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.Bool("metrics_enabled", cfg.Metrics.Enabled),
			zap.Int("metrics_port", observability.GetMetricsPort()),
			zap.Int("game_servers", len(cfg.Servers)),
			zap.Duration("topic_timeout", cfg.TopicTimeout()),
			zap.Bool("discord_configured", cfg.Discord.Token != "" && cfg.Discord.Guild != 0))

		hm := handlers.InitHealthManager(versionInfo.Version)
		hm.RegisterChecker("config", configHealthChecker{})
		hm.RegisterChecker("game_servers", gameServersHealthChecker{aggregator: aggregator})
		if cfg.Metrics.Enabled {
			hm.RegisterChecker("telemetry", telemetryHealthChecker{})
		}

		srv := server.New(cfg.Server.Host, cfg.Server.Port, server.Deps{
			Servers:    aggregator,
			Patrons:    discordClient,
			RateLimits: buckets.All(),
		})
		srv.SetTimeouts(server.Timeouts{
			Read:  cfg.Server.ReadTimeout,
			Write: cfg.Server.WriteTimeout,
			Idle:  cfg.Server.IdleTimeout,
		})

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Shutdown handlers run LIFO: the HTTP server stops first, the logger flushes last
		signals.OnShutdown(func(ctx context.Context) error {
			if err := logger.Sync(); err != nil {
				// Sync errors are often benign (stderr already closed)
				logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			if err := observability.StopMetrics(); err != nil {
				logger.Warn("Metrics exporter did not stop cleanly", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			logger.Info("HTTP server stopped gracefully")
			return nil
		})

		signals.OnReload(func(ctx context.Context) error {
			logger.Info("Received SIGHUP: reloading config")

			if err := viper.ReadInConfig(); err != nil {
				var notFound viper.ConfigFileNotFoundError
				if !errors.As(err, &notFound) {
					logger.Error("Failed to reload config file",
						zap.String("file", viper.ConfigFileUsed()),
						zap.Error(err))
					return errwrap.WrapInternal(ctx, err, "config reload failed")
				}
			}
			if err := applyReload(aggregator); err != nil {
				return errwrap.WrapInternal(ctx, err, "config reload failed")
			}
			return nil
		})

		if cfg.Server.WatchConfig && viper.ConfigFileUsed() != "" {
			viper.OnConfigChange(func(e fsnotify.Event) {
				logger.Info("Config file changed", zap.String("file", e.Name), zap.String("op", e.Op.String()))
				_ = applyReload(aggregator)
			})
			viper.WatchConfig()
		}

		warmer := servers.NewWarmer(aggregator, cfg.Cache.WarmSchedule, cfg.TopicTimeout()*2)
		if err := warmer.Start(cmd.Context()); err != nil {
			return errwrap.WrapInvalidInput(cmd.Context(), err, "invalid cache.warm_schedule")
		}
		signals.OnShutdown(func(ctx context.Context) error {
			warmer.Stop()
			return nil
		})

		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
		}

		errChan := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				logger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "server error")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

// applyReload validates the freshly read settings and drops cached status.
// Server list, Discord credentials and bucket sizes are bound at startup.
func applyReload(aggregator *servers.Aggregator) error {
	logger := observability.ServerLogger
	if _, err := config.Load(viper.GetViper()); err != nil {
		logger.Error("Reloaded config is invalid; keeping previous settings", zap.Error(err))
		return err
	}

	aggregator.Invalidate()
	logger.Info("Configuration reloaded; restart to apply server or Discord changes",
		zap.String("file", viper.ConfigFileUsed()))
	return nil
}
