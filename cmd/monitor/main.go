package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/district-weather-monitor/internal/adapter/geojson"
	httpadapter "github.com/couchcryptid/district-weather-monitor/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/district-weather-monitor/internal/adapter/kafka"
	"github.com/couchcryptid/district-weather-monitor/internal/adapter/memory"
	"github.com/couchcryptid/district-weather-monitor/internal/adapter/openmeteo"
	"github.com/couchcryptid/district-weather-monitor/internal/adapter/postgres"
	"github.com/couchcryptid/district-weather-monitor/internal/config"
	"github.com/couchcryptid/district-weather-monitor/internal/domain"
	"github.com/couchcryptid/district-weather-monitor/internal/observability"
	"github.com/couchcryptid/district-weather-monitor/internal/pipeline"
)

// store is what the monitor needs from either persistence backend.
type store interface {
	pipeline.Store
	Ping(ctx context.Context) error
	Close()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, baselines, storeMsg := openStore(ctx, cfg, logger)

	client := openmeteo.NewClient(cfg.OpenMeteoBaseURL, cfg.OpenMeteoTimezone, cfg.OpenMeteoTimeout, metrics, logger)
	weather, charts := weatherSources(client, cfg.WeatherCacheSize, metrics)
	if cfg.WeatherCacheSize > 0 {
		logger.Info("chart weather cache enabled", "cache_size", cfg.WeatherCacheSize)
	}

	var listeners []pipeline.CycleListener
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		listeners = append(listeners, writer)
		logger.Info("kafka alert publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaAlertTopic)
	} else {
		logger.Info("kafka alert publishing disabled")
	}

	p := pipeline.New(baselines, weather, st, cfg.Thresholds, logger, metrics, listeners...)
	p.SetMessage(storeMsg)

	sched := pipeline.NewScheduler(ctx, p, logger, metrics)

	srv := httpadapter.NewServer(
		httpadapter.Options{Addr: cfg.HTTPAddr, AlertFeedLimit: cfg.AlertFeedLimit, ChartPoints: cfg.ChartPoints},
		p, sched, st, charts, logger,
	)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start polling. The first cycle runs immediately.
	sched.Start(cfg.PollIntervalMinutes)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Error("scheduler stop error", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	st.Close()

	logger.Info("shutdown complete")
}

// weatherSources returns the cycle source and the live chart source. Only the
// chart path is cached: every cycle must see a fresh provider window.
func weatherSources(client *openmeteo.Client, cacheSize int, metrics *observability.Metrics) (domain.WeatherSource, httpadapter.ChartSource) {
	if cacheSize <= 0 {
		return client, client
	}
	return client, openmeteo.NewCachedSource(client, cacheSize, metrics)
}

// openStore connects the remote store when DATABASE_URL is set and reachable.
// Otherwise it falls back to process-local storage with synthetic baselines
// generated from the district file.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store, pipeline.BaselineSource, string) {
	if cfg.DatabaseURL != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		pg, err := postgres.New(connectCtx, cfg.DatabaseURL)
		if err == nil {
			err = pg.Ping(connectCtx)
			if err == nil && cfg.DBAutoMigrate {
				err = pg.EnsureSchema(connectCtx)
			}
			if err == nil {
				logger.Info("remote store connected")
				return pg, pg, "Remote store connected"
			}
			pg.Close()
		}
		logger.Warn("remote store unavailable, using in-memory storage", "error", err)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
	}

	baselines := geojson.NewBaselineFile(cfg.DistrictsFile, uint64(time.Now().UnixNano()))
	logger.Info("synthetic baselines enabled", "districts_file", cfg.DistrictsFile)
	return memory.New(), baselines, "Using in-memory storage"
}
