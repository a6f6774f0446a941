package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/district-weather-monitor/internal/domain"
	"github.com/couchcryptid/district-weather-monitor/internal/pipeline"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Monitor is the cycle orchestrator as seen by the API.
type Monitor interface {
	ReadinessChecker
	RunCycle(ctx context.Context) (pipeline.CycleReport, error)
	Status() pipeline.Status
}

// Scheduler controls the polling period.
type Scheduler interface {
	Start(intervalMinutes int)
	Interval() time.Duration
}

// FeedReader reads persisted updates and alerts, newest first.
type FeedReader interface {
	RecentForDistrict(ctx context.Context, districtID string, limit int) ([]domain.Update, error)
	RecentAlerts(ctx context.Context, limit int) ([]domain.Alert, error)
}

// ChartSource fetches a live hourly series for an arbitrary coordinate.
type ChartSource interface {
	FetchChartSeries(ctx context.Context, lat, lon float64) (domain.HourlySeries, error)
}

// Options carries the listen address and response defaults.
type Options struct {
	Addr           string
	AlertFeedLimit int
	ChartPoints    int
}

// Server exposes the presentation API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	opts       Options
	monitor    Monitor
	scheduler  Scheduler
	feed       FeedReader
	weather    ChartSource
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the /api/v1 routes.
func NewServer(opts Options, monitor Monitor, scheduler Scheduler, feed FeedReader, weather ChartSource, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))

	s := &Server{
		httpServer: &http.Server{
			Addr:        opts.Addr,
			Handler:     engine,
			ReadTimeout: 10 * time.Second,
			// A manual refresh runs a whole cycle inside the request.
			WriteTimeout: 2 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		engine:    engine,
		opts:      opts,
		monitor:   monitor,
		scheduler: scheduler,
		feed:      feed,
		weather:   weather,
		logger:    logger,
	}

	engine.GET("/healthz", s.handleHealth)
	engine.GET("/readyz", s.handleReady)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.registerV1Routes()

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.monitor.CheckReadiness(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelDebug
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		logger.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
