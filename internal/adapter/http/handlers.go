package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/couchcryptid/district-weather-monitor/internal/domain"
	"github.com/couchcryptid/district-weather-monitor/internal/pipeline"
)

const maxLimit = 500

// providerHourLayout is the local-time format Open-Meteo uses for hourly timestamps.
const providerHourLayout = "2006-01-02T15:04"

// registerV1Routes sets up the /api/v1 group.
func (s *Server) registerV1Routes() {
	v1 := s.engine.Group("/api/v1")
	{
		v1.GET("/alerts", s.handleAlerts)
		v1.GET("/districts/:id/updates", s.handleDistrictUpdates)
		v1.GET("/weather", s.handleWeather)
		v1.GET("/status", s.handleStatus)
		v1.POST("/refresh", s.handleRefresh)
		v1.PUT("/schedule", s.handleSchedule)
	}
}

// chartSeries is the oldest-first shape the dashboard charts consume.
type chartSeries struct {
	Labels      []string   `json:"labels"`
	Rainfall    []*float64 `json:"rainfall"`
	Temperature []*float64 `json:"temperature"`
}

// handleAlerts returns the newest alerts and the overall risk across them.
// GET /api/v1/alerts?limit=
func (s *Server) handleAlerts(c *gin.Context) {
	limit, ok := parseLimit(c, s.opts.AlertFeedLimit)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	alerts, err := s.feed.RecentAlerts(ctx, limit)
	if err != nil {
		s.logger.Error("read alert feed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts":       alerts,
		"overall_risk": domain.OverallRisk(alerts),
	})
}

// handleDistrictUpdates returns the district's recent updates as a chart series.
// GET /api/v1/districts/:id/updates?limit=
func (s *Server) handleDistrictUpdates(c *gin.Context) {
	districtID := c.Param("id")
	limit, ok := parseLimit(c, s.opts.ChartPoints)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	recent, err := s.feed.RecentForDistrict(ctx, districtID, limit)
	if err != nil {
		s.logger.Error("read district updates", "district_id", districtID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	updates := domain.OldestFirst(recent)
	series := chartSeries{
		Labels:      make([]string, len(updates)),
		Rainfall:    make([]*float64, len(updates)),
		Temperature: make([]*float64, len(updates)),
	}
	for i, u := range updates {
		series.Labels[i] = u.Timestamp.Format("15:04")
		series.Rainfall[i] = &u.Rainfall
		series.Temperature[i] = &u.Temperature
	}

	c.JSON(http.StatusOK, gin.H{
		"district_id": districtID,
		"labels":      series.Labels,
		"rainfall":    series.Rainfall,
		"temperature": series.Temperature,
		"updates":     updates,
	})
}

// handleWeather fetches a live 24-hour chart series for a coordinate.
// GET /api/v1/weather?lat=&lon=
func (s *Server) handleWeather(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	if errLat != nil || errLon != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lon must be valid coordinates"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	hourly, err := s.weather.FetchChartSeries(ctx, lat, lon)
	if err != nil {
		s.logger.Warn("live chart fetch failed", "latitude", lat, "longitude", lon, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	labels := make([]string, len(hourly.Times))
	for i, t := range hourly.Times {
		labels[i] = hourLabel(t)
	}

	c.JSON(http.StatusOK, gin.H{
		"latitude":    lat,
		"longitude":   lon,
		"labels":      labels,
		"rainfall":    nonNil(hourly.Precipitation),
		"temperature": nonNil(hourly.Temperature),
	})
}

// handleStatus reports the last cycle and the current polling period.
// GET /api/v1/status
func (s *Server) handleStatus(c *gin.Context) {
	status := s.monitor.Status()
	c.JSON(http.StatusOK, gin.H{
		"message":          status.Message,
		"last_cycle":       status.LastCycle,
		"interval_minutes": int(s.scheduler.Interval().Minutes()),
	})
}

// handleRefresh runs one cycle immediately. The cycle is not tied to the
// request context, so a client disconnect does not abandon it halfway.
// POST /api/v1/refresh
func (s *Server) handleRefresh(c *gin.Context) {
	report, err := s.monitor.RunCycle(context.WithoutCancel(c.Request.Context()))

	var loadErr *domain.BaselineLoadError
	switch {
	case errors.Is(err, pipeline.ErrCycleInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &loadErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "report": report})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "report": report})
	default:
		c.JSON(http.StatusOK, gin.H{"report": report, "message": s.monitor.Status().Message})
	}
}

type scheduleRequest struct {
	IntervalMinutes *int `json:"interval_minutes" binding:"required"`
}

// handleSchedule changes the polling period. Values below one minute are raised to one.
// PUT /api/v1/schedule
func (s *Server) handleSchedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "interval_minutes is required"})
		return
	}

	s.scheduler.Start(*req.IntervalMinutes)
	c.JSON(http.StatusOK, gin.H{"interval_minutes": int(s.scheduler.Interval().Minutes())})
}

// parseLimit reads ?limit=, falling back to def and capping at maxLimit. It
// writes a 400 and returns false for a malformed value.
func parseLimit(c *gin.Context, def int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return 0, false
	}
	return min(n, maxLimit), true
}

func hourLabel(t string) string {
	parsed, err := time.Parse(providerHourLayout, t)
	if err != nil {
		return t
	}
	return parsed.Format("15:04")
}

func nonNil(values []*float64) []*float64 {
	if values == nil {
		return []*float64{}
	}
	return values
}
