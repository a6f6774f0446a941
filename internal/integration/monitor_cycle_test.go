//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/district-weather-monitor/internal/adapter/http"
	"github.com/couchcryptid/district-weather-monitor/internal/adapter/kafka"
	"github.com/couchcryptid/district-weather-monitor/internal/adapter/openmeteo"
	"github.com/couchcryptid/district-weather-monitor/internal/config"
	"github.com/couchcryptid/district-weather-monitor/internal/domain"
	"github.com/couchcryptid/district-weather-monitor/internal/observability"
	"github.com/couchcryptid/district-weather-monitor/internal/pipeline"
)

const testAlertTopic = "test-district-alerts"

// fakeOpenMeteo serves 24 hourly points per request. Rainfall depends on the
// requested latitude so each district lands in a different risk band.
func fakeOpenMeteo(t *testing.T, rainPerHour map[string]float64, temp float64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rain := rainPerHour[r.URL.Query().Get("latitude")]
		times := make([]string, 24)
		precip := make([]float64, 24)
		temps := make([]float64, 24)
		start := time.Date(2024, time.April, 25, 16, 0, 0, 0, time.UTC)
		for i := range 24 {
			times[i] = start.Add(time.Duration(i) * time.Hour).Format("2006-01-02T15:04")
			precip[i] = rain
			temps[i] = temp
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"hourly": map[string]any{
				"time":                times,
				"precipitation":       precip,
				"temperature_2m":      temps,
				"relativehumidity_2m": temps,
				"windspeed_10m":       temps,
			},
		})
	}))
}

// TestMonitorCycle_EndToEnd runs one cycle against a real database and broker
// with a stubbed weather provider, then reads the results back through the API.
func TestMonitorCycle_EndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	store := startPostgres(ctx, t)
	broker := startKafka(ctx, t)
	createTopic(t, broker, testAlertTopic)

	require.NoError(t, store.UpsertBaselines(ctx, []domain.Baseline{
		{DistrictID: "GAS", Name: "Gasabo", Lat: -1.5, Lon: 30.1, AvgRainfall: f(10), AvgTemperature: f(21)},
		{DistrictID: "KIC", Name: "Kicukiro", Lat: -2, Lon: 30.1, AvgRainfall: f(10), AvgTemperature: f(21)},
		{DistrictID: "NYG", Name: "Nyarugenge", Lat: -2.5, Lon: 30.0, AvgRainfall: f(10), AvgTemperature: f(21)},
	}))

	// Totals over 24h: GAS 48mm (flood, high), KIC 16.8mm (warning, medium), NYG 2.4mm (none).
	weatherSrv := fakeOpenMeteo(t, map[string]float64{"-1.5": 2, "-2": 0.7, "-2.5": 0.1}, 22)
	defer weatherSrv.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	metrics := observability.NewMetricsForTesting()

	client := openmeteo.NewClient(weatherSrv.URL, "UTC", 5*time.Second, metrics, logger)
	charts := openmeteo.NewCachedSource(client, 64, metrics)

	writer := kafka.NewWriter(&config.Config{KafkaBrokers: []string{broker}, KafkaAlertTopic: testAlertTopic}, logger)
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(store, client, store, domain.DefaultThresholds(), logger, metrics, writer)

	report, err := p.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Districts)
	assert.Equal(t, 3, report.Updated)
	assert.Equal(t, 2, report.Alerts)
	assert.Equal(t, 0, report.Failed)
	require.NoError(t, p.CheckReadiness(ctx))

	// Alerts arrive on the feed topic keyed by district.
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testAlertTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	published := map[string]domain.Alert{}
	for range 2 {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read alert from topic")

		var alert domain.Alert
		require.NoError(t, json.Unmarshal(msg.Value, &alert))
		assert.Equal(t, alert.DistrictID, string(msg.Key))
		published[alert.DistrictID] = alert
	}
	require.Contains(t, published, "GAS")
	require.Contains(t, published, "KIC")
	assert.Equal(t, domain.LevelHigh, published["GAS"].Severity)
	assert.Equal(t, domain.LevelMedium, published["KIC"].Severity)

	// The API serves what the cycle persisted.
	sched := pipeline.NewScheduler(ctx, p, logger, metrics)
	srv := httpadapter.NewServer(httpadapter.Options{AlertFeedLimit: 20, ChartPoints: 24}, p, sched, store, charts, logger)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var feed struct {
		Alerts      []domain.Alert `json:"alerts"`
		OverallRisk string         `json:"overall_risk"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &feed))
	assert.Len(t, feed.Alerts, 2)
	assert.Equal(t, "High", feed.OverallRisk)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/districts/NYG/updates", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var updates struct {
		Rainfall []float64 `json:"rainfall"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updates))
	require.Len(t, updates.Rainfall, 1)
	assert.InDelta(t, 2.4, updates.Rainfall[0], 1e-9)
}
