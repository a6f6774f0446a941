package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "district_monitor"

// Metrics holds the Prometheus counters, histograms, and gauges for the monitoring pipeline.
type Metrics struct {
	PipelineRunning  prometheus.Gauge
	PollIntervalSecs prometheus.Gauge

	// Cycle metrics.
	Cycles        *prometheus.CounterVec // labels: outcome={completed,baseline_error,interrupted,skipped}
	CycleDuration prometheus.Histogram
	Districts     *prometheus.CounterVec // labels: outcome={ok,fetch_error,store_error,panic}
	AlertsRaised  *prometheus.CounterVec // labels: severity={low,medium,high}
	StoreErrors   *prometheus.CounterVec // labels: op

	// Weather provider metrics.
	FetchDuration prometheus.Histogram
	FetchRequests *prometheus.CounterVec // labels: outcome={success,error,malformed}
	WeatherCache  *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.PipelineRunning,
		m.PollIntervalSecs,
		m.Cycles,
		m.CycleDuration,
		m.Districts,
		m.AlertsRaised,
		m.StoreErrors,
		m.FetchDuration,
		m.FetchRequests,
		m.WeatherCache,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while the scheduler is active, 0 when stopped.",
		}),
		PollIntervalSecs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "poll_interval_seconds",
			Help:      "Current polling period of the scheduler.",
		}),
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Pipeline cycles by outcome.",
		}, []string{"outcome"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a complete fetch-aggregate-detect-persist cycle.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		Districts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "districts_processed_total",
			Help:      "Per-district sub-pipeline runs by outcome.",
		}, []string{"outcome"}),
		AlertsRaised: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alerts persisted by severity.",
		}, []string{"severity"}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Store failures by operation.",
		}, []string{"op"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "weather_fetch_duration_seconds",
			Help:      "Open-Meteo request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_fetch_requests_total",
			Help:      "Open-Meteo requests by outcome.",
		}, []string{"outcome"}),
		WeatherCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_cache_total",
			Help:      "Weather series cache lookups by result.",
		}, []string{"result"}),
	}
}
