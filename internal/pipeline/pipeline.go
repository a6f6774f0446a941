package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/district-weather-monitor/internal/domain"
	"github.com/couchcryptid/district-weather-monitor/internal/observability"
)

// ErrCycleInProgress is returned by RunCycle when another cycle holds the guard.
var ErrCycleInProgress = errors.New("cycle already in progress")

// BaselineSource loads the per-district baselines a cycle iterates over.
type BaselineSource interface {
	LoadBaselines(ctx context.Context) ([]domain.Baseline, error)
}

// Store persists observation updates and alerts. Reads return newest first.
type Store interface {
	AppendUpdate(ctx context.Context, u domain.Update) error
	AppendAlert(ctx context.Context, a domain.Alert) error
	RecentForDistrict(ctx context.Context, districtID string, limit int) ([]domain.Update, error)
	RecentAlerts(ctx context.Context, limit int) ([]domain.Alert, error)
}

// CycleListener is notified once per completed cycle with the alerts that were persisted.
type CycleListener interface {
	CycleCompleted(ctx context.Context, report CycleReport, alerts []domain.Alert) error
}

// CycleReport summarizes one pass over every district.
type CycleReport struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Districts  int       `json:"districts"`
	Updated    int       `json:"updated"`
	Alerts     int       `json:"alerts"`
	Failed     int       `json:"failed"`
}

// Status is what the presentation layer shows about the most recent cycle.
type Status struct {
	Message   string       `json:"message"`
	LastCycle *CycleReport `json:"last_cycle,omitempty"`
}

// Pipeline orchestrates fetch, aggregate, detect and persist for every district.
type Pipeline struct {
	baselines  BaselineSource
	weather    domain.WeatherSource
	store      Store
	thresholds domain.Thresholds
	listeners  []CycleListener
	logger     *slog.Logger
	metrics    *observability.Metrics

	running sync.Mutex // held for the duration of a cycle
	ready   atomic.Bool

	mu     sync.RWMutex
	status Status
}

// New creates a Pipeline with the given collaborators and observability.
func New(
	baselines BaselineSource,
	weather domain.WeatherSource,
	store Store,
	thresholds domain.Thresholds,
	logger *slog.Logger,
	metrics *observability.Metrics,
	listeners ...CycleListener,
) *Pipeline {
	return &Pipeline{
		baselines:  baselines,
		weather:    weather,
		store:      store,
		thresholds: thresholds,
		listeners:  listeners,
		logger:     logger,
		metrics:    metrics,
		status:     Status{Message: "Waiting for first cycle"},
	}
}

// CheckReadiness returns nil once at least one cycle has completed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a cycle yet")
	}
	return nil
}

// Status returns the latest status message and cycle report.
func (p *Pipeline) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := p.status
	if s.LastCycle != nil {
		r := *s.LastCycle
		s.LastCycle = &r
	}
	return s
}

// SetMessage replaces the status message without touching the last report.
func (p *Pipeline) SetMessage(msg string) {
	p.mu.Lock()
	p.status.Message = msg
	p.mu.Unlock()
}

// RunCycle performs one full pass. Per-district failures are logged and
// counted in the report; only a baseline load failure or shutdown returns an
// error. A call made while another cycle is running returns ErrCycleInProgress
// without doing any work.
func (p *Pipeline) RunCycle(ctx context.Context) (CycleReport, error) {
	if !p.running.TryLock() {
		p.metrics.Cycles.WithLabelValues("skipped").Inc()
		return CycleReport{}, ErrCycleInProgress
	}
	defer p.running.Unlock()

	start := time.Now()
	report := CycleReport{StartedAt: domain.Now()}

	baselines, err := p.baselines.LoadBaselines(ctx)
	if err != nil {
		err = &domain.BaselineLoadError{Err: err}
		p.logger.Error("baseline query failed", "error", err)
		report.FinishedAt = domain.Now()
		p.setStatus(report, "Baseline query failed")
		p.metrics.Cycles.WithLabelValues("baseline_error").Inc()
		return report, err
	}

	report.Districts = len(baselines)
	var alerts []domain.Alert

	for _, b := range baselines {
		if ctx.Err() != nil {
			break
		}

		res := p.processDistrict(ctx, b)
		p.metrics.Districts.WithLabelValues(res.outcome).Inc()

		if res.updated {
			report.Updated++
		}
		if res.alert != nil {
			report.Alerts++
			alerts = append(alerts, *res.alert)
			p.metrics.AlertsRaised.WithLabelValues(res.alert.Severity.String()).Inc()
		}
		if res.err != nil {
			report.Failed++
			p.logger.Warn("district skipped",
				"district_id", b.DistrictID,
				"outcome", res.outcome,
				"error", res.err,
			)
		}
	}

	report.FinishedAt = domain.Now()
	p.metrics.CycleDuration.Observe(time.Since(start).Seconds())

	if err := ctx.Err(); err != nil {
		p.setStatus(report, "Cycle interrupted")
		p.metrics.Cycles.WithLabelValues("interrupted").Inc()
		return report, err
	}

	p.setStatus(report, "Last updated "+report.FinishedAt.Format(time.TimeOnly))
	p.ready.Store(true)
	p.metrics.Cycles.WithLabelValues("completed").Inc()

	p.logger.Info("cycle completed",
		"districts", report.Districts,
		"updated", report.Updated,
		"alerts", report.Alerts,
		"failed", report.Failed,
		"duration", time.Since(start),
	)

	p.notify(ctx, report, alerts)
	return report, nil
}

type districtResult struct {
	outcome string
	updated bool
	alert   *domain.Alert
	err     error
}

// processDistrict runs fetch, aggregate, persist and detect for one district.
// A panic is recovered so it cannot abort the rest of the cycle.
func (p *Pipeline) processDistrict(ctx context.Context, b domain.Baseline) (res districtResult) {
	defer func() {
		if r := recover(); r != nil {
			res = districtResult{outcome: "panic", err: fmt.Errorf("panic: %v", r)}
		}
	}()

	series, err := p.weather.FetchHourly(ctx, b.Lat, b.Lon)
	if err != nil {
		return districtResult{outcome: "fetch_error", err: err}
	}

	summary := domain.Aggregate(series, domain.Now())
	res.outcome = "ok"

	if err := p.store.AppendUpdate(ctx, domain.NewUpdate(b.DistrictID, summary)); err != nil {
		p.metrics.StoreErrors.WithLabelValues("append_update").Inc()
		res.outcome = "store_error"
		res.err = err
	} else {
		res.updated = true
	}

	alert, ok := p.thresholds.Detect(b, summary)
	if !ok {
		return res
	}

	if err := p.store.AppendAlert(ctx, alert); err != nil {
		p.metrics.StoreErrors.WithLabelValues("append_alert").Inc()
		res.outcome = "store_error"
		res.err = errors.Join(res.err, err)
		return res
	}
	res.alert = &alert
	return res
}

func (p *Pipeline) notify(ctx context.Context, report CycleReport, alerts []domain.Alert) {
	for _, l := range p.listeners {
		if err := l.CycleCompleted(ctx, report, alerts); err != nil {
			p.logger.Error("cycle listener failed", "error", err, "alerts", len(alerts))
		}
	}
}

func (p *Pipeline) setStatus(report CycleReport, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = Status{Message: msg, LastCycle: &report}
}
