package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/couchcryptid/district-weather-monitor/internal/observability"
)

// CycleRunner is the unit of work the scheduler repeats.
type CycleRunner interface {
	RunCycle(ctx context.Context) (CycleReport, error)
}

// Scheduler repeats a CycleRunner on a fixed period. The period can be
// changed at runtime; the old schedule is removed before the new one is
// added, so there is never more than one active entry.
type Scheduler struct {
	ctx     context.Context
	runner  CycleRunner
	logger  *slog.Logger
	metrics *observability.Metrics

	cron *cron.Cron
	job  cron.Job // shared across entries so ticks never overlap after a reschedule

	mu       sync.Mutex
	entry    cron.EntryID
	interval time.Duration
	started  bool
	startup  sync.WaitGroup
}

// NewScheduler creates a stopped scheduler. Cycles run with ctx, which should
// be cancelled on shutdown.
func NewScheduler(ctx context.Context, runner CycleRunner, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	cronLogger := observability.NewCronLogger(logger)
	s := &Scheduler{
		ctx:     ctx,
		runner:  runner,
		logger:  logger,
		metrics: metrics,
		cron:    cron.New(cron.WithLogger(cronLogger)),
	}
	s.job = cron.NewChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)).Then(cron.FuncJob(s.tick))
	return s
}

// Start schedules a cycle every intervalMinutes (coerced to at least 1). The
// first call also runs one cycle immediately. Later calls only replace the
// period; a cycle already running is not interrupted.
func (s *Scheduler) Start(intervalMinutes int) {
	interval := time.Duration(max(1, intervalMinutes)) * time.Minute

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entry != 0 {
		s.cron.Remove(s.entry)
	}
	s.entry = s.cron.Schedule(cron.Every(interval), s.job)
	s.interval = interval
	s.metrics.PollIntervalSecs.Set(interval.Seconds())

	if s.started {
		s.logger.Info("poll interval changed", "interval", interval)
		return
	}

	s.started = true
	s.cron.Start()
	s.metrics.PipelineRunning.Set(1)
	s.logger.Info("scheduler started", "interval", interval)

	s.startup.Add(1)
	go func() {
		defer s.startup.Done()
		s.job.Run()
	}()
}

// Interval returns the current period, or 0 before Start.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Stop halts future ticks and waits for a running cycle to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.cron.Remove(s.entry)
	s.entry = 0
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		<-s.cron.Stop().Done()
		s.startup.Wait()
		close(done)
	}()

	defer s.metrics.PipelineRunning.Set(0)
	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) tick() {
	report, err := s.runner.RunCycle(s.ctx)
	switch {
	case errors.Is(err, ErrCycleInProgress):
		s.logger.Debug("tick skipped, cycle in progress")
	case err != nil && s.ctx.Err() != nil:
		s.logger.Info("cycle interrupted by shutdown", "updated", report.Updated)
	case err != nil:
		s.logger.Error("cycle failed", "error", err)
	}
}

func (s *Scheduler) entries() []cron.Entry {
	return s.cron.Entries()
}
