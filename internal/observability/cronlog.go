package observability

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// CronLogger routes robfig/cron's internal logging through slog.
// Cron's chatty schedule/wake messages go to debug.
type CronLogger struct {
	logger *slog.Logger
}

var _ cron.Logger = (*CronLogger)(nil)

func NewCronLogger(logger *slog.Logger) *CronLogger {
	return &CronLogger{logger: logger.With("component", "cron")}
}

func (l *CronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
