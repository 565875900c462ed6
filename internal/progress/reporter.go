package progress

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vertexide/vertex/backend/internal/infrastructure/monitoring"
	"github.com/vertexide/vertex/backend/internal/logging"
)

// Reporter wraps a task with a user-visible label, reporting start and stop
// to whatever surface renders progress. The wrapped result passes through
// untouched.
type Reporter interface {
	Do(ctx context.Context, label string, fn func(ctx context.Context) error) error
}

// LogReporter reports task progress through structured logs and records
// task outcomes in Prometheus when a metrics collector is attached.
type LogReporter struct {
	log     *logging.Logger
	metrics *monitoring.Metrics
}

// NewLogReporter creates a reporter. metrics may be nil.
func NewLogReporter(log *logging.Logger, metrics *monitoring.Metrics) *LogReporter {
	return &LogReporter{log: log, metrics: metrics}
}

// Do runs fn, logging task start/stop with a correlating task id.
func (r *LogReporter) Do(ctx context.Context, label string, fn func(ctx context.Context) error) error {
	taskID := uuid.New().String()
	start := time.Now()

	r.log.Debug("task started",
		zap.String("task_id", taskID),
		zap.String("label", label))

	err := fn(ctx)
	duration := time.Since(start)

	status := "ok"
	switch {
	case ctx.Err() != nil:
		status = "cancelled"
	case err != nil:
		status = "error"
	}

	if r.metrics != nil {
		r.metrics.RecordTask(label, status, duration)
	}

	r.log.Debug("task finished",
		zap.String("task_id", taskID),
		zap.String("label", label),
		zap.String("status", status),
		zap.Duration("duration", duration))

	return err
}

// Nop is a reporter that only passes the task through. Useful in tests.
type Nop struct{}

// Do runs fn without reporting.
func (Nop) Do(ctx context.Context, label string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
