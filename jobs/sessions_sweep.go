package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/classpulse/classpulse/internal/jobs"
)

// SessionSweeper deletes expired sessions. Satisfied by the auth service.
type SessionSweeper interface {
	SweepSessions(ctx context.Context, now time.Time) (int64, error)
}

// SessionsSweepJob removes expired session records on a schedule.
type SessionsSweepJob struct {
	Sweeper SessionSweeper
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewSessionsSweepJob wires dependencies for the sweep handler.
func NewSessionsSweepJob(sweeper SessionSweeper, logger *slog.Logger, metrics *jobmetrics.Metrics) *SessionsSweepJob {
	return &SessionsSweepJob{
		Sweeper: sweeper,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes sweep tasks.
func (j *SessionsSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Sweeper == nil {
		return errors.New("sessions sweep: handler not configured")
	}

	tracker := j.metrics().Track(TaskSessionsSweep)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	removed, err := j.Sweeper.SweepSessions(ctx, j.now())
	if err != nil {
		resultErr = err
		j.logger().Error("sweep sessions", slog.Any("error", err))
		return resultErr
	}
	j.logger().Info("completed session sweep", slog.Int64("removed", removed))
	return resultErr
}

func (j *SessionsSweepJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *SessionsSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *SessionsSweepJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
