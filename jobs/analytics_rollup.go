package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/classpulse/classpulse/internal/analytics"
	jobmetrics "github.com/classpulse/classpulse/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// AnalyticsRollupJob rebuilds the cached progress aggregates school by
// school. It bumps the cache version once, then warms the new version
// through per-school service principals.
type AnalyticsRollupJob struct {
	Analytics *analytics.Service
	Cache     *analytics.Cache
	Pool      *pgxpool.Pool
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
}

// NewAnalyticsRollupJob wires dependencies for the rollup handler.
func NewAnalyticsRollupJob(svc *analytics.Service, cache *analytics.Cache, pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *AnalyticsRollupJob {
	return &AnalyticsRollupJob{
		Analytics: svc,
		Cache:     cache,
		Pool:      pool,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes rollup tasks.
func (j *AnalyticsRollupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("analytics rollup: handler not configured")
	}
	var payload AnalyticsRollupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics().Track(TaskAnalyticsRollup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	start := j.now()

	schoolIDs := payload.SchoolIDs
	if len(schoolIDs) == 0 {
		ids, err := j.fetchSchoolIDs(ctx)
		if err != nil {
			resultErr = err
			logger.Error("load rollup schools", slog.Any("error", err))
			return resultErr
		}
		schoolIDs = ids
	}
	if len(schoolIDs) == 0 {
		logger.Info("no schools discovered for rollup")
		return resultErr
	}

	if err := j.Cache.Bump(ctx); err != nil {
		resultErr = err
		logger.Error("bump analytics cache", slog.Any("error", err))
		return resultErr
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, schoolID := range schoolIDs {
		schoolID := schoolID
		g.Go(func() error {
			return j.warmSchool(gctx, schoolID)
		})
	}
	if err := g.Wait(); err != nil {
		resultErr = err
		logger.Error("warm school aggregates", slog.Any("error", err))
		return resultErr
	}

	logger.Info("completed analytics rollup",
		slog.Int("schools", len(schoolIDs)),
		slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *AnalyticsRollupJob) warmSchool(ctx context.Context, schoolID int64) error {
	warmCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	_, err := j.Analytics.Warm(warmCtx, schoolID)
	return err
}

func (j *AnalyticsRollupJob) fetchSchoolIDs(ctx context.Context) ([]int64, error) {
	rows, err := j.Pool.Query(ctx, `SELECT id FROM schools ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (j *AnalyticsRollupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *AnalyticsRollupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *AnalyticsRollupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
