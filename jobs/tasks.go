package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAnalyticsRollup rebuilds the cached per-school progress
	// aggregates.
	TaskAnalyticsRollup = "analytics:rollup"
	// TaskSessionsSweep deletes expired session records.
	TaskSessionsSweep = "sessions:sweep"
)

// AnalyticsRollupPayload selects which schools to roll up. An empty
// SchoolIDs slice means every school.
type AnalyticsRollupPayload struct {
	SchoolIDs []int64 `json:"school_ids,omitempty"`
}

// NewAnalyticsRollupTask constructs the rollup task.
func NewAnalyticsRollupTask(payload AnalyticsRollupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAnalyticsRollup, data), nil
}

// NewSessionsSweepTask constructs the session sweep task.
func NewSessionsSweepTask() (*asynq.Task, error) {
	return asynq.NewTask(TaskSessionsSweep, nil), nil
}
