package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStaleWorkflowScan reports open shifts and started offloads that
	// were never finished.
	TaskStaleWorkflowScan = "workflow:stale_scan"
	// TaskJournalCleanup purges old submission journal rows.
	TaskJournalCleanup = "journal:cleanup"
)

// StaleScanPayload overrides the configured thresholds for one run. Zero
// values keep the job defaults.
type StaleScanPayload struct {
	ShiftAfter   time.Duration `json:"shift_after,omitempty"`
	OffloadAfter time.Duration `json:"offload_after,omitempty"`
}

// NewStaleScanTask constructs the scan task.
func NewStaleScanTask(payload StaleScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStaleWorkflowScan, data), nil
}

// JournalCleanupPayload overrides the retention for one run.
type JournalCleanupPayload struct {
	Retention time.Duration `json:"retention,omitempty"`
}

// NewJournalCleanupTask constructs the cleanup task.
func NewJournalCleanupTask(payload JournalCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskJournalCleanup, data), nil
}
