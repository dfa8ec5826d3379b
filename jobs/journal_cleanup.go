package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/pumpline-erp/pumpline/internal/jobs"
)

// JournalPurger removes journal rows untouched for longer than olderThan.
type JournalPurger interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// JournalCleanupJob enforces submission journal retention.
type JournalCleanupJob struct {
	Journal   JournalPurger
	Retention time.Duration
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewJournalCleanupJob initialises the cleanup handler.
func NewJournalCleanupJob(journal JournalPurger, retention time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *JournalCleanupJob {
	return &JournalCleanupJob{Journal: journal, Retention: retention, Logger: logger, Metrics: metrics}
}

// Handle executes TaskJournalCleanup.
func (j *JournalCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Journal == nil {
		return errors.New("journal cleanup: handler not configured")
	}
	var payload JournalCleanupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	_, err := j.Run(ctx, payload.Retention)
	return err
}

// Run purges rows older than retention, falling back to the configured value.
func (j *JournalCleanupJob) Run(ctx context.Context, retention time.Duration) (removed int64, err error) {
	tracker := j.Metrics.Track(TaskJournalCleanup)
	defer func() {
		err = tracker.End(err)
	}()
	retention = pick(retention, j.Retention, 30*24*time.Hour)

	removed, err = j.Journal.Cleanup(ctx, retention)
	if err != nil {
		return 0, fmt.Errorf("journal cleanup: %w", err)
	}
	j.Metrics.AddPurged(removed)
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("journal cleanup finished", slog.Int64("removed", removed), slog.Duration("retention", retention))
	return removed, nil
}
