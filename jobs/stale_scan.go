package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/pumpline-erp/pumpline/internal/jobs"
	"github.com/pumpline-erp/pumpline/internal/offload"
	"github.com/pumpline-erp/pumpline/internal/platform/backend"
	"github.com/pumpline-erp/pumpline/internal/shifts"
)

// ShiftLister lists shifts in a given state.
type ShiftLister interface {
	ListShifts(ctx context.Context, stationID int64, status shifts.Status) ([]shifts.Shift, error)
}

// OffloadLister lists offloads.
type OffloadLister interface {
	ListOffloads(ctx context.Context, f offload.Filter) ([]offload.Offload, error)
}

// StaleItem is one workflow left unfinished past its threshold.
type StaleItem struct {
	Kind      string
	ID        int64
	StationID int64
	Station   string
	Since     time.Time
	Age       time.Duration
}

// StaleReport is the outcome of one scan.
type StaleReport struct {
	Shifts   []StaleItem
	Offloads []StaleItem
}

// StaleScanJob finds shifts left open and offloads started but never
// completed. It only reports; nothing on the backend is changed.
type StaleScanJob struct {
	Shifts       ShiftLister
	Offloads     OffloadLister
	Token        string
	ShiftAfter   time.Duration
	OffloadAfter time.Duration
	Logger       *slog.Logger
	Metrics      *jobmetrics.Metrics
	clock        func() time.Time
}

// NewStaleScanJob initialises the scan. token is the backend service token
// used outside of any user session.
func NewStaleScanJob(shiftLister ShiftLister, offloadLister OffloadLister, token string, shiftAfter, offloadAfter time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *StaleScanJob {
	return &StaleScanJob{
		Shifts:       shiftLister,
		Offloads:     offloadLister,
		Token:        token,
		ShiftAfter:   shiftAfter,
		OffloadAfter: offloadAfter,
		Logger:       logger,
		Metrics:      metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes TaskStaleWorkflowScan.
func (j *StaleScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("stale scan: handler not configured")
	}
	var payload StaleScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	_, err := j.Run(ctx, payload)
	return err
}

// Run performs one scan and logs every stale workflow.
func (j *StaleScanJob) Run(ctx context.Context, payload StaleScanPayload) (report StaleReport, err error) {
	tracker := j.Metrics.Track(TaskStaleWorkflowScan)
	defer func() {
		err = tracker.End(err)
	}()

	shiftAfter := pick(payload.ShiftAfter, j.ShiftAfter, 18*time.Hour)
	offloadAfter := pick(payload.OffloadAfter, j.OffloadAfter, 6*time.Hour)
	now := j.now()
	ctx = backend.WithToken(ctx, j.Token)

	var open, active []shifts.Shift
	var started []offload.Offload
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		open, err = j.Shifts.ListShifts(gctx, 0, shifts.StatusOpen)
		return err
	})
	g.Go(func() error {
		var err error
		active, err = j.Shifts.ListShifts(gctx, 0, shifts.StatusActive)
		return err
	})
	g.Go(func() error {
		var err error
		started, err = j.Offloads.ListOffloads(gctx, offload.Filter{Status: offload.StatusStarted})
		return err
	})
	if err = g.Wait(); err != nil {
		j.logger().Error("stale scan failed", slog.Any("error", err))
		return StaleReport{}, fmt.Errorf("stale scan: %w", err)
	}

	for _, s := range append(open, active...) {
		if s.Closed() || s.StartTime.IsZero() {
			continue
		}
		if age := now.Sub(s.StartTime); age > shiftAfter {
			report.Shifts = append(report.Shifts, StaleItem{Kind: "shift", ID: s.ID, StationID: s.StationID, Station: s.StationName, Since: s.StartTime, Age: age})
		}
	}
	for _, o := range started {
		if o.Completed() || o.StartedAt.IsZero() {
			continue
		}
		if age := now.Sub(o.StartedAt); age > offloadAfter {
			report.Offloads = append(report.Offloads, StaleItem{Kind: "offload", ID: o.ID, StationID: o.StationID, Station: o.StationName, Since: o.StartedAt, Age: age})
		}
	}

	logger := j.logger()
	for _, item := range append(report.Shifts, report.Offloads...) {
		logger.Warn("stale workflow",
			slog.String("kind", item.Kind),
			slog.Int64("id", item.ID),
			slog.Int64("station_id", item.StationID),
			slog.String("station", item.Station),
			slog.Duration("age", item.Age.Round(time.Minute)),
		)
	}
	j.Metrics.SetStale("shift", len(report.Shifts))
	j.Metrics.SetStale("offload", len(report.Offloads))
	logger.Info("stale scan finished", slog.Int("shifts", len(report.Shifts)), slog.Int("offloads", len(report.Offloads)))
	return report, nil
}

func (j *StaleScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *StaleScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func pick(values ...time.Duration) time.Duration {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
