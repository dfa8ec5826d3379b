package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/pumpline-erp/pumpline/internal/jobs"
	"github.com/pumpline-erp/pumpline/internal/offload"
	"github.com/pumpline-erp/pumpline/internal/platform/backend"
	"github.com/pumpline-erp/pumpline/internal/shifts"
)

var scanNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

type stubShifts struct {
	byStatus map[shifts.Status][]shifts.Shift
	token    string
	err      error
}

func (s *stubShifts) ListShifts(ctx context.Context, stationID int64, status shifts.Status) ([]shifts.Shift, error) {
	s.token = backend.TokenFromContext(ctx)
	if s.err != nil {
		return nil, s.err
	}
	return s.byStatus[status], nil
}

type stubOffloads struct {
	rows   []offload.Offload
	filter offload.Filter
}

func (s *stubOffloads) ListOffloads(ctx context.Context, f offload.Filter) ([]offload.Offload, error) {
	s.filter = f
	return s.rows, nil
}

func newScan(sh *stubShifts, of *stubOffloads) *StaleScanJob {
	job := NewStaleScanJob(sh, of, "svc-token", 18*time.Hour, 6*time.Hour, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	job.clock = func() time.Time { return scanNow }
	return job
}

func TestStaleScanReportsOldWorkflows(t *testing.T) {
	sh := &stubShifts{byStatus: map[shifts.Status][]shifts.Shift{
		shifts.StatusOpen: {
			{ID: 1, StationID: 2, StationName: "Thika Road", Status: shifts.StatusOpen, StartTime: scanNow.Add(-20 * time.Hour)},
			{ID: 2, StationID: 2, Status: shifts.StatusOpen, StartTime: scanNow.Add(-2 * time.Hour)},
		},
		shifts.StatusActive: {
			{ID: 3, StationID: 4, Status: shifts.StatusActive, StartTime: scanNow.Add(-30 * time.Hour)},
		},
	}}
	of := &stubOffloads{rows: []offload.Offload{
		{ID: 5, StationID: 2, Status: offload.StatusStarted, StartedAt: scanNow.Add(-7 * time.Hour)},
		{ID: 6, StationID: 2, Status: offload.StatusStarted, StartedAt: scanNow.Add(-time.Hour)},
		{ID: 7, StationID: 2, Status: offload.StatusCompleted, StartedAt: scanNow.Add(-48 * time.Hour)},
	}}

	report, err := newScan(sh, of).Run(context.Background(), StaleScanPayload{})
	require.NoError(t, err)

	require.Len(t, report.Shifts, 2)
	assert.Equal(t, int64(1), report.Shifts[0].ID)
	assert.Equal(t, int64(3), report.Shifts[1].ID)
	assert.Equal(t, 20*time.Hour, report.Shifts[0].Age)
	require.Len(t, report.Offloads, 1)
	assert.Equal(t, int64(5), report.Offloads[0].ID)

	assert.Equal(t, "svc-token", sh.token)
	assert.Equal(t, offload.StatusStarted, of.filter.Status)
}

func TestStaleScanPayloadOverridesThresholds(t *testing.T) {
	sh := &stubShifts{byStatus: map[shifts.Status][]shifts.Shift{
		shifts.StatusOpen: {{ID: 2, Status: shifts.StatusOpen, StartTime: scanNow.Add(-2 * time.Hour)}},
	}}
	report, err := newScan(sh, &stubOffloads{}).Run(context.Background(), StaleScanPayload{ShiftAfter: time.Hour})
	require.NoError(t, err)
	assert.Len(t, report.Shifts, 1)
}

func TestStaleScanFailsWhenBackendFails(t *testing.T) {
	sh := &stubShifts{err: errors.New("connection refused")}
	_, err := newScan(sh, &stubOffloads{}).Run(context.Background(), StaleScanPayload{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestStaleScanHandleRejectsBadPayload(t *testing.T) {
	job := newScan(&stubShifts{}, &stubOffloads{})
	err := job.Handle(context.Background(), asynq.NewTask(TaskStaleWorkflowScan, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	task, err := NewStaleScanTask(StaleScanPayload{})
	require.NoError(t, err)
	assert.NoError(t, job.Handle(context.Background(), task))
}
