package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pumpline-erp/pumpline/jobs"
)

type stubEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
}

func (s *stubEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	s.tasks = append(s.tasks, task)
	s.opts = append(s.opts, opts)
	return &asynq.TaskInfo{ID: "t-1", Type: task.Type(), Queue: jobs.QueueDefault}, nil
}

func (s *stubEnqueuer) Close() error { return nil }

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) { return s.info, s.err }

func (s stubInspector) ListScheduledTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error) {
	return nil, s.err
}

func (s stubInspector) Close() error { return nil }

func TestTriggerKnownTasks(t *testing.T) {
	enq := &stubEnqueuer{}
	c := &JobsCLI{client: enq}

	info, err := c.Trigger(context.Background(), jobs.TaskStaleWorkflowScan)
	require.NoError(t, err)
	assert.Equal(t, jobs.TaskStaleWorkflowScan, info.Type)

	_, err = c.Trigger(context.Background(), jobs.TaskJournalCleanup)
	require.NoError(t, err)

	require.Len(t, enq.tasks, 2)
	assert.Len(t, enq.opts[0], 3)
	assert.Len(t, enq.opts[1], 2)

	var payload jobs.JournalCleanupPayload
	require.NoError(t, json.Unmarshal(enq.tasks[1].Payload(), &payload))
	assert.Zero(t, payload.Retention)
}

func TestTriggerUnknownTask(t *testing.T) {
	c := &JobsCLI{client: &stubEnqueuer{}}
	_, err := c.Trigger(context.Background(), "inventory:revalue")
	assert.ErrorContains(t, err, "unsupported job")
}

func TestCommandStatsJSON(t *testing.T) {
	c := &JobsCLI{inspector: stubInspector{info: &asynq.QueueInfo{Queue: "default", Pending: 3, Retry: 1}}}
	stdout := new(bytes.Buffer)

	code := c.Command(context.Background(), JobsOptions{Action: "stats", JSONOutput: true, Stdout: stdout, Stderr: new(bytes.Buffer)})
	require.Equal(t, 0, code)
	assert.JSONEq(t, `{"queue":"default","pending":3,"active":0,"scheduled":0,"retry":1}`, stdout.String())
}

func TestCommandStatsError(t *testing.T) {
	c := &JobsCLI{inspector: stubInspector{err: errors.New("redis down")}}
	stderr := new(bytes.Buffer)

	code := c.Command(context.Background(), JobsOptions{Action: "stats", Stdout: new(bytes.Buffer), Stderr: stderr})
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "redis down")
}

func TestCommandTriggerRequiresTask(t *testing.T) {
	c := &JobsCLI{client: &stubEnqueuer{}}
	stderr := new(bytes.Buffer)

	code := c.Command(context.Background(), JobsOptions{Action: "trigger", Stdout: new(bytes.Buffer), Stderr: stderr})
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), jobs.TaskStaleWorkflowScan)
}

func TestCommandTriggerPrintsTaskID(t *testing.T) {
	c := &JobsCLI{client: &stubEnqueuer{}}
	stdout := new(bytes.Buffer)

	code := c.Command(context.Background(), JobsOptions{Action: "trigger", Task: jobs.TaskJournalCleanup, Stdout: stdout, Stderr: new(bytes.Buffer)})
	assert.Equal(t, 0, code)
	assert.Equal(t, "enqueued journal:cleanup as t-1 on default\n", stdout.String())
}

func TestMigrateRequiresDSN(t *testing.T) {
	stderr := new(bytes.Buffer)
	code := MigrateCommand(context.Background(), MigrateOptions{Stdout: new(bytes.Buffer), Stderr: stderr})
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "PG_DSN")
}
