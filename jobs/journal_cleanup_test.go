package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPurger struct {
	got     time.Duration
	removed int64
	err     error
}

func (s *stubPurger) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	s.got = olderThan
	return s.removed, s.err
}

func TestJournalCleanupUsesRetention(t *testing.T) {
	purger := &stubPurger{removed: 7}
	job := NewJournalCleanupJob(purger, 72*time.Hour, nil, nil)

	removed, err := job.Run(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(7), removed)
	assert.Equal(t, 72*time.Hour, purger.got)

	task, err := NewJournalCleanupTask(JournalCleanupPayload{Retention: time.Hour})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, time.Hour, purger.got)
}

func TestJournalCleanupWrapsErrors(t *testing.T) {
	cause := errors.New("pg down")
	job := NewJournalCleanupJob(&stubPurger{err: cause}, time.Hour, nil, nil)

	_, err := job.Run(context.Background(), 0)
	assert.ErrorIs(t, err, cause)
}
