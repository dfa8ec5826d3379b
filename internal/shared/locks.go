package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ShiftCloseLockKey builds the redis key guarding a shift finalization.
func ShiftCloseLockKey(shiftID int64) string {
	return fmt.Sprintf("pumpline:shift:%d:close", shiftID)
}

// OffloadLockKey builds the redis key guarding an offload phase submission.
func OffloadLockKey(phase string, ref string) string {
	return fmt.Sprintf("pumpline:offload:%s:%s", phase, ref)
}

// Locker hands out short-lived redis locks around submissions.
type Locker struct {
	client *redislock.Client
	ttl    time.Duration
}

// NewLocker constructs a Locker. ttl bounds how long a crashed holder blocks others.
func NewLocker(rdb *redis.Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Locker{client: redislock.New(rdb), ttl: ttl}
}

// WithLock runs fn while holding key. A held key yields ErrSubmissionInProgress.
func (l *Locker) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	if l == nil {
		return fn(ctx)
	}
	lock, err := l.client.Obtain(ctx, key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return ErrSubmissionInProgress
	}
	if err != nil {
		return fmt.Errorf("obtain lock %s: %w", key, err)
	}
	defer func() {
		// Release uses a fresh context so a cancelled request still frees the key.
		_ = lock.Release(context.Background())
	}()
	return fn(ctx)
}
