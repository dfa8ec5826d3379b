package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoDraft is returned when no draft exists for the session and slot.
var ErrNoDraft = errors.New("wizard: no draft in progress")

// Store keeps in-progress wizard drafts in Redis. All drafts of a browser
// session share one hash so that logout discards them together; the hash
// expires ttl after its last write.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewStore constructs a Store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Store{client: client, ttl: ttl, prefix: "pumpline:wizard:"}
}

// Load decodes the draft stored in slot into out.
func (s *Store) Load(ctx context.Context, sessionID, slot string, out any) error {
	raw, err := s.client.HGet(ctx, s.key(sessionID), slot).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNoDraft
		}
		return fmt.Errorf("wizard: load %s: %w", slot, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("wizard: decode %s: %w", slot, err)
	}
	return nil
}

// Save writes the draft and refreshes the session hash expiry.
func (s *Store) Save(ctx context.Context, sessionID, slot string, draft any) error {
	raw, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("wizard: encode %s: %w", slot, err)
	}
	key := s.key(sessionID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, slot, raw)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("wizard: save %s: %w", slot, err)
	}
	return nil
}

// Clear discards one draft.
func (s *Store) Clear(ctx context.Context, sessionID, slot string) error {
	if err := s.client.HDel(ctx, s.key(sessionID), slot).Err(); err != nil {
		return fmt.Errorf("wizard: clear %s: %w", slot, err)
	}
	return nil
}

// ClearSession discards every draft of a session. Registered as a session
// destroy hook.
func (s *Store) ClearSession(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("wizard: clear session: %w", err)
	}
	return nil
}

// Slots lists the drafts in progress for a session.
func (s *Store) Slots(ctx context.Context, sessionID string) ([]string, error) {
	slots, err := s.client.HKeys(ctx, s.key(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("wizard: list drafts: %w", err)
	}
	return slots, nil
}

func (s *Store) key(sessionID string) string {
	return s.prefix + sessionID
}
