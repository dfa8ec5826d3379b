package shared

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/blake2b"
)

// Submission statuses recorded in the journal.
const (
	SubmissionPending   = "PENDING"
	SubmissionSucceeded = "SUCCEEDED"
	SubmissionFailed    = "FAILED"
)

// Submission is a journal row.
type Submission struct {
	Key       string
	Module    string
	Subject   string
	Digest    string
	Status    string
	Attempts  int
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SubmissionJournal persists idempotency keys of wizard submissions so that a
// key already accepted by the backend is never posted twice.
type SubmissionJournal struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewSubmissionJournal constructs the journal.
func NewSubmissionJournal(pool *pgxpool.Pool) *SubmissionJournal {
	return &SubmissionJournal{pool: pool, now: time.Now}
}

// Begin claims key for a new attempt. A key whose previous attempt succeeded
// yields ErrAlreadySubmitted; pending or failed keys are re-claimed.
func (j *SubmissionJournal) Begin(ctx context.Context, key, module, subject string, payload any) error {
	if j == nil {
		return errors.New("submission journal not initialised")
	}
	if key == "" {
		return errors.New("submission key required")
	}
	if module == "" {
		return errors.New("submission module required")
	}
	digest, err := Digest(payload)
	if err != nil {
		return err
	}
	now := j.now()
	var status string
	err = j.pool.QueryRow(ctx, `
INSERT INTO submission_journal (key, module, subject, digest, status, attempts, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, 1, $6, $6)
ON CONFLICT (key) DO UPDATE
SET digest = EXCLUDED.digest, status = EXCLUDED.status,
    attempts = submission_journal.attempts + 1, last_error = NULL, updated_at = EXCLUDED.updated_at
WHERE submission_journal.status <> 'SUCCEEDED'
RETURNING status`, key, module, subject, digest, SubmissionPending, now).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAlreadySubmitted
		}
		return fmt.Errorf("journal begin: %w", err)
	}
	return nil
}

// MarkSucceeded records that the backend accepted the submission.
func (j *SubmissionJournal) MarkSucceeded(ctx context.Context, key string) error {
	if j == nil {
		return nil
	}
	_, err := j.pool.Exec(ctx, `UPDATE submission_journal SET status=$2, last_error=NULL, updated_at=$3 WHERE key=$1`,
		key, SubmissionSucceeded, j.now())
	return err
}

// MarkFailed records a rejected attempt so the key can be retried.
func (j *SubmissionJournal) MarkFailed(ctx context.Context, key string, cause error) error {
	if j == nil {
		return nil
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := j.pool.Exec(ctx, `UPDATE submission_journal SET status=$2, last_error=$3, updated_at=$4 WHERE key=$1`,
		key, SubmissionFailed, msg, j.now())
	return err
}

// Get returns the journal row for key.
func (j *SubmissionJournal) Get(ctx context.Context, key string) (Submission, error) {
	var s Submission
	var lastErr *string
	err := j.pool.QueryRow(ctx, `
SELECT key, module, subject, digest, status, attempts, last_error, created_at, updated_at
FROM submission_journal WHERE key=$1`, key).Scan(
		&s.Key, &s.Module, &s.Subject, &s.Digest, &s.Status, &s.Attempts, &lastErr, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Submission{}, ErrNotFound
		}
		return Submission{}, err
	}
	if lastErr != nil {
		s.LastError = *lastErr
	}
	return s, nil
}

// Cleanup removes entries older than retention and returns the number removed.
func (j *SubmissionJournal) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	if j == nil {
		return 0, nil
	}
	cutoff := j.now().Add(-olderThan)
	tag, err := j.pool.Exec(ctx, `DELETE FROM submission_journal WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Digest fingerprints a submission payload with BLAKE2b-256.
func Digest(payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("digest payload: %w", err)
	}
	sum := blake2b.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
