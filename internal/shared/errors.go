package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
	// ErrSubmissionInProgress is returned while another request holds the submission lock.
	ErrSubmissionInProgress = errors.New("submission already in progress")
	// ErrAlreadySubmitted is returned when a submission key already succeeded.
	ErrAlreadySubmitted = errors.New("already submitted")
)
