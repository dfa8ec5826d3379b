package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors matched with errors.Is against values returned by Client.
var (
	// ErrNetwork indicates no response was received from the backend.
	ErrNetwork = errors.New("backend: service unreachable")
	// ErrUnauthorized indicates the auth token was rejected or has expired.
	ErrUnauthorized = errors.New("backend: unauthorized")
	// ErrForbidden indicates the user lacks permission for the call.
	ErrForbidden = errors.New("backend: forbidden")
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("backend: not found")
	// ErrValidation indicates the backend rejected the submitted payload.
	ErrValidation = errors.New("backend: validation failed")
	// ErrConflict indicates a duplicate or state conflict.
	ErrConflict = errors.New("backend: conflict")
)

// APIError carries a non-2xx response from the backend.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("backend: %s %s: %d %s", e.Method, e.Path, e.Status, msg)
}

// Is maps HTTP status codes onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrValidation:
		return e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity
	case ErrConflict:
		return e.Status == http.StatusConflict
	}
	return false
}

const (
	networkMessage  = "Unable to reach the server. Check your connection and try again."
	fallbackMessage = "Something went wrong. Please try again."
)

// UserMessage converts an error into text safe to show in a banner.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrNetwork) {
		return networkMessage
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status >= 500 {
			return fallbackMessage
		}
		if apiErr.Message != "" {
			return apiErr.Message
		}
		if errors.Is(apiErr, ErrUnauthorized) {
			return "Your session has expired. Please sign in again."
		}
		if errors.Is(apiErr, ErrForbidden) {
			return "You do not have permission to perform this action."
		}
		return http.StatusText(apiErr.Status)
	}
	return fallbackMessage
}

// FieldErrors returns per-field validation messages reported by the backend.
func FieldErrors(err error) map[string]string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && len(apiErr.Fields) > 0 {
		return apiErr.Fields
	}
	return nil
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Errors  json.RawMessage `json:"errors"`
}

func decodeAPIError(method, path string, status int, body []byte) *APIError {
	apiErr := &APIError{Method: method, Path: path, Status: status}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		apiErr.Message = strings.TrimSpace(string(body))
		if len(apiErr.Message) > 200 || strings.HasPrefix(apiErr.Message, "<") {
			apiErr.Message = ""
		}
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(env.Message)
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(env.Error)
	}
	if len(env.Errors) > 0 {
		fields := make(map[string]string)
		if err := json.Unmarshal(env.Errors, &fields); err == nil {
			apiErr.Fields = fields
		} else {
			var list []string
			if err := json.Unmarshal(env.Errors, &list); err == nil && apiErr.Message == "" {
				apiErr.Message = strings.Join(list, "; ")
			}
		}
	}
	return apiErr
}
