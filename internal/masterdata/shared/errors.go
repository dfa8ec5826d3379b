package shared

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pumpline-erp/pumpline/internal/platform/backend"
)

var (
	ErrInvalidID       = errors.New("invalid ID")
	ErrConfirmRequired = errors.New("delete must be confirmed")
	ErrOutOfScope      = errors.New("record is outside your company or station")
)

// FieldErrors maps form field names to messages.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	return "validation failed"
}

// Err returns f as an error, or nil when empty.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return f
}

// ValidationErrors turns validator failures into FieldErrors keyed by the
// struct field's form tag. Other errors pass through.
func ValidationErrors(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := FieldErrors{}
	for _, fe := range verrs {
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "Required"
	case "email":
		return "Enter a valid email address"
	case "phone":
		return "Enter a valid phone number"
	case "max":
		return "Too long (max " + fe.Param() + " characters)"
	case "min":
		return "Too short (min " + fe.Param() + " characters)"
	case "oneof":
		return "Choose one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gt", "gte":
		return "Must be greater than " + fe.Param()
	case "lt", "lte":
		return "Must be at most " + fe.Param()
	}
	return "Invalid value"
}

// FormErrors splits a failed save into inline field messages and a banner
// message for the form page.
func FormErrors(err error) (FieldErrors, string) {
	var fields FieldErrors
	if errors.As(err, &fields) {
		return fields, "Please correct the highlighted fields."
	}
	if errors.Is(err, ErrOutOfScope) {
		return FieldErrors{}, "You can only manage records of your own company."
	}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && len(apiErr.Fields) > 0 {
		out := FieldErrors{}
		for k, v := range apiErr.Fields {
			out[k] = v
		}
		return out, backend.UserMessage(err)
	}
	return FieldErrors{}, backend.UserMessage(err)
}
