package shared

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ttacon/libphonenumber"
)

// ErrInvalidPhone is returned for numbers libphonenumber rejects.
var ErrInvalidPhone = errors.New("invalid phone number")

// NormalizePhone parses raw in the context of region (ISO 3166 alpha-2,
// used when raw has no +country prefix) and returns it in E.164 form.
func NormalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPhone)
	}
	p, err := libphonenumber.Parse(raw, strings.ToUpper(region))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPhone, err)
	}
	if !libphonenumber.IsValidNumber(p) {
		return "", fmt.Errorf("%w: %s", ErrInvalidPhone, raw)
	}
	return libphonenumber.Format(p, libphonenumber.E164), nil
}

// NewValidator returns a validator with the "phone" tag registered for
// region. Empty strings pass; combine with required when needed.
func NewValidator(region string) *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		raw := fl.Field().String()
		if strings.TrimSpace(raw) == "" {
			return true
		}
		_, err := NormalizePhone(raw, region)
		return err == nil
	})
	return v
}
