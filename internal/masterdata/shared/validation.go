package shared

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	internalShared "github.com/pumpline-erp/pumpline/internal/shared"
)

// NewValidator returns the phone-aware validator. Failures are reported
// under each field's form tag so handlers can show them inline.
func NewValidator(region string) *validator.Validate {
	v := internalShared.NewValidator(region)
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}
