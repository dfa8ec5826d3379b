package suppliers

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pumpline-erp/pumpline/internal/masterdata/shared"
	internalShared "github.com/pumpline-erp/pumpline/internal/shared"
)

func (s *Service) validate(form *SupplierForm) error {
	errs := shared.FieldErrors{}
	if err := shared.ValidationErrors(s.validator.Struct(form)); err != nil {
		if !errors.As(err, &errs) {
			return err
		}
	}

	form.CreditLimit = decimal.Zero
	if raw := strings.ReplaceAll(form.CreditLimitInput, ",", ""); raw != "" {
		limit, err := decimal.NewFromString(raw)
		switch {
		case err != nil:
			errs["credit_limit"] = "Enter an amount"
		case limit.IsNegative():
			errs["credit_limit"] = "Must not be negative"
		default:
			form.CreditLimit = limit
		}
	}

	if form.Phone != "" && errs["phone"] == "" {
		e164, err := internalShared.NormalizePhone(form.Phone, s.region)
		if err != nil {
			errs["phone"] = "Enter a valid phone number"
		} else {
			form.Phone = e164
		}
	}
	return errs.Err()
}
