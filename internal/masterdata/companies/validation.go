package companies

import (
	"github.com/pumpline-erp/pumpline/internal/masterdata/shared"
	internalShared "github.com/pumpline-erp/pumpline/internal/shared"
)

func (s *Service) validate(form *CompanyForm) error {
	if err := shared.ValidationErrors(s.validator.Struct(form)); err != nil {
		return err
	}
	if form.Phone != "" {
		// Stored in E.164 so the backend sees one spelling per number.
		e164, err := internalShared.NormalizePhone(form.Phone, s.region)
		if err != nil {
			return shared.FieldErrors{"phone": "Enter a valid phone number"}
		}
		form.Phone = e164
	}
	return nil
}
