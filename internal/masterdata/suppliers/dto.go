package suppliers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type SupplierForm struct {
	CompanyID        int64           `form:"company_id" json:"company_id" validate:"required"`
	Name             string          `form:"name" json:"name" validate:"required,max=120"`
	ContactPerson    string          `form:"contact_person" json:"contact_person" validate:"max=120"`
	Phone            string          `form:"phone" json:"phone" validate:"omitempty,phone"`
	Email            string          `form:"email" json:"email" validate:"omitempty,email,max=120"`
	Address          string          `form:"address" json:"address" validate:"max=255"`
	PaymentTermsDays int             `form:"payment_terms_days" json:"payment_terms_days" validate:"gte=0,lte=365"`
	CreditLimitInput string          `form:"credit_limit" json:"-" validate:"-"`
	CreditLimit      decimal.Decimal `form:"-" json:"credit_limit" validate:"-"`
	Status           string          `form:"status" json:"status" validate:"required,oneof=active inactive"`
}

func formFromRequest(r *http.Request) SupplierForm {
	companyID, _ := strconv.ParseInt(r.PostFormValue("company_id"), 10, 64)
	terms, _ := strconv.Atoi(strings.TrimSpace(r.PostFormValue("payment_terms_days")))
	return SupplierForm{
		CompanyID:        companyID,
		Name:             strings.TrimSpace(r.PostFormValue("name")),
		ContactPerson:    strings.TrimSpace(r.PostFormValue("contact_person")),
		Phone:            strings.TrimSpace(r.PostFormValue("phone")),
		Email:            strings.ToLower(strings.TrimSpace(r.PostFormValue("email"))),
		Address:          strings.TrimSpace(r.PostFormValue("address")),
		PaymentTermsDays: terms,
		CreditLimitInput: strings.TrimSpace(r.PostFormValue("credit_limit")),
		Status:           strings.TrimSpace(r.PostFormValue("status")),
	}
}

func formFromSupplier(s Supplier) SupplierForm {
	return SupplierForm{
		CompanyID:        s.CompanyID,
		Name:             s.Name,
		ContactPerson:    s.ContactPerson,
		Phone:            s.Phone,
		Email:            s.Email,
		Address:          s.Address,
		PaymentTermsDays: s.PaymentTermsDays,
		CreditLimitInput: s.CreditLimit.StringFixed(2),
		CreditLimit:      s.CreditLimit,
		Status:           s.Status,
	}
}
