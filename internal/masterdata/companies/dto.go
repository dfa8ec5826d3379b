package companies

import (
	"net/http"
	"strings"
)

// CompanyForm represents the form data for creating/updating a company
type CompanyForm struct {
	Name               string `form:"name" json:"name" validate:"required,max=120"`
	RegistrationNumber string `form:"registration_number" json:"registration_number" validate:"max=50"`
	TaxPIN             string `form:"tax_pin" json:"tax_pin" validate:"max=20"`
	Email              string `form:"email" json:"email" validate:"omitempty,email,max=120"`
	Phone              string `form:"phone" json:"phone" validate:"omitempty,phone"`
	Address            string `form:"address" json:"address" validate:"max=255"`
	Status             string `form:"status" json:"status" validate:"required,oneof=active inactive"`
}

func formFromRequest(r *http.Request) CompanyForm {
	return CompanyForm{
		Name:               strings.TrimSpace(r.PostFormValue("name")),
		RegistrationNumber: strings.TrimSpace(r.PostFormValue("registration_number")),
		TaxPIN:             strings.ToUpper(strings.TrimSpace(r.PostFormValue("tax_pin"))),
		Email:              strings.ToLower(strings.TrimSpace(r.PostFormValue("email"))),
		Phone:              strings.TrimSpace(r.PostFormValue("phone")),
		Address:            strings.TrimSpace(r.PostFormValue("address")),
		Status:             strings.TrimSpace(r.PostFormValue("status")),
	}
}

func formFromCompany(c Company) CompanyForm {
	return CompanyForm{
		Name:               c.Name,
		RegistrationNumber: c.RegistrationNumber,
		TaxPIN:             c.TaxPIN,
		Email:              c.Email,
		Phone:              c.Phone,
		Address:            c.Address,
		Status:             c.Status,
	}
}
