package stations

import (
	"net/http"
	"strconv"
	"strings"
)

type StationForm struct {
	CompanyID   int64  `form:"company_id" json:"company_id" validate:"required"`
	Code        string `form:"code" json:"code" validate:"required,max=20"`
	Name        string `form:"name" json:"name" validate:"required,max=120"`
	Location    string `form:"location" json:"location" validate:"max=255"`
	Phone       string `form:"phone" json:"phone" validate:"omitempty,phone"`
	ManagerName string `form:"manager_name" json:"manager_name" validate:"max=120"`
	Status      string `form:"status" json:"status" validate:"required,oneof=active inactive"`
}

func formFromRequest(r *http.Request) StationForm {
	companyID, _ := strconv.ParseInt(r.PostFormValue("company_id"), 10, 64)
	return StationForm{
		CompanyID:   companyID,
		Code:        strings.ToUpper(strings.TrimSpace(r.PostFormValue("code"))),
		Name:        strings.TrimSpace(r.PostFormValue("name")),
		Location:    strings.TrimSpace(r.PostFormValue("location")),
		Phone:       strings.TrimSpace(r.PostFormValue("phone")),
		ManagerName: strings.TrimSpace(r.PostFormValue("manager_name")),
		Status:      strings.TrimSpace(r.PostFormValue("status")),
	}
}

func formFromStation(s Station) StationForm {
	return StationForm{
		CompanyID:   s.CompanyID,
		Code:        s.Code,
		Name:        s.Name,
		Location:    s.Location,
		Phone:       s.Phone,
		ManagerName: s.ManagerName,
		Status:      s.Status,
	}
}
