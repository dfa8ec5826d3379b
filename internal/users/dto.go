package users

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/pumpline-erp/pumpline/internal/shared"
)

// UserForm is posted to the backend on create and update. Password is only
// sent when set.
type UserForm struct {
	Name      string      `form:"name" json:"name" validate:"required,max=120"`
	Email     string      `form:"email" json:"email" validate:"required,email,max=120"`
	Phone     string      `form:"phone" json:"phone" validate:"omitempty,phone"`
	Role      shared.Role `form:"role" json:"role" validate:"required,oneof=super_admin company_admin station_manager supervisor"`
	CompanyID int64       `form:"company_id" json:"company_id,omitempty"`
	StationID int64       `form:"station_id" json:"station_id,omitempty"`
	Password  string      `form:"password" json:"password,omitempty" validate:"omitempty,min=8,max=72"`
	IsActive  bool        `form:"is_active" json:"is_active"`
}

func formFromRequest(r *http.Request) UserForm {
	companyID, _ := strconv.ParseInt(r.PostFormValue("company_id"), 10, 64)
	stationID, _ := strconv.ParseInt(r.PostFormValue("station_id"), 10, 64)
	return UserForm{
		Name:      strings.TrimSpace(r.PostFormValue("name")),
		Email:     strings.ToLower(strings.TrimSpace(r.PostFormValue("email"))),
		Phone:     strings.TrimSpace(r.PostFormValue("phone")),
		Role:      shared.Role(strings.TrimSpace(r.PostFormValue("role"))),
		CompanyID: companyID,
		StationID: stationID,
		Password:  r.PostFormValue("password"),
		IsActive:  r.PostFormValue("is_active") != "",
	}
}

func formFromUser(u User) UserForm {
	return UserForm{
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      u.Role,
		CompanyID: u.CompanyID,
		StationID: u.StationID,
		IsActive:  u.IsActive,
	}
}
