package users

import (
	"errors"
	"time"

	"github.com/pumpline-erp/pumpline/internal/shared"
)

// ErrSelfDelete guards against removing the signed-in account.
var ErrSelfDelete = errors.New("users: cannot delete your own account")

// User represents a console user account.
type User struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Phone       string      `json:"phone"`
	Role        shared.Role `json:"role"`
	CompanyID   int64       `json:"company_id"`
	CompanyName string      `json:"company_name"`
	StationID   int64       `json:"station_id"`
	StationName string      `json:"station_name"`
	IsActive    bool        `json:"is_active"`
	LastLoginAt *time.Time  `json:"last_login_at"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Status is the list filter value of the account.
func (u User) Status() string {
	if u.IsActive {
		return "active"
	}
	return "inactive"
}

// NeedsStation reports roles that work at a single station.
func NeedsStation(role shared.Role) bool {
	return role == shared.RoleStationManager || role == shared.RoleSupervisor
}

// AssignableRoles lists the roles actor may give to other users.
func AssignableRoles(actor shared.Role) []shared.Role {
	switch actor {
	case shared.RoleSuperAdmin:
		return []shared.Role{shared.RoleSuperAdmin, shared.RoleCompanyAdmin, shared.RoleStationManager, shared.RoleSupervisor}
	case shared.RoleCompanyAdmin:
		return []shared.Role{shared.RoleCompanyAdmin, shared.RoleStationManager, shared.RoleSupervisor}
	}
	return nil
}

func canAssign(actor, role shared.Role) bool {
	for _, r := range AssignableRoles(actor) {
		if r == role {
			return true
		}
	}
	return false
}
