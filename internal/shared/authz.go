package shared

import "strings"

// Role is the console role carried in the backend token.
type Role string

// Console roles, from widest to narrowest scope.
const (
	RoleSuperAdmin     Role = "super_admin"
	RoleCompanyAdmin   Role = "company_admin"
	RoleStationManager Role = "station_manager"
	RoleSupervisor     Role = "supervisor"
)

// ParseRole normalises backend spellings such as "SUPER_ADMIN" or "station-manager".
func ParseRole(raw string) Role {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	switch Role(normalized) {
	case RoleSuperAdmin, RoleCompanyAdmin, RoleStationManager, RoleSupervisor:
		return Role(normalized)
	case "superadmin", "admin":
		return RoleSuperAdmin
	case "manager":
		return RoleStationManager
	}
	return ""
}

// Label returns the display name of the role.
func (r Role) Label() string {
	switch r {
	case RoleSuperAdmin:
		return "Super Admin"
	case RoleCompanyAdmin:
		return "Company Admin"
	case RoleStationManager:
		return "Station Manager"
	case RoleSupervisor:
		return "Supervisor"
	}
	return "Unknown"
}

// Console permissions. The backend remains the authority; these only decide
// which pages and actions are offered.
const (
	PermCompaniesView   = "companies.view"
	PermCompaniesManage = "companies.manage"
	PermStationsView    = "stations.view"
	PermStationsManage  = "stations.manage"
	PermUsersView       = "users.view"
	PermUsersManage     = "users.manage"
	PermSuppliersView   = "suppliers.view"
	PermSuppliersManage = "suppliers.manage"
	PermActivityView    = "activity.view"
	PermShiftsView      = "shifts.view"
	PermShiftsOpen      = "shifts.open"
	PermShiftsClose     = "shifts.close"
	PermOffloadsView    = "offloads.view"
	PermOffloadsRecord  = "offloads.record"
)

var rolePermissions = map[Role][]string{
	RoleSuperAdmin: {
		PermCompaniesView, PermCompaniesManage,
		PermStationsView, PermStationsManage,
		PermUsersView, PermUsersManage,
		PermSuppliersView,
		PermActivityView,
		PermShiftsView,
		PermOffloadsView,
	},
	RoleCompanyAdmin: {
		PermStationsView, PermStationsManage,
		PermUsersView, PermUsersManage,
		PermSuppliersView, PermSuppliersManage,
		PermActivityView,
		PermShiftsView,
		PermOffloadsView,
	},
	RoleStationManager: {
		PermStationsView,
		PermUsersView,
		PermSuppliersView,
		PermActivityView,
		PermShiftsView, PermShiftsOpen, PermShiftsClose,
		PermOffloadsView, PermOffloadsRecord,
	},
	RoleSupervisor: {
		PermShiftsView, PermShiftsClose,
		PermOffloadsView, PermOffloadsRecord,
	},
}

// PermissionsFor lists the permissions granted to role.
func PermissionsFor(role Role) []string {
	return append([]string(nil), rolePermissions[role]...)
}

// RoleHas reports whether role grants perm.
func RoleHas(role Role, perm string) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}
