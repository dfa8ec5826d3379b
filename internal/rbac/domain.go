package rbac

import "github.com/pumpline-erp/pumpline/internal/shared"

// Permission describes one console capability.
type Permission struct {
	Name        string
	Description string
}

// RoleSummary lists the permissions a role is granted.
type RoleSummary struct {
	Role        shared.Role
	Label       string
	Permissions []string
}

var permissionDescriptions = map[string]string{
	shared.PermCompaniesView:   "View companies",
	shared.PermCompaniesManage: "Create, edit and delete companies",
	shared.PermStationsView:    "View stations",
	shared.PermStationsManage:  "Create, edit and delete stations",
	shared.PermUsersView:       "View users",
	shared.PermUsersManage:     "Create, edit and delete users",
	shared.PermSuppliersView:   "View suppliers and supplier accounts",
	shared.PermSuppliersManage: "Create, edit and delete suppliers",
	shared.PermActivityView:    "View and export the activity log",
	shared.PermShiftsView:      "View shifts",
	shared.PermShiftsOpen:      "Open shifts and assign islands",
	shared.PermShiftsClose:     "Run the shift closing wizard",
	shared.PermOffloadsView:    "View fuel offloads",
	shared.PermOffloadsRecord:  "Start and complete fuel offloads",
}
