package shared

import (
	internalShared "github.com/pumpline-erp/pumpline/internal/shared"
)

// Scope narrows master data to what the signed-in user may see. Zero IDs
// mean unrestricted.
type Scope struct {
	CompanyID int64
	StationID int64
}

// ScopeFor derives the data scope of p's role.
func ScopeFor(p internalShared.Principal) Scope {
	switch p.Role {
	case internalShared.RoleSuperAdmin:
		return Scope{}
	case internalShared.RoleCompanyAdmin:
		return Scope{CompanyID: p.CompanyID}
	default:
		return Scope{CompanyID: p.CompanyID, StationID: p.StationID}
	}
}

// AllowsCompany reports whether records of companyID are visible.
func (s Scope) AllowsCompany(companyID int64) bool {
	return s.CompanyID == 0 || s.CompanyID == companyID
}

// AllowsStation reports whether records of the station are visible.
func (s Scope) AllowsStation(companyID, stationID int64) bool {
	if !s.AllowsCompany(companyID) {
		return false
	}
	return s.StationID == 0 || s.StationID == stationID
}

// Apply forces the scope onto list filters so users cannot widen them.
func (s Scope) Apply(f ListFilters) ListFilters {
	if s.CompanyID != 0 {
		f.CompanyID = s.CompanyID
	}
	if s.StationID != 0 {
		f.StationID = s.StationID
	}
	return f
}
