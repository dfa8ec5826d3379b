package rbac

import (
	"sort"
	"strings"

	"github.com/pumpline-erp/pumpline/internal/shared"
)

// Service answers permission questions from the static role map. The
// backend enforces authorization; the console only uses these answers to
// decide which pages and actions to offer.
type Service struct{}

// NewService constructs a Service.
func NewService() *Service {
	return &Service{}
}

// EffectivePermissions returns the permissions granted to the principal.
func (s *Service) EffectivePermissions(p shared.Principal) []string {
	perms := shared.PermissionsFor(p.Role)
	sort.Strings(perms)
	return perms
}

// ListPermissions returns every known permission ordered by name.
func (s *Service) ListPermissions() []Permission {
	out := make([]Permission, 0, len(permissionDescriptions))
	for name, desc := range permissionDescriptions {
		out = append(out, Permission{Name: name, Description: desc})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListRoles returns each console role with its permissions.
func (s *Service) ListRoles() []RoleSummary {
	roles := []shared.Role{shared.RoleSuperAdmin, shared.RoleCompanyAdmin, shared.RoleStationManager, shared.RoleSupervisor}
	out := make([]RoleSummary, 0, len(roles))
	for _, role := range roles {
		perms := shared.PermissionsFor(role)
		sort.Strings(perms)
		out = append(out, RoleSummary{Role: role, Label: role.Label(), Permissions: perms})
	}
	return out
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	return normalized
}

func hasAnyPermission(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

func hasAllPermissions(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}
