package domain

import "sort"

// Authorities granted through profiles.
const (
	RoleAuditor             = "ROLE_AUDITOR"
	RoleProfileManagement   = "ROLE_PROFILE_MANAGEMENT"
	RoleServiceManagement   = "ROLE_SERVICE_MANAGEMENT"
	RoleUserManagement      = "ROLE_USER_MANAGEMENT"
	RoleViewCitizenServices = "ROLE_VIEW_CITIZEN_SERVICES"
	RoleViewHealthServices  = "ROLE_VIEW_HEALTH_SERVICES"
)

var roles = []string{
	RoleUserManagement,
	RoleProfileManagement,
	RoleServiceManagement,
	RoleAuditor,
	RoleViewCitizenServices,
	RoleViewHealthServices,
}

// Roles returns the role catalog sorted by name.
func Roles() []string {
	out := append([]string(nil), roles...)
	sort.Strings(out)
	return out
}

// IsRole reports whether name is part of the catalog.
func IsRole(name string) bool {
	for _, r := range roles {
		if r == name {
			return true
		}
	}
	return false
}
