package enums

import "fmt"

// StoredRole is the raw role string persisted on users.role.
type StoredRole string

const (
	StoredRoleSuperAdmin StoredRole = "SUPER_ADMIN"
	StoredRoleAdmin      StoredRole = "ADMIN"
	StoredRoleHR         StoredRole = "HR"
	StoredRoleManager    StoredRole = "MANAGER"
	StoredRoleEmployee   StoredRole = "EMPLOYEE"
)

var validStoredRoles = []StoredRole{
	StoredRoleSuperAdmin,
	StoredRoleAdmin,
	StoredRoleHR,
	StoredRoleManager,
	StoredRoleEmployee,
}

func (r StoredRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a role the API accepts on writes.
func (r StoredRole) IsValid() bool {
	for _, candidate := range validStoredRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseStoredRole converts raw input into a StoredRole.
func ParseStoredRole(value string) (StoredRole, error) {
	for _, candidate := range validStoredRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stored role %q", value)
}

// AppRole is the normalized role every authorization decision is made on.
type AppRole string

const (
	AppRoleSuperAdmin AppRole = "super_admin"
	AppRoleCompanyHR  AppRole = "company_hr"
	AppRoleEmployee   AppRole = "employee"
)

func (r AppRole) String() string {
	return string(r)
}

// Rank orders roles from least (1) to most (3) privileged. Unknown values rank 0.
func (r AppRole) Rank() int {
	switch r {
	case AppRoleSuperAdmin:
		return 3
	case AppRoleCompanyHR:
		return 2
	case AppRoleEmployee:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether r is min or more privileged.
func (r AppRole) AtLeast(min AppRole) bool {
	return r.Rank() >= min.Rank() && r.Rank() > 0
}
