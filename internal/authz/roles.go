package authz

import (
	"fmt"
	"strings"
)

// Role is the single role an identity holds.
type Role string

const (
	RoleNormal     Role = "normal"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// ParseRole accepts the role names used by the registration form.
// An empty value means the default role.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoleNormal:
		return RoleNormal, nil
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleSuperAdmin:
		return RoleSuperAdmin, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) Valid() bool {
	return r == RoleNormal || r == RoleAdmin || r == RoleSuperAdmin
}

// IsElevated reports whether the role may open the admin dashboard.
func IsElevated(r Role) bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

func IsSuperAdmin(r Role) bool {
	return r == RoleSuperAdmin
}
