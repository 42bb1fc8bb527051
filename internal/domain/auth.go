package domain

import "strings"

// Role is the closed set of caller roles.
type Role string

const (
	RoleEmployee Role = "Employee"
	RoleManager  Role = "Manager"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleEmployee || r == RoleManager
}

// ParseRole resolves a role name case-insensitively. Unknown names return false.
func ParseRole(name string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "employee":
		return RoleEmployee, true
	case "manager":
		return RoleManager, true
	default:
		return "", false
	}
}

// Principal is the authenticated caller handed to the ticket engine.
type Principal struct {
	Username string
	Role     Role
}
