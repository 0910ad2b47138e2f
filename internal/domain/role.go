package domain

import (
	"fmt"
	"strings"
)

// Role enumerates account roles. The zero value is not a valid role.
type Role string

const (
	RoleUser     Role = "user"
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

// Capability names an action gated by role.
type Capability int

const (
	// CapViewAllComplaints allows reading complaints owned by anyone.
	CapViewAllComplaints Capability = iota + 1
	// CapTransitionComplaints allows changing a complaint's status.
	CapTransitionComplaints
)

var roleCapabilities = map[Role]map[Capability]bool{
	RoleUser: {},
	RoleEmployee: {
		CapViewAllComplaints:    true,
		CapTransitionComplaints: true,
	},
	RoleAdmin: {
		CapViewAllComplaints:    true,
		CapTransitionComplaints: true,
	},
}

// Can is the single authorization check. Unknown roles have no capabilities.
func (r Role) Can(c Capability) bool {
	return roleCapabilities[r][c]
}

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

// ParseRole converts a stored or user supplied value into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}
