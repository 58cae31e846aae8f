// Package ir defines the decoded method representation consumed by the
// restructuring pipeline: variables, expressions, statements, basic blocks
// and exception ranges.
package ir

import "fmt"

// Role describes where a variable comes from
type Role int

const (
	RoleLocal Role = iota
	RoleParameter
	RoleThis
)

// String returns the role name
func (r Role) String() string {
	switch r {
	case RoleLocal:
		return "local"
	case RoleParameter:
		return "parameter"
	case RoleThis:
		return "this"
	default:
		return "unknown"
	}
}

// Variable is a register or local identity. Two variables are the same
// variable when their IDs are equal.
type Variable struct {
	ID    int
	Role  Role
	Index int // parameter position for RoleParameter
	Name  string
	Type  string
}

// String returns the source name of the variable
func (v *Variable) String() string {
	if v == nil {
		return "<nil>"
	}
	if v.Name != "" {
		return v.Name
	}
	switch v.Role {
	case RoleThis:
		return "this"
	case RoleParameter:
		return fmt.Sprintf("p%d", v.Index)
	default:
		return fmt.Sprintf("v%d", v.ID)
	}
}

// IsImplicit reports whether the variable is defined on method entry
func (v *Variable) IsImplicit() bool {
	return v.Role == RoleParameter || v.Role == RoleThis
}
