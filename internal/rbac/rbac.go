package rbac

import (
	"errors"
	"fmt"
)

// Role is one of the three fixed roles. There is no runtime role creation.
type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleManager Role = "Manager"
	RoleMember  Role = "Member"
)

// Roles returns every known role, in privilege order.
func Roles() []Role {
	return []Role{RoleAdmin, RoleManager, RoleMember}
}

var ErrUnknownRole = errors.New("unknown role")

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleManager, RoleMember:
		return Role(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// Permission is an atomic capability. Permissions attach to roles only,
// never directly to users.
type Permission string

const (
	PermManageUsers         Permission = "manage users"
	PermManageProjects      Permission = "manage projects"
	PermManageTasks         Permission = "manage tasks"
	PermAssignTasks         Permission = "assign tasks"
	PermUpdateAssignedTasks Permission = "update assigned tasks"
)

// ErrForbidden is returned by services when the evaluator denies an action.
var ErrForbidden = errors.New("forbidden")
