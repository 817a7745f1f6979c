package rbac

import "sort"

// Registry holds the role → permission grants. The mapping is fixed at
// construction and never mutated afterwards; role membership of users is
// the only part of the model that lives in the database.
type Registry struct {
	grants map[Role]map[Permission]struct{}
}

// NewRegistry builds the static grant table:
//
//	Admin:   every permission
//	Manager: manage projects, manage tasks, assign tasks
//	Member:  update assigned tasks
func NewRegistry() *Registry {
	grants := map[Role][]Permission{
		RoleAdmin: {
			PermManageUsers,
			PermManageProjects,
			PermManageTasks,
			PermAssignTasks,
			PermUpdateAssignedTasks,
		},
		RoleManager: {
			PermManageProjects,
			PermManageTasks,
			PermAssignTasks,
		},
		RoleMember: {
			PermUpdateAssignedTasks,
		},
	}

	r := &Registry{grants: make(map[Role]map[Permission]struct{}, len(grants))}
	for role, perms := range grants {
		set := make(map[Permission]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		r.grants[role] = set
	}
	return r
}

// PermissionsOf returns the permissions granted to role, sorted by name.
// Unknown roles get nothing.
func (r *Registry) PermissionsOf(role Role) []Permission {
	set, ok := r.grants[role]
	if !ok {
		return nil
	}

	perms := make([]Permission, 0, len(set))
	for p := range set {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}

func (r *Registry) HasPermission(role Role, p Permission) bool {
	set, ok := r.grants[role]
	if !ok {
		return false
	}
	_, ok = set[p]
	return ok
}
