package rbac

import "github.com/google/uuid"

// Action names the operations the evaluator gates. ActionUpdateStatus is the
// narrow status-only task update available to members on their own tasks.
type Action string

const (
	ActionView         Action = "view"
	ActionCreate       Action = "create"
	ActionUpdate       Action = "update"
	ActionUpdateStatus Action = "update_status"
	ActionDelete       Action = "delete"
)

type Resource string

const (
	ResourceUsers    Resource = "users"
	ResourceProjects Resource = "projects"
	ResourceTasks    Resource = "tasks"
)

// UserScope restricts which user rows an actor may see. The users screen is
// admin-only, so the scope is either everything or nothing.
type UserScope struct {
	All bool
}

// ProjectScope restricts project rows. MemberID narrows the listing to
// projects containing at least one task assigned to that member (read-only).
type ProjectScope struct {
	All      bool
	MemberID uuid.UUID
}

func (s ProjectScope) Empty() bool {
	return !s.All && s.MemberID == uuid.Nil
}

// TaskScope restricts task rows. ManagerID selects tasks in projects managed
// by that user; AssigneeID selects tasks assigned to that user. When both are
// set the scope is their union. Repositories translate this into WHERE
// clauses for listings and re-verify it on every mutation.
type TaskScope struct {
	All        bool
	ManagerID  uuid.UUID
	AssigneeID uuid.UUID
}

func (s TaskScope) Empty() bool {
	return !s.All && s.ManagerID == uuid.Nil && s.AssigneeID == uuid.Nil
}

// Evaluator is the single authorization decision point. Handlers and services
// delegate to it; none of them re-implement role logic.
type Evaluator struct {
	reg *Registry
}

func NewEvaluator(reg *Registry) *Evaluator {
	return &Evaluator{reg: reg}
}

// HasPermission reports whether any of the actor's roles grants p.
func (e *Evaluator) HasPermission(actor Actor, p Permission) bool {
	for _, role := range actor.Roles {
		if e.reg.HasPermission(role, p) {
			return true
		}
	}
	return false
}

// CanPerform decides (actor, action, resource) → allow/deny. Row-level
// restrictions are handled separately by the scope methods; a true here only
// means the action is not categorically denied for this actor.
func (e *Evaluator) CanPerform(actor Actor, action Action, resource Resource) bool {
	switch resource {
	case ResourceUsers:
		return e.HasPermission(actor, PermManageUsers)

	case ResourceProjects:
		if action == ActionView {
			// Everyone can list projects; members only see the ones
			// their assigned tasks belong to.
			return len(actor.Roles) > 0
		}
		return e.HasPermission(actor, PermManageProjects)

	case ResourceTasks:
		switch action {
		case ActionView:
			return len(actor.Roles) > 0
		case ActionUpdateStatus:
			return e.HasPermission(actor, PermUpdateAssignedTasks) ||
				e.HasPermission(actor, PermManageTasks)
		default:
			return e.HasPermission(actor, PermManageTasks)
		}
	}

	return false
}

// ScopeForUsers: admins see every user, everyone else sees none.
func (e *Evaluator) ScopeForUsers(actor Actor) UserScope {
	return UserScope{All: e.HasPermission(actor, PermManageUsers)}
}

// ScopeForProjects: admins and managers see all projects; members see the
// projects that contain at least one task assigned to them.
func (e *Evaluator) ScopeForProjects(actor Actor) ProjectScope {
	if e.HasPermission(actor, PermManageProjects) {
		return ProjectScope{All: true}
	}
	if actor.HasRole(RoleMember) {
		return ProjectScope{MemberID: actor.ID}
	}
	return ProjectScope{}
}

// ScopeForTasks: admins see all tasks, managers see tasks in projects they
// manage, members see tasks assigned to them. A manager who is also a member
// gets the union.
func (e *Evaluator) ScopeForTasks(actor Actor) TaskScope {
	if actor.HasRole(RoleAdmin) {
		return TaskScope{All: true}
	}

	var scope TaskScope
	if actor.HasRole(RoleManager) {
		scope.ManagerID = actor.ID
	}
	if actor.HasRole(RoleMember) {
		scope.AssigneeID = actor.ID
	}
	return scope
}
