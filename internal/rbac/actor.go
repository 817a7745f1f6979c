package rbac

import "github.com/google/uuid"

// Actor is the authenticated identity behind a request, with the roles it
// held when the request started. It is rebuilt per request; there is no
// process-wide session state.
type Actor struct {
	ID    uuid.UUID
	Roles []Role
}

func (a Actor) HasRole(role Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}
