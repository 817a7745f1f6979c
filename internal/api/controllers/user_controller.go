package controllers

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/taskdeck/taskdeck/internal/perrors"
	"github.com/taskdeck/taskdeck/internal/rbac"
	"github.com/taskdeck/taskdeck/internal/services"
	user2 "github.com/taskdeck/taskdeck/internal/services/user"
)

// RoleInfo describes one role and its granted permissions, for the user
// form's role select.
type RoleInfo struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

func RegisterUserRoutes(r *router.Router, svc *services.Services) {
	// List users (admin only; others get an empty scope via Forbidden)
	r.GET("/api/users", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		actor, _ := actorFromCtx(ctx)

		users, err := svc.User.List(stdCtx, actor)
		if err != nil {
			writeServiceError(ctx, stdCtx, "Failed to list users", err)
			return
		}

		writeOK(ctx, stdCtx, "Users retrieved successfully", users)
	})

	// Role options for the create/edit form
	r.GET("/api/users/roles", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		actor, _ := actorFromCtx(ctx)

		if !svc.Authz.CanPerform(actor, rbac.ActionView, rbac.ResourceUsers) {
			writeServiceError(ctx, stdCtx, "Forbidden", rbac.ErrForbidden)
			return
		}

		roles := make([]RoleInfo, 0, len(rbac.Roles()))
		for _, role := range rbac.Roles() {
			perms := svc.Registry.PermissionsOf(role)
			names := make([]string, 0, len(perms))
			for _, p := range perms {
				names = append(names, string(p))
			}
			roles = append(roles, RoleInfo{Name: string(role), Permissions: names})
		}

		writeOK(ctx, stdCtx, "Roles retrieved successfully", roles)
	})

	// Create user
	r.POST("/api/users", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		actor, _ := actorFromCtx(ctx)

		var body user2.CreateUserRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		created, err := svc.User.Create(stdCtx, actor, &body)
		if err != nil {
			writeServiceError(ctx, stdCtx, "Failed to create user", err)
			return
		}

		writeOK(ctx, stdCtx, "User created successfully", created)
	})

	// Update user
	r.PUT("/api/users/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		actor, _ := actorFromCtx(ctx)

		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		var body user2.UpdateUserRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		updated, err := svc.User.Update(stdCtx, actor, id, &body)
		if err != nil {
			writeServiceError(ctx, stdCtx, "Failed to update user", err)
			return
		}

		writeOK(ctx, stdCtx, "User updated successfully", updated)
	})

	// Delete user (guards: no self-deletion, never the last admin)
	r.DELETE("/api/users/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		actor, _ := actorFromCtx(ctx)

		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		if err := svc.User.Delete(stdCtx, actor, id); err != nil {
			writeServiceError(ctx, stdCtx, "Failed to delete user", err)
			return
		}

		writeOK(ctx, stdCtx, "User deleted successfully", nil)
	})
}
