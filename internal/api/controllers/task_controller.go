package controllers

import (
	stdjson "encoding/json"
	"errors"
	"fmt"

	json "github.com/bytedance/sonic"
	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/taskdeck/taskdeck/internal/perrors"
	"github.com/taskdeck/taskdeck/internal/rbac"
	"github.com/taskdeck/taskdeck/internal/services"
	project2 "github.com/taskdeck/taskdeck/internal/services/project"
	task2 "github.com/taskdeck/taskdeck/internal/services/task"
	user2 "github.com/taskdeck/taskdeck/internal/services/user"
	"github.com/taskdeck/taskdeck/internal/validation"
)

// TaskOptionsResponse backs the task form: the projects the actor can pick
// from and, for actors who may assign, the member candidates.
type TaskOptionsResponse struct {
	Projects []*project2.Project `json:"projects"`
	Members  []*user2.Option     `json:"members,omitempty"`
}

func RegisterTaskRoutes(r *router.Router, svc *services.Services) {
	// List tasks in scope, with optional project_id / status filters
	r.GET("/api/tasks", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		actor, _ := actorFromCtx(ctx)

		filter, err := taskFilter(ctx)
		if err != nil {
			writeError(ctx, stdCtx, "Invalid filter", perrors.NewErrInvalidRequest("Invalid filter", err))
			return
		}

		tasks, err := svc.Task.List(stdCtx, actor, filter)
		if err != nil {
			writeServiceError(ctx, stdCtx, "Failed to list tasks", err)
			return
		}

		writeOK(ctx, stdCtx, "Tasks retrieved successfully", tasks)
	})

	// Form options: in-scope projects, plus member candidates for assigners
	r.GET("/api/tasks/options", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		actor, _ := actorFromCtx(ctx)

		projects, err := svc.Project.List(stdCtx, actor)
		if err != nil {
			writeServiceError(ctx, stdCtx, "Failed to list projects", err)
			return
		}

		resp := TaskOptionsResponse{Projects: projects}
		members, err := svc.User.MemberOptions(stdCtx, actor)
		if err != nil && !errors.Is(err, rbac.ErrForbidden) {
			writeServiceError(ctx, stdCtx, "Failed to list member options", err)
			return
		}
		resp.Members = members

		writeOK(ctx, stdCtx, "Options retrieved successfully", resp)
	})

	// Get a single task; out-of-scope rows read as not found
	r.GET("/api/tasks/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		actor, _ := actorFromCtx(ctx)

		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		t, err := svc.Task.GetByID(stdCtx, actor, id)
		if err != nil {
			writeServiceError(ctx, stdCtx, "Failed to get task", err)
			return
		}

		writeOK(ctx, stdCtx, "Task retrieved successfully", t)
	})

	// Create task
	r.POST("/api/tasks", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		actor, _ := actorFromCtx(ctx)

		var body task2.CreateTaskRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		created, err := svc.Task.Create(stdCtx, actor, &body)
		if err != nil {
			writeServiceError(ctx, stdCtx, "Failed to create task", err)
			return
		}

		writeOK(ctx, stdCtx, "Task created successfully", created)
	})

	// Full update (admins and managers)
	r.PUT("/api/tasks/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		actor, _ := actorFromCtx(ctx)

		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		var body task2.UpdateTaskRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		updated, err := svc.Task.Update(stdCtx, actor, id, &body)
		if err != nil {
			writeServiceError(ctx, stdCtx, "Failed to update task", err)
			return
		}

		writeOK(ctx, stdCtx, "Task updated successfully", updated)
	})

	// Status-only update: the one mutation members get on their own tasks.
	// Any field other than "status" in the body is rejected.
	r.PATCH("/api/tasks/{id}/status", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		actor, _ := actorFromCtx(ctx)

		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		status, err := parseStatusBody(ctx)
		if err != nil {
			writeServiceError(ctx, stdCtx, "Invalid status update", err)
			return
		}

		updated, err := svc.Task.UpdateStatus(stdCtx, actor, id, status)
		if err != nil {
			writeServiceError(ctx, stdCtx, "Failed to update task status", err)
			return
		}

		writeOK(ctx, stdCtx, "Task status updated successfully", updated)
	})

	// Delete task
	r.DELETE("/api/tasks/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		actor, _ := actorFromCtx(ctx)

		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		if err := svc.Task.Delete(stdCtx, actor, id); err != nil {
			writeServiceError(ctx, stdCtx, "Failed to delete task", err)
			return
		}

		writeOK(ctx, stdCtx, "Task deleted successfully", nil)
	})
}

func taskFilter(ctx *fasthttp.RequestCtx) (task2.Filter, error) {
	var filter task2.Filter

	if raw := ctx.QueryArgs().Peek("project_id"); len(raw) > 0 {
		id, err := uuid.ParseBytes(raw)
		if err != nil {
			return filter, fmt.Errorf("invalid project_id: %w", err)
		}
		filter.ProjectID = &id
	}
	if raw := ctx.QueryArgs().Peek("status"); len(raw) > 0 {
		status, err := task2.ParseStatus(string(raw))
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}
	filter.Limit = ctx.QueryArgs().GetUintOrZero("limit")
	filter.Offset = ctx.QueryArgs().GetUintOrZero("offset")
	return filter, nil
}

// parseStatusBody decodes {"status": "..."} and rejects any extra fields, so
// a member cannot smuggle a title or reassignment through the status route.
func parseStatusBody(ctx *fasthttp.RequestCtx) (string, error) {
	var body map[string]stdjson.RawMessage
	if err := parseBody(ctx, &body); err != nil {
		return "", validation.FieldErrors{"status": "is required"}
	}

	fields := validation.FieldErrors{}
	for key := range body {
		if key != "status" {
			fields[key] = "is not allowed in a status update"
		}
	}
	if len(fields) > 0 {
		return "", fields
	}

	raw, ok := body["status"]
	if !ok {
		return "", validation.FieldErrors{"status": "is required"}
	}

	var status string
	if err := json.Unmarshal(raw, &status); err != nil {
		return "", validation.FieldErrors{"status": "must be a string"}
	}
	return status, nil
}
