package controllers

import (
	"errors"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/taskdeck/taskdeck/internal/perrors"
	"github.com/taskdeck/taskdeck/internal/rbac"
	"github.com/taskdeck/taskdeck/internal/services"
	project2 "github.com/taskdeck/taskdeck/internal/services/project"
)

// ProjectIndexResponse bundles what the projects screen shows: the scoped
// listing plus counters (counters only for actors who manage projects).
type ProjectIndexResponse struct {
	Projects []*project2.Project `json:"projects"`
	Stats    *project2.Stats     `json:"stats,omitempty"`
}

func RegisterProjectRoutes(r *router.Router, svc *services.Services) {
	// List projects in scope
	r.GET("/api/projects", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		actor, _ := actorFromCtx(ctx)

		projects, err := svc.Project.List(stdCtx, actor)
		if err != nil {
			writeServiceError(ctx, stdCtx, "Failed to list projects", err)
			return
		}

		resp := ProjectIndexResponse{Projects: projects}
		stats, err := svc.Project.Stats(stdCtx, actor)
		if err != nil && !errors.Is(err, rbac.ErrForbidden) {
			writeServiceError(ctx, stdCtx, "Failed to get project stats", err)
			return
		}
		resp.Stats = stats

		writeOK(ctx, stdCtx, "Projects retrieved successfully", resp)
	})

	// Manager candidates for the project form
	r.GET("/api/projects/options", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		actor, _ := actorFromCtx(ctx)

		options, err := svc.User.Options(stdCtx, actor)
		if err != nil {
			writeServiceError(ctx, stdCtx, "Failed to list manager options", err)
			return
		}

		writeOK(ctx, stdCtx, "Options retrieved successfully", options)
	})

	// Get a single project; out-of-scope rows read as not found
	r.GET("/api/projects/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		actor, _ := actorFromCtx(ctx)

		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		p, err := svc.Project.GetByID(stdCtx, actor, id)
		if err != nil {
			writeServiceError(ctx, stdCtx, "Failed to get project", err)
			return
		}

		writeOK(ctx, stdCtx, "Project retrieved successfully", p)
	})

	// Create project
	r.POST("/api/projects", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		actor, _ := actorFromCtx(ctx)

		var body project2.CreateProjectRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		created, err := svc.Project.Create(stdCtx, actor, &body)
		if err != nil {
			writeServiceError(ctx, stdCtx, "Failed to create project", err)
			return
		}

		writeOK(ctx, stdCtx, "Project created successfully", created)
	})

	// Update project
	r.PUT("/api/projects/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		actor, _ := actorFromCtx(ctx)

		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		var body project2.UpdateProjectRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		updated, err := svc.Project.Update(stdCtx, actor, id, &body)
		if err != nil {
			writeServiceError(ctx, stdCtx, "Failed to update project", err)
			return
		}

		writeOK(ctx, stdCtx, "Project updated successfully", updated)
	})

	// Delete project
	r.DELETE("/api/projects/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		actor, _ := actorFromCtx(ctx)

		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		if err := svc.Project.Delete(stdCtx, actor, id); err != nil {
			writeServiceError(ctx, stdCtx, "Failed to delete project", err)
			return
		}

		writeOK(ctx, stdCtx, "Project deleted successfully", nil)
	})
}
