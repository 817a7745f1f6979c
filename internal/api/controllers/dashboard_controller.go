package controllers

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/taskdeck/taskdeck/internal/services"
)

func RegisterDashboardRoutes(r *router.Router, svc *services.Services) {
	r.GET("/api/dashboard/stats", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		actor, _ := actorFromCtx(ctx)

		counts, err := svc.Stats.Counts(stdCtx, actor)
		if err != nil {
			writeServiceError(ctx, stdCtx, "Failed to get dashboard stats", err)
			return
		}

		writeOK(ctx, stdCtx, "Dashboard stats retrieved successfully", counts)
	})
}
