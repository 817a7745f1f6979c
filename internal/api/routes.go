package api

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/taskdeck/taskdeck/internal/api/authenticator"
	"github.com/taskdeck/taskdeck/internal/api/controllers"
	"github.com/taskdeck/taskdeck/internal/config"
	"github.com/taskdeck/taskdeck/internal/rbac"
)

func (s *Server) initRoutes(conf *config.Config) fasthttp.RequestHandler {
	r := router.New()

	r.GET("/api/health", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		_, _ = ctx.Write([]byte("OK"))
	})

	auth := authenticator.New(conf)

	controllers.RegisterAuthRoutes(r, s.services, auth)
	controllers.RegisterUserRoutes(r, s.services)
	controllers.RegisterProjectRoutes(r, s.services)
	controllers.RegisterTaskRoutes(r, s.services)
	controllers.RegisterDashboardRoutes(r, s.services)

	return s.withMiddlewares(r.Handler, auth)
}

func (s *Server) withMiddlewares(next fasthttp.RequestHandler, auth *authenticator.Authenticator) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		applyCORS(ctx)
		if string(ctx.Method()) == fasthttp.MethodOptions {
			ctx.SetStatusCode(fasthttp.StatusNoContent)
			return
		}

		start := time.Now()
		method := string(ctx.Method())
		path := string(ctx.Path())
		slog.Info("Started processing", slog.String("method", method), slog.String("path", path))

		if !isPublicRoute(ctx) {
			accessToken := strings.TrimPrefix(string(ctx.Request.Header.Peek("Authorization")), "Bearer ")
			if accessToken == "" {
				accessToken = string(ctx.Request.Header.Cookie("access_token"))
			}
			if accessToken == "" {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				return
			}

			claims, err := auth.VerifyAccessToken(ctx, accessToken)
			if err != nil {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				return
			}

			actor, err := s.actorFor(ctx, claims)
			if err != nil {
				// The token may outlive the account.
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				return
			}

			ctx.SetUserValue("userClaims", claims)
			ctx.SetUserValue("actor", actor)
		}

		next(ctx)

		slog.Info("Finished processing",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", ctx.Response.StatusCode()),
			slog.Duration("duration", time.Since(start)))
	}
}

// actorFor rebuilds the acting identity from the database rather than from
// token claims, so role changes apply on the very next request.
func (s *Server) actorFor(ctx context.Context, claims *authenticator.UserClaims) (rbac.Actor, error) {
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return rbac.Actor{}, err
	}

	u, err := s.services.User.GetByID(ctx, id)
	if err != nil {
		return rbac.Actor{}, err
	}

	actor := rbac.Actor{ID: u.ID}
	for _, name := range u.Roles {
		role, err := rbac.ParseRole(name)
		if err != nil {
			continue
		}
		actor.Roles = append(actor.Roles, role)
	}
	return actor, nil
}

func applyCORS(ctx *fasthttp.RequestCtx) {
	headers := &ctx.Response.Header
	headers.Set("Access-Control-Allow-Origin", string(ctx.Request.Header.Peek("Origin")))
	headers.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS,PATCH")
	headers.Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
	headers.Set("Access-Control-Allow-Credentials", "true")
}

func isPublicRoute(ctx *fasthttp.RequestCtx) bool {
	path := string(ctx.Path())

	publicRoutes := []string{
		"/api/health",
		"/api/auth/login",
	}
	for _, route := range publicRoutes {
		if path == route {
			return true
		}
	}
	return false
}
