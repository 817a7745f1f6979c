package controllers

import (
	"errors"
	"time"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/taskdeck/taskdeck/internal/api/authenticator"
	"github.com/taskdeck/taskdeck/internal/perrors"
	"github.com/taskdeck/taskdeck/internal/services"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

func RegisterAuthRoutes(r *router.Router, svc *services.Services, auth *authenticator.Authenticator) {
	// Login with email/password
	r.POST("/api/auth/login", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		var req LoginRequest
		if err := parseBody(ctx, &req); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}
		if req.Email == "" || req.Password == "" {
			writeError(ctx, stdCtx, "Email and password are required", perrors.NewErrInvalidRequest("Email and password are required", errors.New("missing credentials")))
			return
		}

		u, err := svc.User.Authenticate(stdCtx, req.Email, req.Password)
		if err != nil {
			writeServiceError(ctx, stdCtx, "Invalid credentials", err)
			return
		}

		token, err := auth.GenerateToken(u.ID.String(), u.Name, u.Email, u.Roles)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to generate token", perrors.NewErrInternalServerError("Failed to generate token", err))
			return
		}

		setTokenCookie(ctx, token, time.Now().Add(24*time.Hour))

		writeOK(ctx, stdCtx, "Logged in", LoginResponse{
			Token: token,
			User: UserResponse{
				ID:    u.ID.String(),
				Name:  u.Name,
				Email: u.Email,
				Roles: u.Roles,
			},
		})
	})

	// Current user, roles re-read from the database
	r.GET("/api/auth/me", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		actor, ok := actorFromCtx(ctx)
		if !ok {
			writeError(ctx, stdCtx, "Unauthorized", perrors.New(perrors.ErrCodeUnauthorized, "Unauthorized", errors.New("no actor")))
			return
		}

		u, err := svc.User.GetByID(stdCtx, actor.ID)
		if err != nil {
			writeServiceError(ctx, stdCtx, "Failed to get user", err)
			return
		}

		writeOK(ctx, stdCtx, "Current user", UserResponse{
			ID:    u.ID.String(),
			Name:  u.Name,
			Email: u.Email,
			Roles: u.Roles,
		})
	})

	// Logout: denylist the token (when Redis is configured) and clear the
	// cookie either way
	r.POST("/api/auth/logout", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		if claims, ok := ctx.UserValue("userClaims").(*authenticator.UserClaims); ok && claims != nil {
			if err := auth.Revoke(stdCtx, claims); err != nil {
				writeError(ctx, stdCtx, "Failed to revoke token", perrors.NewErrInternalServerError("Failed to revoke token", err))
				return
			}
		}

		setTokenCookie(ctx, "", time.Unix(0, 0))
		writeOK(ctx, stdCtx, "Logged out", nil)
	})
}

func setTokenCookie(ctx *fasthttp.RequestCtx, token string, expires time.Time) {
	var cookie fasthttp.Cookie
	cookie.SetKey("access_token")
	cookie.SetValue(token)
	cookie.SetPath("/")
	cookie.SetHTTPOnly(true)
	cookie.SetSameSite(fasthttp.CookieSameSiteLaxMode)
	cookie.SetExpire(expires)
	ctx.Response.Header.SetCookie(&cookie)
}
