package controllers

import (
	"context"
	"errors"
	"fmt"

	json "github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/taskdeck/taskdeck/internal/api/response"
	"github.com/taskdeck/taskdeck/internal/perrors"
	"github.com/taskdeck/taskdeck/internal/rbac"
	"github.com/taskdeck/taskdeck/internal/services/project"
	"github.com/taskdeck/taskdeck/internal/services/task"
	"github.com/taskdeck/taskdeck/internal/services/user"
	"github.com/taskdeck/taskdeck/internal/validation"
)

// requestContext returns a baseline context for handlers. fasthttp does not
// provide a standard context, so we start from Background for downstream
// calls.
func requestContext(_ *fasthttp.RequestCtx) context.Context {
	return context.Background()
}

// actorFromCtx returns the per-request actor placed by the auth middleware.
// The roles in it were read from the database for this request.
func actorFromCtx(ctx *fasthttp.RequestCtx) (rbac.Actor, bool) {
	actor, ok := ctx.UserValue("actor").(rbac.Actor)
	return actor, ok
}

func parseBody(ctx *fasthttp.RequestCtx, target any) error {
	body := ctx.PostBody()
	if len(body) == 0 {
		return errors.New("request body is empty")
	}

	return json.Unmarshal(body, target)
}

func writeError(ctx *fasthttp.RequestCtx, stdCtx context.Context, message string, err error) {
	response.NewResponse[any](stdCtx, message, nil).WithError(err).Write(ctx)
}

func writeOK(ctx *fasthttp.RequestCtx, stdCtx context.Context, message string, data any) {
	response.NewResponse(stdCtx, message, data).Write(ctx)
}

// writeServiceError maps service outcomes to the error taxonomy: field
// errors → 422, forbidden → 403, missing or out-of-scope rows → 404, and
// the two delete guards → distinguishable 409s.
func writeServiceError(ctx *fasthttp.RequestCtx, stdCtx context.Context, message string, err error) {
	var fields validation.FieldErrors

	var mapped error
	switch {
	case errors.As(err, &fields):
		mapped = perrors.NewValidation(message, err, fields)
	case errors.Is(err, rbac.ErrForbidden):
		mapped = perrors.New(perrors.ErrCodeForbidden, message, err)
	case errors.Is(err, user.ErrSelfDeletion):
		mapped = perrors.New(perrors.ErrCodeSelfDeletion, message, err)
	case errors.Is(err, user.ErrLastAdmin):
		mapped = perrors.New(perrors.ErrCodeLastAdmin, message, err)
	case errors.Is(err, user.ErrInvalidCredentials):
		mapped = perrors.New(perrors.ErrCodeUnauthorized, message, err)
	case errors.Is(err, user.ErrUserNotFound),
		errors.Is(err, project.ErrProjectNotFound),
		errors.Is(err, task.ErrTaskNotFound):
		mapped = perrors.New(perrors.ErrCodeNotFound, message, err)
	default:
		mapped = perrors.NewErrInternalServerError(message, err)
	}

	writeError(ctx, stdCtx, message, mapped)
}

func pathParam(ctx *fasthttp.RequestCtx, key string) (string, error) {
	val := ctx.UserValue(key)
	if val == nil {
		return "", fmt.Errorf("%s is required", key)
	}

	return fmt.Sprint(val), nil
}

func pathParamUUID(ctx *fasthttp.RequestCtx, key string) (uuid.UUID, error) {
	val, err := pathParam(ctx, key)
	if err != nil {
		return uuid.Nil, err
	}

	return uuid.Parse(val)
}
