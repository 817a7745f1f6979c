package response

import (
	"context"
	"errors"
	"net/http"

	json "github.com/bytedance/sonic"
	"github.com/valyala/fasthttp"

	"github.com/taskdeck/taskdeck/internal/perrors"
)

type Response[T any] struct {
	ctx          context.Context
	ErrorDetails perrors.Err `json:"errorDetails"`
	Error        bool        `json:"error"`
	Message      string      `json:"message"`
	Data         T           `json:"data"`
	Status       int         `json:"status"`
}

func NewResponse[T any](ctx context.Context, msg string, data T) *Response[T] {
	return &Response[T]{
		ctx:     ctx,
		Message: msg,
		Data:    data,
		Status:  http.StatusOK,
	}
}

// WithError sets the error field for the response. perrors.Err values carry
// their own HTTP status and optional field map.
func (r *Response[T]) WithError(err error) *Response[T] {
	var perr perrors.Err
	if errors.As(err, &perr) {
		r.Status = perr.HttpStatus()
		r.ErrorDetails = perr
	} else {
		perr = perrors.NewErrInternalServerError(r.Message, err).(perrors.Err)
		r.Status = perr.HttpStatus()
		r.ErrorDetails = perr
	}
	perr.Print(r.ctx)

	r.Error = true

	return r
}

// WithStatus overrides the HTTP status code. Prefer perrors.Err values with
// an embedded status; the default is http.StatusOK.
func (r *Response[T]) WithStatus(code int) *Response[T] {
	r.Status = code

	return r
}

// Write sets the content type and writes the envelope to the fasthttp
// context.
func (r *Response[T]) Write(ctx *fasthttp.RequestCtx) {
	ctx.Response.Header.Set("content-type", "application/json")
	ctx.SetStatusCode(r.Status)

	body, err := json.Marshal(r)
	if err != nil {
		ctx.SetStatusCode(http.StatusInternalServerError)
		return
	}

	ctx.SetBody(body)
}
