package perrors

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
)

type ErrCode struct {
	Code   string `json:"code"`
	Status int    `json:"status"`
}

var (
	ErrCodeInvalidRequest    ErrCode = ErrCode{"invalid_request", http.StatusBadRequest}
	ErrCodeValidation                = ErrCode{"validation_failed", http.StatusUnprocessableEntity}
	ErrCodeUnauthorized              = ErrCode{"unauthorized", http.StatusUnauthorized}
	ErrCodeForbidden                 = ErrCode{"forbidden", http.StatusForbidden}
	ErrCodeNotFound                  = ErrCode{"not_found", http.StatusNotFound}
	ErrCodeConflict                  = ErrCode{"conflict", http.StatusConflict}
	ErrCodeSelfDeletion              = ErrCode{"self_deletion_denied", http.StatusConflict}
	ErrCodeLastAdmin                 = ErrCode{"last_admin_denied", http.StatusConflict}
	ErrCodeInternalServer            = ErrCode{"internal_server_error", http.StatusInternalServerError}
)

type Err struct {
	Message    string            `json:"-"`
	Err        string            `json:"error"`
	Code       ErrCode           `json:"-"`
	Fields     map[string]string `json:"fields,omitempty"`
	Stacktrace []string          `json:"-"`
}

func (e Err) Error() string {
	return e.Err
}

func (e Err) HttpStatus() int {
	return e.Code.Status
}

func (e Err) ErrorCode() string {
	return e.Code.Code
}

func (e Err) Print(ctx context.Context) {
	args := []any{slog.Any("error", e.Error()), slog.String("code", e.Code.Code)}
	if len(e.Fields) > 0 {
		args = append(args, slog.Any("fields", e.Fields))
	}
	args = append(args, slog.Any("stacktrace", e.Stacktrace))
	slog.ErrorContext(ctx, e.Message, args...)
}

func New(code ErrCode, msg string, err error) error {
	pc := make([]uintptr, 20)
	count := runtime.Callers(1, pc)
	frames := runtime.CallersFrames(pc[:count])

	var stacktrace []string
	for frame, hasMore := frames.Next(); hasMore; frame, hasMore = frames.Next() {
		stacktrace = append(stacktrace, fmt.Sprintf("%s:%d", frame.File, frame.Line))
	}

	errString := "error missing"
	if err != nil {
		errString = err.Error()
	}

	return Err{
		Code:       code,
		Message:    msg,
		Err:        errString,
		Stacktrace: stacktrace,
	}
}

// NewValidation wraps field-level validation failures so callers can render
// one message per offending field.
func NewValidation(msg string, err error, fields map[string]string) error {
	e := New(ErrCodeValidation, msg, err).(Err)
	e.Fields = fields
	return e
}

func NewErrInvalidRequest(msg string, err error) error {
	return New(ErrCodeInvalidRequest, msg, err)
}

func NewErrForbidden(msg string, err error) error {
	return New(ErrCodeForbidden, msg, err)
}

func NewErrNotFound(msg string, err error) error {
	return New(ErrCodeNotFound, msg, err)
}

func NewErrInternalServerError(msg string, err error) error {
	return New(ErrCodeInternalServer, msg, err)
}
