package controllers

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	task2 "github.com/taskdeck/taskdeck/internal/services/task"
	"github.com/taskdeck/taskdeck/internal/validation"
)

func requestWithBody(body string) *fasthttp.RequestCtx {
	var ctx fasthttp.RequestCtx
	ctx.Request.SetBody([]byte(body))
	return &ctx
}

func requestWithURI(uri string) *fasthttp.RequestCtx {
	var ctx fasthttp.RequestCtx
	ctx.Request.SetRequestURI(uri)
	return &ctx
}

func TestParseStatusBodyAcceptsStatusOnly(t *testing.T) {
	status, err := parseStatusBody(requestWithBody(`{"status": "In Progress"}`))
	require.NoError(t, err)
	assert.Equal(t, "In Progress", status)
}

func TestParseStatusBodyRejectsExtraFields(t *testing.T) {
	// A member must not be able to smuggle other mutations through the
	// status route.
	_, err := parseStatusBody(requestWithBody(`{"status": "Done", "title": "sneaky"}`))

	var fields validation.FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Contains(t, fields, "title")
	assert.NotContains(t, fields, "status")
}

func TestParseStatusBodyRequiresStatus(t *testing.T) {
	for _, body := range []string{`{}`, ``} {
		_, err := parseStatusBody(requestWithBody(body))

		var fields validation.FieldErrors
		require.ErrorAs(t, err, &fields, "body %q", body)
		assert.Contains(t, fields, "status")
	}
}

func TestParseStatusBodyRejectsNonStringStatus(t *testing.T) {
	_, err := parseStatusBody(requestWithBody(`{"status": 3}`))

	var fields validation.FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Equal(t, "must be a string", fields["status"])
}

func TestTaskFilterParsing(t *testing.T) {
	projectID := uuid.New()

	filter, err := taskFilter(requestWithURI(
		"/api/tasks?project_id=" + projectID.String() + "&status=Done&limit=10&offset=20"))
	require.NoError(t, err)

	require.NotNil(t, filter.ProjectID)
	assert.Equal(t, projectID, *filter.ProjectID)
	require.NotNil(t, filter.Status)
	assert.Equal(t, task2.StatusDone, *filter.Status)
	assert.Equal(t, 10, filter.Limit)
	assert.Equal(t, 20, filter.Offset)
}

func TestTaskFilterRejectsBadInput(t *testing.T) {
	_, err := taskFilter(requestWithURI("/api/tasks?project_id=not-a-uuid"))
	assert.Error(t, err)

	_, err = taskFilter(requestWithURI("/api/tasks?status=Archived"))
	assert.Error(t, err)
}
