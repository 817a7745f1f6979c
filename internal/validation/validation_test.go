package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	Name  string `json:"name" validate:"required,max=10"`
	Email string `json:"email" validate:"required,email"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(&samplePayload{Name: "", Email: "not-an-email"})

	var fields FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "email")
}

func TestStructPassesValidPayload(t *testing.T) {
	err := Struct(&samplePayload{Name: "Jamie", Email: "jamie@example.com"})
	assert.NoError(t, err)
}

func TestFieldErrorsMessageIsStable(t *testing.T) {
	fields := FieldErrors{"b": "is required", "a": "is required"}

	// Keys render sorted so the message does not flap between runs.
	assert.Equal(t, "validation failed: a: is required; b: is required", fields.Error())
}
