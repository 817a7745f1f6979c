package task

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the task workflow state. The string values match what the
// screens render and what the database CHECK constraint allows.
type Status string

const (
	StatusToDo       Status = "To Do"
	StatusInProgress Status = "In Progress"
	StatusDone       Status = "Done"
)

var ErrUnknownStatus = errors.New("unknown status")

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusToDo, StatusInProgress, StatusDone:
		return Status(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// Task always belongs to exactly one project; assignment to a user is
// optional.
type Task struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Title        string     `db:"title" json:"title"`
	Description  string     `db:"description" json:"description"`
	Status       Status     `db:"status" json:"status"`
	ProjectID    uuid.UUID  `db:"project_id" json:"project_id"`
	ProjectName  string     `db:"project_name" json:"project_name"`
	AssignedTo   *uuid.UUID `db:"assigned_to" json:"assigned_to,omitempty"`
	AssigneeName *string    `db:"assignee_name" json:"assignee_name,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Filter narrows a task listing within the caller's scope. Limit and Offset
// page through the scoped set; zero means unbounded.
type Filter struct {
	ProjectID *uuid.UUID
	Status    *Status
	Limit     int
	Offset    int
}

// CreateTaskRequest captures the payload for creating a task. Status
// defaults to "To Do" when omitted.
type CreateTaskRequest struct {
	Title       string     `json:"title" validate:"required,max=255"`
	Description string     `json:"description" validate:"omitempty,max=1000"`
	Status      string     `json:"status" validate:"omitempty"`
	ProjectID   uuid.UUID  `json:"project_id" validate:"required"`
	AssignedTo  *uuid.UUID `json:"assigned_to,omitempty"`
}

// UpdateTaskRequest is the full update reserved for admins and managers;
// nil fields keep their current value.
type UpdateTaskRequest struct {
	Title       *string    `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=1000"`
	Status      *string    `json:"status,omitempty"`
	ProjectID   *uuid.UUID `json:"project_id,omitempty"`
	AssignedTo  *uuid.UUID `json:"assigned_to,omitempty"`
}
