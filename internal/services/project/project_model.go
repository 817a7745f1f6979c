package project

import (
	"time"

	"github.com/google/uuid"
)

// Project is a unit of work owned by exactly one manager.
type Project struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	ManagerID   uuid.UUID `db:"manager_id" json:"manager_id"`
	ManagerName string    `db:"manager_name" json:"manager_name"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CreateProjectRequest captures the payload for creating a project.
type CreateProjectRequest struct {
	Name        string    `json:"name" validate:"required,max=255"`
	Description string    `json:"description" validate:"omitempty,max=1000"`
	ManagerID   uuid.UUID `json:"manager_id" validate:"required"`
}

// UpdateProjectRequest captures a partial update; nil fields keep their
// current value.
type UpdateProjectRequest struct {
	Name        *string    `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=1000"`
	ManagerID   *uuid.UUID `json:"manager_id,omitempty"`
}

// Stats backs the counters on the projects screen.
type Stats struct {
	Total     int `db:"total" json:"total"`
	ThisMonth int `db:"this_month" json:"this_month"`
	Managers  int `db:"managers" json:"managers"`
}
