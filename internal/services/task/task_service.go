package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/taskdeck/taskdeck/internal/rbac"
	"github.com/taskdeck/taskdeck/internal/validation"
)

// Repository is the persistence contract the service depends on.
type Repository interface {
	List(ctx context.Context, scope rbac.TaskScope, filter Filter) ([]*Task, error)
	GetByID(ctx context.Context, id uuid.UUID, scope rbac.TaskScope) (*Task, error)
	Create(ctx context.Context, req *CreateTaskRequest, status Status) (*Task, error)
	Update(ctx context.Context, id uuid.UUID, req *UpdateTaskRequest, status *Status, scope rbac.TaskScope) (*Task, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, scope rbac.TaskScope) (*Task, error)
	Delete(ctx context.Context, id uuid.UUID, scope rbac.TaskScope) error
}

// TaskService contains the authorization-aware business logic for tasks.
// Full mutations are reserved for actors holding "manage tasks"; members get
// a status-only update on tasks assigned to them.
type TaskService struct {
	repo  Repository
	authz *rbac.Evaluator
}

func NewTaskService(repo Repository, authz *rbac.Evaluator) *TaskService {
	return &TaskService{repo: repo, authz: authz}
}

func (s *TaskService) List(ctx context.Context, actor rbac.Actor, filter Filter) ([]*Task, error) {
	if !s.authz.CanPerform(actor, rbac.ActionView, rbac.ResourceTasks) {
		return nil, rbac.ErrForbidden
	}
	return s.repo.List(ctx, s.authz.ScopeForTasks(actor), filter)
}

func (s *TaskService) GetByID(ctx context.Context, actor rbac.Actor, id uuid.UUID) (*Task, error) {
	if !s.authz.CanPerform(actor, rbac.ActionView, rbac.ResourceTasks) {
		return nil, rbac.ErrForbidden
	}
	return s.repo.GetByID(ctx, id, s.authz.ScopeForTasks(actor))
}

// Create persists a new task. Referential failures (missing project or
// assignee) come back as field-level validation errors.
func (s *TaskService) Create(ctx context.Context, actor rbac.Actor, req *CreateTaskRequest) (*Task, error) {
	if !s.authz.CanPerform(actor, rbac.ActionCreate, rbac.ResourceTasks) {
		return nil, rbac.ErrForbidden
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.ProjectID == uuid.Nil {
		return nil, validation.FieldErrors{"project_id": "is required"}
	}
	if req.AssignedTo != nil && !s.authz.HasPermission(actor, rbac.PermAssignTasks) {
		return nil, rbac.ErrForbidden
	}

	status := StatusToDo
	if req.Status != "" {
		parsed, err := ParseStatus(req.Status)
		if err != nil {
			return nil, validation.FieldErrors{"status": statusMessage()}
		}
		status = parsed
	}

	created, err := s.repo.Create(ctx, req, status)
	if err != nil {
		switch {
		case errors.Is(err, ErrProjectRefNotFound):
			return nil, validation.FieldErrors{"project_id": "must reference an existing project"}
		case errors.Is(err, ErrAssigneeNotFound):
			return nil, validation.FieldErrors{"assigned_to": "must reference an existing user"}
		}
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return created, nil
}

// Update is the full update path. Members do not get here: changing title,
// project or assignee requires "manage tasks".
func (s *TaskService) Update(ctx context.Context, actor rbac.Actor, id uuid.UUID, req *UpdateTaskRequest) (*Task, error) {
	if !s.authz.CanPerform(actor, rbac.ActionUpdate, rbac.ResourceTasks) {
		return nil, rbac.ErrForbidden
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.AssignedTo != nil && !s.authz.HasPermission(actor, rbac.PermAssignTasks) {
		return nil, rbac.ErrForbidden
	}

	var status *Status
	if req.Status != nil {
		parsed, err := ParseStatus(*req.Status)
		if err != nil {
			return nil, validation.FieldErrors{"status": statusMessage()}
		}
		status = &parsed
	}

	updated, err := s.repo.Update(ctx, id, req, status, s.authz.ScopeForTasks(actor))
	if err != nil {
		switch {
		case errors.Is(err, ErrProjectRefNotFound):
			return nil, validation.FieldErrors{"project_id": "must reference an existing project"}
		case errors.Is(err, ErrAssigneeNotFound):
			return nil, validation.FieldErrors{"assigned_to": "must reference an existing user"}
		}
		return nil, err
	}
	return updated, nil
}

// UpdateStatus changes only the workflow state. The scope re-check in the
// repository ensures a member can never move a task that is not theirs, even
// with a well-formed request.
func (s *TaskService) UpdateStatus(ctx context.Context, actor rbac.Actor, id uuid.UUID, rawStatus string) (*Task, error) {
	if !s.authz.CanPerform(actor, rbac.ActionUpdateStatus, rbac.ResourceTasks) {
		return nil, rbac.ErrForbidden
	}

	status, err := ParseStatus(rawStatus)
	if err != nil {
		return nil, validation.FieldErrors{"status": statusMessage()}
	}

	return s.repo.UpdateStatus(ctx, id, status, s.authz.ScopeForTasks(actor))
}

func (s *TaskService) Delete(ctx context.Context, actor rbac.Actor, id uuid.UUID) error {
	if !s.authz.CanPerform(actor, rbac.ActionDelete, rbac.ResourceTasks) {
		return rbac.ErrForbidden
	}
	return s.repo.Delete(ctx, id, s.authz.ScopeForTasks(actor))
}

func statusMessage() string {
	return fmt.Sprintf("must be one of: %s, %s, %s", StatusToDo, StatusInProgress, StatusDone)
}
