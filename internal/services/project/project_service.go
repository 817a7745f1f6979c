package project

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
	List(ctx context.Context, scope rbac.ProjectScope) ([]*Project, error)
	GetByID(ctx context.Context, id uuid.UUID, scope rbac.ProjectScope) (*Project, error)
	Create(ctx context.Context, req *CreateProjectRequest) (*Project, error)
	Update(ctx context.Context, id uuid.UUID, req *UpdateProjectRequest, scope rbac.ProjectScope) (*Project, error)
	Delete(ctx context.Context, id uuid.UUID, scope rbac.ProjectScope) error
	Stats(ctx context.Context) (*Stats, error)
}

// ProjectService contains the authorization-aware business logic for
// projects.
type ProjectService struct {
	repo  Repository
	authz *rbac.Evaluator
}

func NewProjectService(repo Repository, authz *rbac.Evaluator) *ProjectService {
	return &ProjectService{repo: repo, authz: authz}
}

func (s *ProjectService) List(ctx context.Context, actor rbac.Actor) ([]*Project, error) {
	if !s.authz.CanPerform(actor, rbac.ActionView, rbac.ResourceProjects) {
		return nil, rbac.ErrForbidden
	}
	return s.repo.List(ctx, s.authz.ScopeForProjects(actor))
}

func (s *ProjectService) GetByID(ctx context.Context, actor rbac.Actor, id uuid.UUID) (*Project, error) {
	if !s.authz.CanPerform(actor, rbac.ActionView, rbac.ResourceProjects) {
		return nil, rbac.ErrForbidden
	}
	return s.repo.GetByID(ctx, id, s.authz.ScopeForProjects(actor))
}

// Create persists a new project. A manager_id that does not resolve to a
// user comes back as a field-level validation error and nothing is written.
func (s *ProjectService) Create(ctx context.Context, actor rbac.Actor, req *CreateProjectRequest) (*Project, error) {
	if !s.authz.CanPerform(actor, rbac.ActionCreate, rbac.ResourceProjects) {
		return nil, rbac.ErrForbidden
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.ManagerID == uuid.Nil {
		return nil, validation.FieldErrors{"manager_id": "is required"}
	}

	created, err := s.repo.Create(ctx, req)
	if err != nil {
		if errors.Is(err, ErrManagerNotFound) {
			return nil, validation.FieldErrors{"manager_id": "must reference an existing user"}
		}
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return created, nil
}

func (s *ProjectService) Update(ctx context.Context, actor rbac.Actor, id uuid.UUID, req *UpdateProjectRequest) (*Project, error) {
	if !s.authz.CanPerform(actor, rbac.ActionUpdate, rbac.ResourceProjects) {
		return nil, rbac.ErrForbidden
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.ManagerID != nil && *req.ManagerID == uuid.Nil {
		return nil, validation.FieldErrors{"manager_id": "must reference an existing user"}
	}

	updated, err := s.repo.Update(ctx, id, req, s.authz.ScopeForProjects(actor))
	if err != nil {
		if errors.Is(err, ErrManagerNotFound) {
			return nil, validation.FieldErrors{"manager_id": "must reference an existing user"}
		}
		return nil, err
	}
	return updated, nil
}

func (s *ProjectService) Delete(ctx context.Context, actor rbac.Actor, id uuid.UUID) error {
	if !s.authz.CanPerform(actor, rbac.ActionDelete, rbac.ResourceProjects) {
		return rbac.ErrForbidden
	}
	return s.repo.Delete(ctx, id, s.authz.ScopeForProjects(actor))
}

// Stats is reserved for actors who manage projects; members only see their
// own listing.
func (s *ProjectService) Stats(ctx context.Context, actor rbac.Actor) (*Stats, error) {
	if !s.authz.HasPermission(actor, rbac.PermManageProjects) {
		return nil, rbac.ErrForbidden
	}
	return s.repo.Stats(ctx)
}
