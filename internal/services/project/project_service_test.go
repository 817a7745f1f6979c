package project

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/taskdeck/internal/rbac"
	"github.com/taskdeck/taskdeck/internal/validation"
)

type stubRepo struct {
	listFn    func(ctx context.Context, scope rbac.ProjectScope) ([]*Project, error)
	getByIDFn func(ctx context.Context, id uuid.UUID, scope rbac.ProjectScope) (*Project, error)
	createFn  func(ctx context.Context, req *CreateProjectRequest) (*Project, error)
	updateFn  func(ctx context.Context, id uuid.UUID, req *UpdateProjectRequest, scope rbac.ProjectScope) (*Project, error)
	deleteFn  func(ctx context.Context, id uuid.UUID, scope rbac.ProjectScope) error
	statsFn   func(ctx context.Context) (*Stats, error)
}

func (s *stubRepo) List(ctx context.Context, scope rbac.ProjectScope) ([]*Project, error) {
	return s.listFn(ctx, scope)
}

func (s *stubRepo) GetByID(ctx context.Context, id uuid.UUID, scope rbac.ProjectScope) (*Project, error) {
	return s.getByIDFn(ctx, id, scope)
}

func (s *stubRepo) Create(ctx context.Context, req *CreateProjectRequest) (*Project, error) {
	return s.createFn(ctx, req)
}

func (s *stubRepo) Update(ctx context.Context, id uuid.UUID, req *UpdateProjectRequest, scope rbac.ProjectScope) (*Project, error) {
	return s.updateFn(ctx, id, req, scope)
}

func (s *stubRepo) Delete(ctx context.Context, id uuid.UUID, scope rbac.ProjectScope) error {
	return s.deleteFn(ctx, id, scope)
}

func (s *stubRepo) Stats(ctx context.Context) (*Stats, error) {
	return s.statsFn(ctx)
}

func actorWith(roles ...rbac.Role) rbac.Actor {
	return rbac.Actor{ID: uuid.New(), Roles: roles}
}

func newService(repo Repository) *ProjectService {
	return NewProjectService(repo, rbac.NewEvaluator(rbac.NewRegistry()))
}

func TestCreateMapsMissingManager(t *testing.T) {
	called := false
	repo := &stubRepo{
		createFn: func(ctx context.Context, req *CreateProjectRequest) (*Project, error) {
			called = true
			return nil, ErrManagerNotFound
		},
	}
	svc := newService(repo)

	_, err := svc.Create(context.Background(), actorWith(rbac.RoleManager), &CreateProjectRequest{
		Name:      "Website Redesign",
		ManagerID: uuid.New(),
	})

	var fields validation.FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Contains(t, fields, "manager_id")
	assert.True(t, called)
}

func TestCreateRequiresManagerID(t *testing.T) {
	repo := &stubRepo{
		createFn: func(ctx context.Context, req *CreateProjectRequest) (*Project, error) {
			t.Fatal("repo should not be reached")
			return nil, nil
		},
	}
	svc := newService(repo)

	_, err := svc.Create(context.Background(), actorWith(rbac.RoleManager), &CreateProjectRequest{
		Name: "Website Redesign",
	})

	var fields validation.FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Contains(t, fields, "manager_id")
}

func TestMemberCannotMutateProjects(t *testing.T) {
	repo := &stubRepo{
		createFn: func(ctx context.Context, req *CreateProjectRequest) (*Project, error) {
			t.Fatal("repo should not be reached")
			return nil, nil
		},
		deleteFn: func(ctx context.Context, id uuid.UUID, scope rbac.ProjectScope) error {
			t.Fatal("repo should not be reached")
			return nil
		},
	}
	svc := newService(repo)
	member := actorWith(rbac.RoleMember)

	_, err := svc.Create(context.Background(), member, &CreateProjectRequest{
		Name:      "Website Redesign",
		ManagerID: uuid.New(),
	})
	assert.ErrorIs(t, err, rbac.ErrForbidden)

	err = svc.Delete(context.Background(), member, uuid.New())
	assert.ErrorIs(t, err, rbac.ErrForbidden)
}

func TestMemberListUsesAssignmentScope(t *testing.T) {
	member := actorWith(rbac.RoleMember)
	repo := &stubRepo{
		listFn: func(ctx context.Context, scope rbac.ProjectScope) ([]*Project, error) {
			assert.False(t, scope.All)
			assert.Equal(t, member.ID, scope.MemberID)
			return []*Project{}, nil
		},
	}
	svc := newService(repo)

	_, err := svc.List(context.Background(), member)
	assert.NoError(t, err)
}

func TestStatsReservedForProjectManagers(t *testing.T) {
	repo := &stubRepo{
		statsFn: func(ctx context.Context) (*Stats, error) {
			return &Stats{Total: 2}, nil
		},
	}
	svc := newService(repo)

	stats, err := svc.Stats(context.Background(), actorWith(rbac.RoleManager))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)

	_, err = svc.Stats(context.Background(), actorWith(rbac.RoleMember))
	assert.ErrorIs(t, err, rbac.ErrForbidden)
}
