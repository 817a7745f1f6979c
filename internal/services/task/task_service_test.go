package task

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
	listFn         func(ctx context.Context, scope rbac.TaskScope, filter Filter) ([]*Task, error)
	getByIDFn      func(ctx context.Context, id uuid.UUID, scope rbac.TaskScope) (*Task, error)
	createFn       func(ctx context.Context, req *CreateTaskRequest, status Status) (*Task, error)
	updateFn       func(ctx context.Context, id uuid.UUID, req *UpdateTaskRequest, status *Status, scope rbac.TaskScope) (*Task, error)
	updateStatusFn func(ctx context.Context, id uuid.UUID, status Status, scope rbac.TaskScope) (*Task, error)
	deleteFn       func(ctx context.Context, id uuid.UUID, scope rbac.TaskScope) error
}

func (s *stubRepo) List(ctx context.Context, scope rbac.TaskScope, filter Filter) ([]*Task, error) {
	return s.listFn(ctx, scope, filter)
}

func (s *stubRepo) GetByID(ctx context.Context, id uuid.UUID, scope rbac.TaskScope) (*Task, error) {
	return s.getByIDFn(ctx, id, scope)
}

func (s *stubRepo) Create(ctx context.Context, req *CreateTaskRequest, status Status) (*Task, error) {
	return s.createFn(ctx, req, status)
}

func (s *stubRepo) Update(ctx context.Context, id uuid.UUID, req *UpdateTaskRequest, status *Status, scope rbac.TaskScope) (*Task, error) {
	return s.updateFn(ctx, id, req, status, scope)
}

func (s *stubRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, scope rbac.TaskScope) (*Task, error) {
	return s.updateStatusFn(ctx, id, status, scope)
}

func (s *stubRepo) Delete(ctx context.Context, id uuid.UUID, scope rbac.TaskScope) error {
	return s.deleteFn(ctx, id, scope)
}

func actorWith(roles ...rbac.Role) rbac.Actor {
	return rbac.Actor{ID: uuid.New(), Roles: roles}
}

func newService(repo Repository) *TaskService {
	return NewTaskService(repo, rbac.NewEvaluator(rbac.NewRegistry()))
}

func TestMemberCannotFullUpdate(t *testing.T) {
	repo := &stubRepo{
		updateFn: func(ctx context.Context, id uuid.UUID, req *UpdateTaskRequest, status *Status, scope rbac.TaskScope) (*Task, error) {
			t.Fatal("repo should not be reached")
			return nil, nil
		},
	}
	svc := newService(repo)

	title := "New title"
	_, err := svc.Update(context.Background(), actorWith(rbac.RoleMember), uuid.New(), &UpdateTaskRequest{Title: &title})
	assert.ErrorIs(t, err, rbac.ErrForbidden)
}

func TestMemberStatusUpdateScopedToAssignments(t *testing.T) {
	actor := actorWith(rbac.RoleMember)
	taskID := uuid.New()

	repo := &stubRepo{
		updateStatusFn: func(ctx context.Context, id uuid.UUID, status Status, scope rbac.TaskScope) (*Task, error) {
			assert.Equal(t, taskID, id)
			assert.Equal(t, StatusDone, status)
			// The member's scope carries only the assignee restriction.
			assert.False(t, scope.All)
			assert.Equal(t, actor.ID, scope.AssigneeID)
			assert.Equal(t, uuid.Nil, scope.ManagerID)
			return &Task{ID: id, Status: status}, nil
		},
	}
	svc := newService(repo)

	updated, err := svc.UpdateStatus(context.Background(), actor, taskID, "Done")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, updated.Status)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	svc := newService(&stubRepo{})

	_, err := svc.UpdateStatus(context.Background(), actorWith(rbac.RoleMember), uuid.New(), "Archived")

	var fields validation.FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Contains(t, fields, "status")
}

func TestCreateDefaultsStatusToToDo(t *testing.T) {
	var got Status
	repo := &stubRepo{
		createFn: func(ctx context.Context, req *CreateTaskRequest, status Status) (*Task, error) {
			got = status
			return &Task{Title: req.Title, Status: status}, nil
		},
	}
	svc := newService(repo)

	_, err := svc.Create(context.Background(), actorWith(rbac.RoleAdmin), &CreateTaskRequest{
		Title:     "Write release notes",
		ProjectID: uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusToDo, got)
}

func TestCreateWithAssigneeRequiresAssignPermission(t *testing.T) {
	assignee := uuid.New()
	repo := &stubRepo{
		createFn: func(ctx context.Context, req *CreateTaskRequest, status Status) (*Task, error) {
			return &Task{Title: req.Title}, nil
		},
	}
	svc := newService(repo)

	req := &CreateTaskRequest{
		Title:      "Write release notes",
		ProjectID:  uuid.New(),
		AssignedTo: &assignee,
	}

	_, err := svc.Create(context.Background(), actorWith(rbac.RoleMember), req)
	assert.ErrorIs(t, err, rbac.ErrForbidden)

	_, err = svc.Create(context.Background(), actorWith(rbac.RoleManager), req)
	assert.NoError(t, err)
}

func TestCreateMapsMissingProjectRef(t *testing.T) {
	repo := &stubRepo{
		createFn: func(ctx context.Context, req *CreateTaskRequest, status Status) (*Task, error) {
			return nil, ErrProjectRefNotFound
		},
	}
	svc := newService(repo)

	_, err := svc.Create(context.Background(), actorWith(rbac.RoleAdmin), &CreateTaskRequest{
		Title:     "Write release notes",
		ProjectID: uuid.New(),
	})

	var fields validation.FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Contains(t, fields, "project_id")
}

func TestListScopeUnionForManagerAndMember(t *testing.T) {
	actor := actorWith(rbac.RoleManager, rbac.RoleMember)

	repo := &stubRepo{
		listFn: func(ctx context.Context, scope rbac.TaskScope, filter Filter) ([]*Task, error) {
			// Both restrictions travel together so the repo can OR them.
			assert.False(t, scope.All)
			assert.Equal(t, actor.ID, scope.ManagerID)
			assert.Equal(t, actor.ID, scope.AssigneeID)
			return []*Task{}, nil
		},
	}
	svc := newService(repo)

	_, err := svc.List(context.Background(), actor, Filter{})
	assert.NoError(t, err)
}
