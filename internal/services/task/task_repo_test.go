package task

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/taskdeck/internal/rbac"
)

func newMockRepo(t *testing.T) (*TaskRepo, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewTaskRepo(sqlx.NewDb(db, "sqlmock")), mock
}

func taskRows(id uuid.UUID, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "title", "description", "status", "project_id", "project_name",
		"assigned_to", "assignee_name", "created_at", "updated_at",
	}).AddRow(id, "Write release notes", "", status, uuid.New(), "Website Redesign", nil, nil, now, now)
}

func TestUpdateStatusAppliesAssigneeScope(t *testing.T) {
	repo, mock := newMockRepo(t)
	taskID := uuid.New()
	memberID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE tasks t SET status = \$1, updated_at = NOW\(\) WHERE t\.id = \$2 AND \(t\.assigned_to = \$3\)`).
		WithArgs("Done", taskID, memberID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM tasks t").
		WithArgs(taskID).
		WillReturnRows(taskRows(taskID, "Done"))
	mock.ExpectCommit()

	updated, err := repo.UpdateStatus(context.Background(), taskID, StatusDone, rbac.TaskScope{AssigneeID: memberID})
	require.NoError(t, err)
	assert.Equal(t, StatusDone, updated.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusOutOfScopeReadsAsNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	taskID := uuid.New()
	memberID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE tasks t SET status").
		WithArgs("Done", taskID, memberID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.UpdateStatus(context.Background(), taskID, StatusDone, rbac.TaskScope{AssigneeID: memberID})
	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusEmptyScopeSkipsDatabase(t *testing.T) {
	repo, mock := newMockRepo(t)

	_, err := repo.UpdateStatus(context.Background(), uuid.New(), StatusDone, rbac.TaskScope{})
	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListCombinesManagerAndAssigneeScope(t *testing.T) {
	repo, mock := newMockRepo(t)
	actorID := uuid.New()

	mock.ExpectQuery(`t\.project_id IN \(SELECT id FROM projects WHERE manager_id = \$1\) OR t\.assigned_to = \$2`).
		WithArgs(actorID, actorID).
		WillReturnRows(taskRows(uuid.New(), "To Do"))

	tasks, err := repo.List(context.Background(), rbac.TaskScope{ManagerID: actorID, AssigneeID: actorID}, Filter{})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAppliesFilters(t *testing.T) {
	repo, mock := newMockRepo(t)
	projectID := uuid.New()
	status := StatusInProgress

	mock.ExpectQuery(`t\.project_id = \$1 AND t\.status = \$2`).
		WithArgs(projectID, "In Progress").
		WillReturnRows(taskRows(uuid.New(), "In Progress"))

	tasks, err := repo.List(context.Background(), rbac.TaskScope{All: true}, Filter{
		ProjectID: &projectID,
		Status:    &status,
	})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReadsBackVisibleInAdminScope(t *testing.T) {
	repo, mock := newMockRepo(t)
	taskID := uuid.New()
	projectID := uuid.New()
	now := time.Now()

	rows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{
			"id", "title", "description", "status", "project_id", "project_name",
			"assigned_to", "assignee_name", "created_at", "updated_at",
		}).AddRow(taskID, "Design landing page", "", "To Do", projectID, "Website Redesign", nil, nil, now, now)
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(projectID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("INSERT INTO tasks").
		WithArgs("Design landing page", "", "To Do", projectID, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(taskID))
	mock.ExpectQuery("SELECT (.+) FROM tasks t").
		WithArgs(taskID).
		WillReturnRows(rows())
	mock.ExpectCommit()

	created, err := repo.Create(context.Background(), &CreateTaskRequest{
		Title:     "Design landing page",
		ProjectID: projectID,
	}, StatusToDo)
	require.NoError(t, err)
	assert.Equal(t, taskID, created.ID)
	assert.Equal(t, StatusToDo, created.Status)

	// The created task comes back through an unrestricted listing.
	mock.ExpectQuery("SELECT (.+) FROM tasks t").
		WillReturnRows(rows())

	tasks, err := repo.List(context.Background(), rbac.TaskScope{All: true}, Filter{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, created.ID, tasks[0].ID)
	assert.Equal(t, "Design landing page", tasks[0].Title)
	assert.Equal(t, projectID, tasks[0].ProjectID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateMissingProjectRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)
	projectID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(projectID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), &CreateTaskRequest{
		Title:     "Design landing page",
		ProjectID: projectID,
	}, StatusToDo)
	assert.ErrorIs(t, err, ErrProjectRefNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAppliesLimitAndOffset(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`ORDER BY t\.created_at DESC LIMIT \$1 OFFSET \$2`).
		WithArgs(10, 20).
		WillReturnRows(taskRows(uuid.New(), "To Do"))

	tasks, err := repo.List(context.Background(), rbac.TaskScope{All: true}, Filter{Limit: 10, Offset: 20})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAppliesManagerScope(t *testing.T) {
	repo, mock := newMockRepo(t)
	taskID := uuid.New()
	managerID := uuid.New()

	mock.ExpectExec(`DELETE FROM tasks t WHERE t\.id = \$1 AND \(t\.project_id IN \(SELECT id FROM projects WHERE manager_id = \$2\)\)`).
		WithArgs(taskID, managerID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Delete(context.Background(), taskID, rbac.TaskScope{ManagerID: managerID})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
