package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/taskdeck/taskdeck/internal/rbac"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	// ErrProjectRefNotFound means project_id does not reference an existing
	// project.
	ErrProjectRefNotFound = errors.New("referenced project not found")
	// ErrAssigneeNotFound means assigned_to does not reference an existing
	// user.
	ErrAssigneeNotFound = errors.New("assignee not found")
)

const taskColumns = `
	t.id, t.title, t.description, t.status, t.project_id, p.name AS project_name,
	t.assigned_to, u.name AS assignee_name, t.created_at, t.updated_at
`

const taskJoins = `
	FROM tasks t
	JOIN projects p ON p.id = t.project_id
	LEFT JOIN users u ON u.id = t.assigned_to
`

type TaskRepo struct {
	db *sqlx.DB
}

func NewTaskRepo(db *sqlx.DB) *TaskRepo {
	return &TaskRepo{db: db}
}

// scopeClause translates a TaskScope into a WHERE fragment. An unrestricted
// scope yields no fragment; manager and assignee restrictions OR together.
func scopeClause(scope rbac.TaskScope, args *[]interface{}) string {
	if scope.All {
		return ""
	}

	var parts []string
	if scope.ManagerID != uuid.Nil {
		*args = append(*args, scope.ManagerID)
		parts = append(parts, fmt.Sprintf(
			"t.project_id IN (SELECT id FROM projects WHERE manager_id = $%d)", len(*args)))
	}
	if scope.AssigneeID != uuid.Nil {
		*args = append(*args, scope.AssigneeID)
		parts = append(parts, fmt.Sprintf("t.assigned_to = $%d", len(*args)))
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// List returns the tasks visible under scope, optionally narrowed by filter.
func (r *TaskRepo) List(ctx context.Context, scope rbac.TaskScope, filter Filter) ([]*Task, error) {
	if scope.Empty() {
		return []*Task{}, nil
	}

	var args []interface{}
	var where []string

	if clause := scopeClause(scope, &args); clause != "" {
		where = append(where, clause)
	}
	if filter.ProjectID != nil {
		args = append(args, *filter.ProjectID)
		where = append(where, fmt.Sprintf("t.project_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		where = append(where, fmt.Sprintf("t.status = $%d", len(args)))
	}

	query := "SELECT " + taskColumns + taskJoins
	if len(where) > 0 {
		query += "WHERE " + strings.Join(where, " AND ")
	}
	query += `
	ORDER BY t.created_at DESC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	var tasks []*Task
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// GetByID returns the task only when it is inside scope; out-of-scope rows
// read as not found.
func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID, scope rbac.TaskScope) (*Task, error) {
	if scope.Empty() {
		return nil, ErrTaskNotFound
	}

	args := []interface{}{id}
	query := "SELECT " + taskColumns + taskJoins + "WHERE t.id = $1"
	if clause := scopeClause(scope, &args); clause != "" {
		query += " AND " + clause
	}

	var t Task
	if err := r.db.GetContext(ctx, &t, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &t, nil
}

// Create inserts the task after verifying the project and optional assignee
// references inside one transaction.
func (r *TaskRepo) Create(ctx context.Context, req *CreateTaskRequest, status Status) (*Task, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := checkProjectExists(ctx, tx, req.ProjectID); err != nil {
		return nil, err
	}
	if req.AssignedTo != nil {
		if err := checkAssigneeExists(ctx, tx, *req.AssignedTo); err != nil {
			return nil, err
		}
	}

	var id uuid.UUID
	err = tx.GetContext(ctx, &id, `
		INSERT INTO tasks (title, description, status, project_id, assigned_to)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, req.Title, req.Description, string(status), req.ProjectID, req.AssignedTo)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	t, err := getInTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return t, nil
}

// Update rewrites the submitted fields. The WHERE clause re-verifies the
// row is inside the caller's scope before anything changes.
func (r *TaskRepo) Update(ctx context.Context, id uuid.UUID, req *UpdateTaskRequest, status *Status, scope rbac.TaskScope) (*Task, error) {
	if scope.Empty() {
		return nil, ErrTaskNotFound
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	setParts := []string{}
	args := []interface{}{}

	if req.Title != nil {
		setParts = append(setParts, fmt.Sprintf("title = $%d", len(args)+1))
		args = append(args, *req.Title)
	}
	if req.Description != nil {
		setParts = append(setParts, fmt.Sprintf("description = $%d", len(args)+1))
		args = append(args, *req.Description)
	}
	if status != nil {
		setParts = append(setParts, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, string(*status))
	}
	if req.ProjectID != nil {
		if err := checkProjectExists(ctx, tx, *req.ProjectID); err != nil {
			return nil, err
		}
		setParts = append(setParts, fmt.Sprintf("project_id = $%d", len(args)+1))
		args = append(args, *req.ProjectID)
	}
	if req.AssignedTo != nil {
		if err := checkAssigneeExists(ctx, tx, *req.AssignedTo); err != nil {
			return nil, err
		}
		setParts = append(setParts, fmt.Sprintf("assigned_to = $%d", len(args)+1))
		args = append(args, *req.AssignedTo)
	}

	if len(setParts) > 0 {
		setParts = append(setParts, "updated_at = NOW()")
		args = append(args, id)
		query := fmt.Sprintf("UPDATE tasks t SET %s WHERE t.id = $%d",
			strings.Join(setParts, ", "), len(args))
		if clause := scopeClause(scope, &args); clause != "" {
			query += " AND " + clause
		}

		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to update task: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return nil, ErrTaskNotFound
		}
	}

	t, err := getInTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return t, nil
}

// UpdateStatus is the narrow mutation members are allowed: only the status
// column changes, and only on rows inside scope.
func (r *TaskRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, scope rbac.TaskScope) (*Task, error) {
	if scope.Empty() {
		return nil, ErrTaskNotFound
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	args := []interface{}{string(status), id}
	query := "UPDATE tasks t SET status = $1, updated_at = NOW() WHERE t.id = $2"
	if clause := scopeClause(scope, &args); clause != "" {
		query += " AND " + clause
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update task status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrTaskNotFound
	}

	t, err := getInTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return t, nil
}

// Delete removes the task when it is inside scope.
func (r *TaskRepo) Delete(ctx context.Context, id uuid.UUID, scope rbac.TaskScope) error {
	if scope.Empty() {
		return ErrTaskNotFound
	}

	args := []interface{}{id}
	query := "DELETE FROM tasks t WHERE t.id = $1"
	if clause := scopeClause(scope, &args); clause != "" {
		query += " AND " + clause
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func getInTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Task, error) {
	var t Task
	err := tx.GetContext(ctx, &t, "SELECT "+taskColumns+taskJoins+"WHERE t.id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("failed to read back task: %w", err)
	}
	return &t, nil
}

func checkProjectExists(ctx context.Context, tx *sqlx.Tx, projectID uuid.UUID) error {
	var exists bool
	err := tx.GetContext(ctx, &exists, `
		SELECT EXISTS(SELECT 1 FROM projects WHERE id = $1)
	`, projectID)
	if err != nil {
		return fmt.Errorf("failed to check project: %w", err)
	}
	if !exists {
		return ErrProjectRefNotFound
	}
	return nil
}

func checkAssigneeExists(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) error {
	var exists bool
	err := tx.GetContext(ctx, &exists, `
		SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to check assignee: %w", err)
	}
	if !exists {
		return ErrAssigneeNotFound
	}
	return nil
}
