package project

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
	ErrProjectNotFound = errors.New("project not found")
	// ErrManagerNotFound means manager_id does not reference an existing user.
	ErrManagerNotFound = errors.New("manager not found")
)

const projectColumns = `
	p.id, p.name, p.description, p.manager_id, u.name AS manager_name,
	p.created_at, p.updated_at
`

type ProjectRepo struct {
	db *sqlx.DB
}

func NewProjectRepo(db *sqlx.DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

// List returns the projects visible under scope, newest first. A member
// scope selects projects containing at least one task assigned to them.
func (r *ProjectRepo) List(ctx context.Context, scope rbac.ProjectScope) ([]*Project, error) {
	if scope.Empty() {
		return []*Project{}, nil
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM projects p
		JOIN users u ON u.id = p.manager_id
	`, projectColumns)

	var args []interface{}
	if !scope.All {
		query += `
		WHERE EXISTS (
			SELECT 1 FROM tasks t
			WHERE t.project_id = p.id AND t.assigned_to = $1
		)`
		args = append(args, scope.MemberID)
	}
	query += `
		ORDER BY p.created_at DESC`

	var projects []*Project
	if err := r.db.SelectContext(ctx, &projects, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

func (r *ProjectRepo) GetByID(ctx context.Context, id uuid.UUID, scope rbac.ProjectScope) (*Project, error) {
	if scope.Empty() {
		return nil, ErrProjectNotFound
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM projects p
		JOIN users u ON u.id = p.manager_id
		WHERE p.id = $1
	`, projectColumns)

	args := []interface{}{id}
	if !scope.All {
		query += ` AND EXISTS (
			SELECT 1 FROM tasks t
			WHERE t.project_id = p.id AND t.assigned_to = $2
		)`
		args = append(args, scope.MemberID)
	}

	var p Project
	if err := r.db.GetContext(ctx, &p, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &p, nil
}

// Create inserts the project after verifying the manager reference, both in
// one transaction.
func (r *ProjectRepo) Create(ctx context.Context, req *CreateProjectRequest) (*Project, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := checkManagerExists(ctx, tx, req.ManagerID); err != nil {
		return nil, err
	}

	var id uuid.UUID
	err = tx.GetContext(ctx, &id, `
		INSERT INTO projects (name, description, manager_id)
		VALUES ($1, $2, $3)
		RETURNING id
	`, req.Name, req.Description, req.ManagerID)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	var p Project
	err = tx.GetContext(ctx, &p, fmt.Sprintf(`
		SELECT %s
		FROM projects p
		JOIN users u ON u.id = p.manager_id
		WHERE p.id = $1
	`, projectColumns), id)
	if err != nil {
		return nil, fmt.Errorf("failed to read back project: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return &p, nil
}

// Update rewrites the submitted fields. Mutation requires an unrestricted
// scope; a manager change is re-validated against users inside the
// transaction.
func (r *ProjectRepo) Update(ctx context.Context, id uuid.UUID, req *UpdateProjectRequest, scope rbac.ProjectScope) (*Project, error) {
	if !scope.All {
		return nil, ErrProjectNotFound
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	setParts := []string{}
	args := []interface{}{}

	if req.Name != nil {
		setParts = append(setParts, fmt.Sprintf("name = $%d", len(args)+1))
		args = append(args, *req.Name)
	}
	if req.Description != nil {
		setParts = append(setParts, fmt.Sprintf("description = $%d", len(args)+1))
		args = append(args, *req.Description)
	}
	if req.ManagerID != nil {
		if err := checkManagerExists(ctx, tx, *req.ManagerID); err != nil {
			return nil, err
		}
		setParts = append(setParts, fmt.Sprintf("manager_id = $%d", len(args)+1))
		args = append(args, *req.ManagerID)
	}

	if len(setParts) > 0 {
		setParts = append(setParts, "updated_at = NOW()")
		args = append(args, id)

		result, err := tx.ExecContext(ctx, fmt.Sprintf(`
			UPDATE projects
			SET %s
			WHERE id = $%d
		`, strings.Join(setParts, ", "), len(args)), args...)
		if err != nil {
			return nil, fmt.Errorf("failed to update project: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return nil, ErrProjectNotFound
		}
	}

	var p Project
	err = tx.GetContext(ctx, &p, fmt.Sprintf(`
		SELECT %s
		FROM projects p
		JOIN users u ON u.id = p.manager_id
		WHERE p.id = $1
	`, projectColumns), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to read back project: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return &p, nil
}

func (r *ProjectRepo) Delete(ctx context.Context, id uuid.UUID, scope rbac.ProjectScope) error {
	if !scope.All {
		return ErrProjectNotFound
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// Stats returns the counters shown above the projects table.
func (r *ProjectRepo) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	err := r.db.GetContext(ctx, &s, `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (
				WHERE date_trunc('month', created_at) = date_trunc('month', NOW())
			) AS this_month,
			COUNT(DISTINCT manager_id) AS managers
		FROM projects
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get project stats: %w", err)
	}
	return &s, nil
}

func checkManagerExists(ctx context.Context, tx *sqlx.Tx, managerID uuid.UUID) error {
	var exists bool
	err := tx.GetContext(ctx, &exists, `
		SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)
	`, managerID)
	if err != nil {
		return fmt.Errorf("failed to check manager: %w", err)
	}
	if !exists {
		return ErrManagerNotFound
	}
	return nil
}
