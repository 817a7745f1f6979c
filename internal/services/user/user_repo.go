package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/taskdeck/taskdeck/internal/rbac"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already taken")
	// ErrLastAdmin is raised inside the delete transaction when removing the
	// target would leave zero admins.
	ErrLastAdmin = errors.New("cannot delete the last admin")
)

const userColumns = `
	u.id, u.name, u.email, u.password_hash, u.created_at, u.updated_at,
	(SELECT array_agg(ur.role ORDER BY ur.role) FROM user_roles ur WHERE ur.user_id = u.id) AS roles
`

type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// List returns the users visible under scope. A non-admin scope selects
// nothing, without touching the database.
func (r *UserRepo) List(ctx context.Context, scope rbac.UserScope) ([]*User, error) {
	if !scope.All {
		return []*User{}, nil
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM users u
		ORDER BY u.created_at
	`, userColumns)

	var users []*User
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM users u
		WHERE u.id = $1
	`, userColumns)

	var u User
	if err := r.db.GetContext(ctx, &u, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM users u
		WHERE u.email = $1
	`, userColumns)

	var u User
	if err := r.db.GetContext(ctx, &u, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// Create inserts the user and its role assignment in one transaction, so a
// user can never exist with zero roles.
func (r *UserRepo) Create(ctx context.Context, u *User, role rbac.Role) (*User, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var created User
	err = tx.GetContext(ctx, &created, `
		INSERT INTO users (name, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, name, email, password_hash, created_at, updated_at
	`, u.Name, u.Email, u.PasswordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
	`, created.ID, string(role)); err != nil {
		return nil, fmt.Errorf("failed to assign role: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	created.Roles = pq.StringArray{string(role)}
	return &created, nil
}

// Update rewrites the identity columns and syncs the role assignment. The
// WHERE clause re-verifies the row is inside the caller's scope.
func (r *UserRepo) Update(ctx context.Context, id uuid.UUID, u *User, role rbac.Role, scope rbac.UserScope) (*User, error) {
	if !scope.All {
		return nil, ErrUserNotFound
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var updated User
	err = tx.GetContext(ctx, &updated, `
		UPDATE users
		SET name = $1, email = $2, password_hash = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING id, name, email, password_hash, created_at, updated_at
	`, u.Name, u.Email, u.PasswordHash, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to clear roles: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
	`, id, string(role)); err != nil {
		return nil, fmt.Errorf("failed to assign role: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	updated.Roles = pq.StringArray{string(role)}
	return &updated, nil
}

// Delete removes the user unless doing so would leave zero admins. The admin
// count check runs inside the same transaction as the delete.
func (r *UserRepo) Delete(ctx context.Context, id uuid.UUID, scope rbac.UserScope) error {
	if !scope.All {
		return ErrUserNotFound
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var targetIsAdmin bool
	err = tx.GetContext(ctx, &targetIsAdmin, `
		SELECT EXISTS(SELECT 1 FROM user_roles WHERE user_id = $1 AND role = $2)
	`, id, string(rbac.RoleAdmin))
	if err != nil {
		return fmt.Errorf("failed to check target roles: %w", err)
	}

	if targetIsAdmin {
		var adminCount int
		err = tx.GetContext(ctx, &adminCount, `
			SELECT COUNT(DISTINCT user_id) FROM user_roles WHERE role = $1
		`, string(rbac.RoleAdmin))
		if err != nil {
			return fmt.Errorf("failed to count admins: %w", err)
		}
		if adminCount <= 1 {
			return ErrLastAdmin
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// ListOptions returns every user as an (id, name) pair for form selects.
func (r *UserRepo) ListOptions(ctx context.Context) ([]*Option, error) {
	var options []*Option
	err := r.db.SelectContext(ctx, &options, `
		SELECT id, name FROM users ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list user options: %w", err)
	}
	return options, nil
}

// ListByRole returns the users holding role, for assignee selects.
func (r *UserRepo) ListByRole(ctx context.Context, role rbac.Role) ([]*Option, error) {
	var options []*Option
	err := r.db.SelectContext(ctx, &options, `
		SELECT u.id, u.name
		FROM users u
		JOIN user_roles ur ON ur.user_id = u.id
		WHERE ur.role = $1
		ORDER BY u.name
	`, string(role))
	if err != nil {
		return nil, fmt.Errorf("failed to list users by role: %w", err)
	}
	return options, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
