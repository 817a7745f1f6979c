package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/taskdeck/taskdeck/internal/rbac"
	"github.com/taskdeck/taskdeck/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSelfDeletion is returned when an actor tries to delete their own
	// account.
	ErrSelfDeletion = errors.New("cannot delete own account")
)

// Repository is the persistence contract the service depends on.
type Repository interface {
	List(ctx context.Context, scope rbac.UserScope) ([]*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u *User, role rbac.Role) (*User, error)
	Update(ctx context.Context, id uuid.UUID, u *User, role rbac.Role, scope rbac.UserScope) (*User, error)
	Delete(ctx context.Context, id uuid.UUID, scope rbac.UserScope) error
	ListOptions(ctx context.Context) ([]*Option, error)
	ListByRole(ctx context.Context, role rbac.Role) ([]*Option, error)
}

// UserService owns user CRUD and credential checks. Every operation takes
// the acting identity and delegates the decision to the evaluator; the
// repository re-verifies row scope on mutation.
type UserService struct {
	repo  Repository
	authz *rbac.Evaluator
}

func NewUserService(repo Repository, authz *rbac.Evaluator) *UserService {
	return &UserService{repo: repo, authz: authz}
}

func (s *UserService) List(ctx context.Context, actor rbac.Actor) ([]*User, error) {
	if !s.authz.CanPerform(actor, rbac.ActionView, rbac.ResourceUsers) {
		return nil, rbac.ErrForbidden
	}
	return s.repo.List(ctx, s.authz.ScopeForUsers(actor))
}

func (s *UserService) Create(ctx context.Context, actor rbac.Actor, req *CreateUserRequest) (*User, error) {
	if !s.authz.CanPerform(actor, rbac.ActionCreate, rbac.ResourceUsers) {
		return nil, rbac.ErrForbidden
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	role, err := rbac.ParseRole(req.Role)
	if err != nil {
		return nil, validation.FieldErrors{"role": "must be one of: Admin, Manager, Member"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	created, err := s.repo.Create(ctx, &User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
	}, role)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, validation.FieldErrors{"email": "is already taken"}
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return created, nil
}

func (s *UserService) Update(ctx context.Context, actor rbac.Actor, id uuid.UUID, req *UpdateUserRequest) (*User, error) {
	if !s.authz.CanPerform(actor, rbac.ActionUpdate, rbac.ResourceUsers) {
		return nil, rbac.ErrForbidden
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	role, err := rbac.ParseRole(req.Role)
	if err != nil {
		return nil, validation.FieldErrors{"role": "must be one of: Admin, Manager, Member"}
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Blank password keeps the stored hash.
	passwordHash := existing.PasswordHash
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		passwordHash = string(hash)
	}

	updated, err := s.repo.Update(ctx, id, &User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: passwordHash,
	}, role, s.authz.ScopeForUsers(actor))
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, validation.FieldErrors{"email": "is already taken"}
		}
		return nil, err
	}
	return updated, nil
}

// Delete refuses self-deletion up front; the last-admin invariant is
// enforced transactionally by the repository.
func (s *UserService) Delete(ctx context.Context, actor rbac.Actor, id uuid.UUID) error {
	if !s.authz.CanPerform(actor, rbac.ActionDelete, rbac.ResourceUsers) {
		return rbac.ErrForbidden
	}
	if actor.ID == id {
		return ErrSelfDeletion
	}
	return s.repo.Delete(ctx, id, s.authz.ScopeForUsers(actor))
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// Authenticate checks the submitted credentials against the stored bcrypt
// hash. Unknown email and bad password both map to ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Options returns all users as select options, for the project manager field.
func (s *UserService) Options(ctx context.Context, actor rbac.Actor) ([]*Option, error) {
	if !s.authz.CanPerform(actor, rbac.ActionCreate, rbac.ResourceProjects) {
		return nil, rbac.ErrForbidden
	}
	return s.repo.ListOptions(ctx)
}

// MemberOptions returns the users holding the Member role, for the task
// assignee field.
func (s *UserService) MemberOptions(ctx context.Context, actor rbac.Actor) ([]*Option, error) {
	if !s.authz.HasPermission(actor, rbac.PermAssignTasks) {
		return nil, rbac.ErrForbidden
	}
	return s.repo.ListByRole(ctx, rbac.RoleMember)
}
