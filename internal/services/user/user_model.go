package user

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// User carries the identity columns plus the roles loaded from user_roles.
// The password hash never serializes.
type User struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	Name         string         `db:"name" json:"name"`
	Email        string         `db:"email" json:"email"`
	PasswordHash string         `db:"password_hash" json:"-"`
	Roles        pq.StringArray `db:"roles" json:"roles"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// Option is the (id, name) pair used to populate select inputs.
type Option struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
}

// CreateUserRequest captures the payload for creating a user. The submitted
// password is always hashed and stored; there is no default password.
type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required"`
}

// UpdateUserRequest mirrors the edit form: all fields submitted, password
// optional (blank keeps the current hash).
type UpdateUserRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"omitempty,min=6"`
	Role     string `json:"role" validate:"required"`
}
