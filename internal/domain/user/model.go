// Package user manages operator accounts and authentication.
package user

import (
	"time"

	"github.com/google/uuid"
)

// User is an operator account. PasswordHash never leaves the API.
type User struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Name         string     `db:"name" json:"name"`
	EmployeeID   *string    `db:"employee_id" json:"employee_id,omitempty"`
	Role         string     `db:"role" json:"role"`
	JobTitle     string     `db:"job_title" json:"job_title"`
	WorkUnit     string     `db:"work_unit" json:"work_unit"`
	Phone        *string    `db:"phone" json:"phone,omitempty"`
	Photo        *string    `db:"photo" json:"photo,omitempty"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// CreateInput carries the fields for registering an account.
type CreateInput struct {
	Email      string  `json:"email"`
	Password   string  `json:"password"`
	Name       string  `json:"name"`
	EmployeeID *string `json:"employee_id"`
	Role       string  `json:"role"`
	JobTitle   string  `json:"job_title"`
	WorkUnit   string  `json:"work_unit"`
	Phone      *string `json:"phone"`
}

// UpdateInput is a partial account update. Email and password change
// through dedicated operations.
type UpdateInput struct {
	Name       *string `json:"name"`
	EmployeeID *string `json:"employee_id"`
	Role       *string `json:"role"`
	JobTitle   *string `json:"job_title"`
	WorkUnit   *string `json:"work_unit"`
	Phone      *string `json:"phone"`
	IsActive   *bool   `json:"is_active"`
}

// ProfileInput is the subset an operator may change on their own account.
type ProfileInput struct {
	Name       *string `json:"name"`
	EmployeeID *string `json:"employee_id"`
	JobTitle   *string `json:"job_title"`
	WorkUnit   *string `json:"work_unit"`
	Phone      *string `json:"phone"`
}

// ListFilter narrows a listing. Search matches name, email and
// employee id case-insensitively.
type ListFilter struct {
	Search string
	Role   string
}

// LoginResult bundles a signed token with the authenticated account.
type LoginResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
