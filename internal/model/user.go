package model

import (
	"time"
)

// User is an identity that owns zero or more role grants.
type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserWithRoles extends User with its role grants, active and revoked.
type UserWithRoles struct {
	*User
	Roles []UserRole `json:"roles"`
}

// UserRole is a user's grant of a role. Revoking a grant clears IsActive
// instead of deleting the row.
type UserRole struct {
	UserID     int       `json:"user_id"`
	RoleID     int       `json:"role_id"`
	RoleName   string    `json:"role_name"`
	IsActive   bool      `json:"is_active"`
	AssignedAt time.Time `json:"assigned_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UserFilter narrows a user listing.
type UserFilter struct {
	RoleID   int
	IsActive *bool
	Search   string
	Page     int
	PerPage  int
}

// Normalize clamps paging values.
func (f *UserFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = 10
	}
	if f.PerPage > 100 {
		f.PerPage = 100
	}
}

// Offset returns the row offset of the current page.
func (f UserFilter) Offset() int {
	return (f.Page - 1) * f.PerPage
}

// LoginRequest is the payload for authentication.
type LoginRequest struct {
	Username string `json:"username" binding:"required,max=100"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        User      `json:"user"`
	Roles       []string  `json:"roles"`
	Permissions []string  `json:"permissions"`
}

// CreateUserRequest is the payload for creating a user.
type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=100"`
	FullName string `json:"full_name" binding:"required,min=2,max=255"`
	Email    string `json:"email" binding:"omitempty,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
	RoleIDs  []int  `json:"role_ids" binding:"omitempty,dive,gt=0"`
}

// UpdateUserRequest is the payload for updating a user's profile.
type UpdateUserRequest struct {
	FullName string `json:"full_name" binding:"required,min=2,max=255"`
	Email    string `json:"email" binding:"omitempty,email,max=255"`
}

// SetUserStatusRequest activates or deactivates a user.
type SetUserStatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// ResetPasswordRequest sets a new password for a user.
type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// AssignRoleRequest grants a role to a user.
type AssignRoleRequest struct {
	RoleID int `json:"role_id" binding:"required,gt=0"`
}
