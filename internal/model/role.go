package model

import (
	"time"
)

// Role is a named permission bundle. System roles cannot be deleted or renamed;
// their permission set may still be edited.
type Role struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsSystem    bool      `json:"is_system"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RoleWithPermissions extends Role to include its associated permissions.
type RoleWithPermissions struct {
	*Role
	Permissions []Permission `json:"permissions"`
}

// RoleSummary is a role list row with the number of users actively holding it.
type RoleSummary struct {
	Role
	UserCount       int `json:"user_count"`
	PermissionCount int `json:"permission_count"`
}

// RoleDeletion reports what a role deletion removed.
type RoleDeletion struct {
	RoleID             int  `json:"role_id"`
	AffectedUsers      int  `json:"affected_users"`
	RemovedPermissions int  `json:"removed_permissions"`
	ReassignedTo       *int `json:"reassigned_to,omitempty"`
}

// CreateRoleRequest is the payload for creating a role.
type CreateRoleRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=100"`
	Description string `json:"description" binding:"max=255"`
}

// UpdateRoleRequest is the payload for updating a role's attributes.
// A nil field leaves the attribute unchanged.
type UpdateRoleRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=2,max=100"`
	Description *string `json:"description" binding:"omitempty,max=255"`
	IsActive    *bool   `json:"is_active"`
}
