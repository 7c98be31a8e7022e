package repository

import (
	"context"

	"github.com/factorytrack/factory-backend/internal/model"
)

// RoleStore persists roles and their permission and user links.
type RoleStore interface {
	ListRoles(ctx context.Context) ([]model.RoleSummary, error)
	GetRole(ctx context.Context, id int) (*model.Role, error)
	// GetRoleForUpdate locks the role row for the rest of the transaction.
	GetRoleForUpdate(ctx context.Context, id int) (*model.Role, error)
	GetRoleByName(ctx context.Context, name string) (*model.Role, error)
	CreateRole(ctx context.Context, role *model.Role) error
	UpdateRole(ctx context.Context, role *model.Role) error
	DeleteRole(ctx context.Context, id int) error
	MarkSystem(ctx context.Context, id int) error

	ListRolePermissions(ctx context.Context, roleID int) ([]model.Permission, error)
	RolePermissionIDs(ctx context.Context, roleID int) ([]int, error)
	ExistingPermissionIDs(ctx context.Context, ids []int) ([]int, error)
	AddRolePermissions(ctx context.Context, roleID int, permissionIDs []int) (int64, error)
	RemoveRolePermissions(ctx context.Context, roleID int, permissionIDs []int) (int64, error)
	RemoveAllRolePermissions(ctx context.Context, roleID int) (int64, error)

	ListRoleUsers(ctx context.Context, roleID int) ([]model.User, error)
	RemoveRoleGrants(ctx context.Context, roleID int) (int64, error)
	ReassignRoleGrants(ctx context.Context, fromRoleID, toRoleID int) (int64, error)

	// InTx runs fn against a store bound to a single transaction.
	InTx(ctx context.Context, fn func(RoleStore) error) error
}

// UserStore persists users and their role grants.
type UserStore interface {
	ListUsers(ctx context.Context, filter model.UserFilter) ([]model.User, int, error)
	GetUser(ctx context.Context, id int) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User) error
	UpdateUser(ctx context.Context, user *model.User) error
	SetPassword(ctx context.Context, id int, passwordHash string) error
	SetActive(ctx context.Context, id int, active bool) error

	ListGrants(ctx context.Context, userID int) ([]model.UserRole, error)
	// UpsertGrant inserts a grant or reactivates an existing one. created is
	// false when a row already existed.
	UpsertGrant(ctx context.Context, userID, roleID int) (created bool, err error)
	DeactivateGrant(ctx context.Context, userID, roleID int) error

	InTx(ctx context.Context, fn func(UserStore) error) error
}

// PermissionStore persists the permission catalog and resolves grants.
type PermissionStore interface {
	ListPermissions(ctx context.Context, module model.Module) ([]model.Permission, error)
	CreatePermission(ctx context.Context, p *model.Permission) error
	EnsurePermission(ctx context.Context, p *model.Permission) error
	ActiveRoleIDs(ctx context.Context, userID int) ([]int, error)
	PermissionsForRoles(ctx context.Context, roleIDs []int) (model.PermissionSet, error)
}

// DashboardStore aggregates dashboard metrics.
type DashboardStore interface {
	Overview(ctx context.Context) (*model.DashboardOverview, error)
}
