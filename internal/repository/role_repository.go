package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/factorytrack/factory-backend/internal/model"
)

const roleColumns = "id, name, description, is_system, is_active, created_at, updated_at"

// RoleRepository handles role and role-permission data access.
type RoleRepository struct {
	db   DBTX
	pool TxBeginner // nil when bound to a transaction
}

// NewRoleRepository creates a new RoleRepository.
func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{db: pool, pool: pool}
}

// InTx runs fn with a repository bound to one transaction. Nested calls reuse
// the outer transaction.
func (r *RoleRepository) InTx(ctx context.Context, fn func(RoleStore) error) error {
	if r.pool == nil {
		return fn(r)
	}
	return runInTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&RoleRepository{db: tx})
	})
}

func scanRole(row pgx.Row, role *model.Role) error {
	return row.Scan(&role.ID, &role.Name, &role.Description, &role.IsSystem, &role.IsActive, &role.CreatedAt, &role.UpdatedAt)
}

// ListRoles retrieves all roles with their active user and permission counts.
func (r *RoleRepository) ListRoles(ctx context.Context) ([]model.RoleSummary, error) {
	rows, err := r.db.Query(ctx,
		`SELECT r.id, r.name, r.description, r.is_system, r.is_active, r.created_at, r.updated_at,
		        (SELECT COUNT(*) FROM user_roles ur WHERE ur.role_id = r.id AND ur.is_active),
		        (SELECT COUNT(*) FROM role_permissions rp WHERE rp.role_id = r.id)
		 FROM roles r
		 ORDER BY r.id`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	roles := []model.RoleSummary{}
	for rows.Next() {
		var s model.RoleSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.IsSystem, &s.IsActive, &s.CreatedAt, &s.UpdatedAt,
			&s.UserCount, &s.PermissionCount); err != nil {
			return nil, err
		}
		roles = append(roles, s)
	}
	return roles, rows.Err()
}

// GetRole retrieves a role by ID.
func (r *RoleRepository) GetRole(ctx context.Context, id int) (*model.Role, error) {
	role := &model.Role{}
	err := scanRole(r.db.QueryRow(ctx, "SELECT "+roleColumns+" FROM roles WHERE id = $1", id), role)
	if err != nil {
		return nil, translate(err)
	}
	return role, nil
}

// GetRoleForUpdate retrieves a role and locks its row until the transaction ends.
// Concurrent edits of the same role are serialized on this lock.
func (r *RoleRepository) GetRoleForUpdate(ctx context.Context, id int) (*model.Role, error) {
	role := &model.Role{}
	err := scanRole(r.db.QueryRow(ctx, "SELECT "+roleColumns+" FROM roles WHERE id = $1 FOR UPDATE", id), role)
	if err != nil {
		return nil, translate(err)
	}
	return role, nil
}

// GetRoleByName retrieves a role by its unique name.
func (r *RoleRepository) GetRoleByName(ctx context.Context, name string) (*model.Role, error) {
	role := &model.Role{}
	err := scanRole(r.db.QueryRow(ctx, "SELECT "+roleColumns+" FROM roles WHERE name = $1", name), role)
	if err != nil {
		return nil, translate(err)
	}
	return role, nil
}

// CreateRole inserts a new role and fills its ID and timestamps.
func (r *RoleRepository) CreateRole(ctx context.Context, role *model.Role) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO roles (name, description, is_system, is_active)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		role.Name, role.Description, role.IsSystem, role.IsActive,
	).Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)
	return translate(err)
}

// UpdateRole persists a role's mutable attributes.
func (r *RoleRepository) UpdateRole(ctx context.Context, role *model.Role) error {
	err := r.db.QueryRow(ctx,
		`UPDATE roles SET name = $1, description = $2, is_active = $3, updated_at = NOW()
		 WHERE id = $4
		 RETURNING updated_at`,
		role.Name, role.Description, role.IsActive, role.ID,
	).Scan(&role.UpdatedAt)
	return translate(err)
}

// DeleteRole removes a role row. System roles are never matched.
func (r *RoleRepository) DeleteRole(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM roles WHERE id = $1 AND NOT is_system", id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkSystem flags a role as a system role.
func (r *RoleRepository) MarkSystem(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, "UPDATE roles SET is_system = TRUE, updated_at = NOW() WHERE id = $1", id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRolePermissions retrieves the permissions linked to a role.
func (r *RoleRepository) ListRolePermissions(ctx context.Context, roleID int) ([]model.Permission, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+permissionColumnsP+`
		 FROM permissions p
		 JOIN role_permissions rp ON p.id = rp.permission_id
		 WHERE rp.role_id = $1
		 ORDER BY p.module, p.action, p.resource NULLS FIRST`, roleID,
	)
	if err != nil {
		return nil, fmt.Errorf("list role permissions: %w", err)
	}
	return collectPermissions(rows)
}

// RolePermissionIDs retrieves the permission ids linked to a role.
func (r *RoleRepository) RolePermissionIDs(ctx context.Context, roleID int) ([]int, error) {
	rows, err := r.db.Query(ctx,
		"SELECT permission_id FROM role_permissions WHERE role_id = $1 ORDER BY permission_id", roleID)
	if err != nil {
		return nil, fmt.Errorf("role permission ids: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[int])
}

// ExistingPermissionIDs returns the subset of ids present in the catalog.
func (r *RoleRepository) ExistingPermissionIDs(ctx context.Context, ids []int) ([]int, error) {
	if len(ids) == 0 {
		return []int{}, nil
	}
	rows, err := r.db.Query(ctx, "SELECT id FROM permissions WHERE id = ANY($1) ORDER BY id", ids)
	if err != nil {
		return nil, fmt.Errorf("existing permission ids: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[int])
}

// AddRolePermissions links permissions to a role. Callers pass only ids not yet linked.
func (r *RoleRepository) AddRolePermissions(ctx context.Context, roleID int, permissionIDs []int) (int64, error) {
	if len(permissionIDs) == 0 {
		return 0, nil
	}
	n, err := r.db.CopyFrom(
		ctx,
		pgx.Identifier{"role_permissions"},
		[]string{"role_id", "permission_id"},
		pgx.CopyFromSlice(len(permissionIDs), func(i int) ([]any, error) {
			return []any{roleID, permissionIDs[i]}, nil
		}),
	)
	if err != nil {
		return 0, translate(err)
	}
	return n, nil
}

// RemoveRolePermissions unlinks the given permissions from a role.
func (r *RoleRepository) RemoveRolePermissions(ctx context.Context, roleID int, permissionIDs []int) (int64, error) {
	if len(permissionIDs) == 0 {
		return 0, nil
	}
	tag, err := r.db.Exec(ctx,
		"DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = ANY($2)", roleID, permissionIDs)
	if err != nil {
		return 0, translate(err)
	}
	return tag.RowsAffected(), nil
}

// RemoveAllRolePermissions unlinks every permission from a role.
func (r *RoleRepository) RemoveAllRolePermissions(ctx context.Context, roleID int) (int64, error) {
	tag, err := r.db.Exec(ctx, "DELETE FROM role_permissions WHERE role_id = $1", roleID)
	if err != nil {
		return 0, translate(err)
	}
	return tag.RowsAffected(), nil
}

// ListRoleUsers retrieves the users actively holding a role.
func (r *RoleRepository) ListRoleUsers(ctx context.Context, roleID int) ([]model.User, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+userColumnsU+`
		 FROM users u
		 JOIN user_roles ur ON ur.user_id = u.id
		 WHERE ur.role_id = $1 AND ur.is_active
		 ORDER BY u.username`, roleID)
	if err != nil {
		return nil, fmt.Errorf("list role users: %w", err)
	}
	return collectUsers(rows)
}

// RemoveRoleGrants deletes every user grant of a role and returns how many were removed.
func (r *RoleRepository) RemoveRoleGrants(ctx context.Context, roleID int) (int64, error) {
	tag, err := r.db.Exec(ctx, "DELETE FROM user_roles WHERE role_id = $1", roleID)
	if err != nil {
		return 0, translate(err)
	}
	return tag.RowsAffected(), nil
}

// ReassignRoleGrants grants toRoleID to every user actively holding fromRoleID.
// Existing grants of the target role are reactivated rather than duplicated.
func (r *RoleRepository) ReassignRoleGrants(ctx context.Context, fromRoleID, toRoleID int) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO user_roles (user_id, role_id, is_active)
		 SELECT user_id, $2, TRUE FROM user_roles WHERE role_id = $1 AND is_active
		 ON CONFLICT (user_id, role_id) DO UPDATE SET is_active = TRUE, updated_at = NOW()`,
		fromRoleID, toRoleID)
	if err != nil {
		return 0, translate(err)
	}
	return tag.RowsAffected(), nil
}
