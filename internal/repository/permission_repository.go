package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/factorytrack/factory-backend/internal/model"
)

const (
	permissionColumns  = "id, module, action, resource, description"
	permissionColumnsP = "p.id, p.module, p.action, p.resource, p.description"
)

// PermissionRepository handles the permission catalog and grant resolution.
type PermissionRepository struct {
	db DBTX
}

// NewPermissionRepository creates a new PermissionRepository.
func NewPermissionRepository(pool *pgxpool.Pool) *PermissionRepository {
	return &PermissionRepository{db: pool}
}

func collectPermissions(rows pgx.Rows) ([]model.Permission, error) {
	defer rows.Close()
	perms := []model.Permission{}
	for rows.Next() {
		var p model.Permission
		if err := rows.Scan(&p.ID, &p.Module, &p.Action, &p.Resource, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// ListPermissions retrieves the catalog, optionally narrowed to one module.
func (r *PermissionRepository) ListPermissions(ctx context.Context, module model.Module) ([]model.Permission, error) {
	query := "SELECT " + permissionColumns + " FROM permissions"
	var args []any
	if module != "" {
		query += " WHERE module = $1"
		args = append(args, module)
	}
	query += " ORDER BY module, action, resource NULLS FIRST"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	return collectPermissions(rows)
}

// CreatePermission inserts a catalog entry. A duplicate triple yields ErrDuplicate.
func (r *PermissionRepository) CreatePermission(ctx context.Context, p *model.Permission) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO permissions (module, action, resource, description)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		p.Module, p.Action, p.Resource, p.Description,
	).Scan(&p.ID)
	return translate(err)
}

// EnsurePermission inserts a catalog entry if its triple is absent and fills
// p.ID either way.
func (r *PermissionRepository) EnsurePermission(ctx context.Context, p *model.Permission) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO permissions (module, action, resource, description)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (module, action, (COALESCE(resource, ''))) DO NOTHING`,
		p.Module, p.Action, p.Resource, p.Description,
	)
	if err != nil {
		return translate(err)
	}
	err = r.db.QueryRow(ctx,
		`SELECT id FROM permissions
		 WHERE module = $1 AND action = $2 AND COALESCE(resource, '') = $3`,
		p.Module, p.Action, p.ResourceName(),
	).Scan(&p.ID)
	return translate(err)
}

// ActiveRoleIDs returns the ids of the active roles a user actively holds.
// An inactive user holds none.
func (r *PermissionRepository) ActiveRoleIDs(ctx context.Context, userID int) ([]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT ur.role_id
		 FROM user_roles ur
		 JOIN roles r ON r.id = ur.role_id
		 JOIN users u ON u.id = ur.user_id
		 WHERE ur.user_id = $1 AND ur.is_active AND r.is_active AND u.is_active
		 ORDER BY ur.role_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("active role ids: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[int])
}

// PermissionsForRoles returns the union of the permissions linked to roleIDs.
func (r *PermissionRepository) PermissionsForRoles(ctx context.Context, roleIDs []int) (model.PermissionSet, error) {
	if len(roleIDs) == 0 {
		return model.PermissionSet{}, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT `+permissionColumnsP+`
		 FROM permissions p
		 JOIN role_permissions rp ON rp.permission_id = p.id
		 WHERE rp.role_id = ANY($1)
		 ORDER BY p.module, p.action, p.resource NULLS FIRST`, roleIDs)
	if err != nil {
		return nil, fmt.Errorf("permissions for roles: %w", err)
	}
	perms, err := collectPermissions(rows)
	if err != nil {
		return nil, err
	}
	return model.PermissionSet(perms), nil
}
