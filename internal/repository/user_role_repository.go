package repository

import (
	"context"
	"fmt"

	"github.com/factorytrack/factory-backend/internal/model"
)

// ListGrants retrieves every role grant of a user, revoked ones included.
func (r *UserRepository) ListGrants(ctx context.Context, userID int) ([]model.UserRole, error) {
	rows, err := r.db.Query(ctx,
		`SELECT ur.user_id, ur.role_id, r.name, ur.is_active, ur.assigned_at, ur.updated_at
		 FROM user_roles ur
		 JOIN roles r ON r.id = ur.role_id
		 WHERE ur.user_id = $1
		 ORDER BY r.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	defer rows.Close()

	grants := []model.UserRole{}
	for rows.Next() {
		var g model.UserRole
		if err := rows.Scan(&g.UserID, &g.RoleID, &g.RoleName, &g.IsActive, &g.AssignedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// UpsertGrant inserts a grant or reactivates a revoked one.
// xmax is zero only for rows written by the INSERT branch.
func (r *UserRepository) UpsertGrant(ctx context.Context, userID, roleID int) (bool, error) {
	var created bool
	err := r.db.QueryRow(ctx,
		`INSERT INTO user_roles (user_id, role_id, is_active)
		 VALUES ($1, $2, TRUE)
		 ON CONFLICT (user_id, role_id) DO UPDATE SET is_active = TRUE, updated_at = NOW()
		 RETURNING (xmax = 0)`,
		userID, roleID,
	).Scan(&created)
	if err != nil {
		return false, translate(err)
	}
	return created, nil
}

// DeactivateGrant revokes a grant without deleting its row.
func (r *UserRepository) DeactivateGrant(ctx context.Context, userID, roleID int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE user_roles SET is_active = FALSE, updated_at = NOW()
		 WHERE user_id = $1 AND role_id = $2 AND is_active`, userID, roleID)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
