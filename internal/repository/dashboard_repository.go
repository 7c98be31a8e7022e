package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/factorytrack/factory-backend/internal/model"
)

// DashboardRepository handles admin dashboard data access.
type DashboardRepository struct {
	db DBTX
}

// NewDashboardRepository creates a new DashboardRepository.
func NewDashboardRepository(pool *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{db: pool}
}

// Overview retrieves the access-control metrics for the dashboard.
func (r *DashboardRepository) Overview(ctx context.Context) (*model.DashboardOverview, error) {
	o := &model.DashboardOverview{}
	err := r.db.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM users WHERE is_active),
			(SELECT COUNT(*) FROM roles),
			(SELECT COUNT(*) FROM roles WHERE is_system),
			(SELECT COUNT(*) FROM permissions),
			(SELECT COUNT(*) FROM user_roles WHERE is_active),
			(SELECT COUNT(*) FROM users u WHERE NOT EXISTS (
				SELECT 1 FROM user_roles ur WHERE ur.user_id = u.id AND ur.is_active))`,
	).Scan(&o.TotalUsers, &o.ActiveUsers, &o.TotalRoles, &o.SystemRoles,
		&o.TotalPermissions, &o.ActiveAssignments, &o.UsersWithoutRole)
	if err != nil {
		return nil, fmt.Errorf("summary counts: %w", err)
	}

	if o.RoleDistribution, err = r.roleDistribution(ctx); err != nil {
		return nil, err
	}
	if o.ModuleCoverage, err = r.moduleCoverage(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *DashboardRepository) roleDistribution(ctx context.Context) ([]model.RoleUserCount, error) {
	rows, err := r.db.Query(ctx,
		`SELECT r.id, r.name, COUNT(ur.user_id)
		 FROM roles r
		 LEFT JOIN user_roles ur ON ur.role_id = r.id AND ur.is_active
		 GROUP BY r.id, r.name
		 ORDER BY COUNT(ur.user_id) DESC, r.name`)
	if err != nil {
		return nil, fmt.Errorf("role distribution: %w", err)
	}
	defer rows.Close()

	out := []model.RoleUserCount{}
	for rows.Next() {
		var c model.RoleUserCount
		if err := rows.Scan(&c.RoleID, &c.RoleName, &c.UserCount); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *DashboardRepository) moduleCoverage(ctx context.Context) ([]model.ModulePermCount, error) {
	rows, err := r.db.Query(ctx, `SELECT module, COUNT(*) FROM permissions GROUP BY module ORDER BY module`)
	if err != nil {
		return nil, fmt.Errorf("module coverage: %w", err)
	}
	defer rows.Close()

	out := []model.ModulePermCount{}
	for rows.Next() {
		var c model.ModulePermCount
		if err := rows.Scan(&c.Module, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
