package service

import (
	"context"

	"github.com/factorytrack/factory-backend/internal/model"
	"github.com/factorytrack/factory-backend/internal/repository"
)

// DashboardService handles admin dashboard business logic.
type DashboardService struct {
	repo repository.DashboardStore
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(repo repository.DashboardStore) *DashboardService {
	return &DashboardService{repo: repo}
}

// Overview returns the access-control metrics for the dashboard.
func (s *DashboardService) Overview(ctx context.Context) (*model.DashboardOverview, error) {
	return s.repo.Overview(ctx)
}
