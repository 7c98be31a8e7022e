package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/factorytrack/factory-backend/internal/logger"
	"github.com/factorytrack/factory-backend/internal/model"
	"github.com/factorytrack/factory-backend/internal/repository"
)

// PermissionService manages the permission catalog.
type PermissionService struct {
	perms repository.PermissionStore
	log   zerolog.Logger
}

// NewPermissionService creates a new PermissionService.
func NewPermissionService(perms repository.PermissionStore, log zerolog.Logger) *PermissionService {
	return &PermissionService{
		perms: perms,
		log:   logger.Component(log, "permission_service"),
	}
}

// ListPermissions retrieves the catalog, optionally for one module.
func (s *PermissionService) ListPermissions(ctx context.Context, module model.Module) ([]model.Permission, error) {
	if module != "" && !module.Valid() {
		return nil, NewValidationError("module", "unknown module")
	}
	return s.perms.ListPermissions(ctx, module)
}

// Catalog returns the module and action enumerations.
func (s *PermissionService) Catalog() model.PermissionCatalog {
	return model.PermissionCatalog{
		Modules: model.AllModules,
		Actions: model.AllActions,
	}
}

// CreatePermission adds a triple to the catalog.
func (s *PermissionService) CreatePermission(ctx context.Context, req model.CreatePermissionRequest) (*model.Permission, error) {
	if !req.Module.Valid() {
		return nil, NewValidationError("module", "unknown module")
	}
	if !req.Action.Valid() {
		return nil, NewValidationError("action", "unknown action")
	}

	p := model.NewPermission(req.Module, req.Action, strings.TrimSpace(req.Resource))
	p.Description = strings.TrimSpace(req.Description)
	if err := s.perms.CreatePermission(ctx, &p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrPermissionExists
		}
		return nil, err
	}

	s.log.Info().Int("permission_id", p.ID).Str("key", p.Key()).Msg("Permission created")
	return &p, nil
}

// EnsureCatalog inserts every missing permission of catalog and returns the
// entries with their ids.
func (s *PermissionService) EnsureCatalog(ctx context.Context, catalog []model.Permission) ([]model.Permission, error) {
	out := make([]model.Permission, 0, len(catalog))
	for _, p := range catalog {
		if err := s.perms.EnsurePermission(ctx, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
