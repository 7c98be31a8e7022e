package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/factorytrack/factory-backend/internal/logger"
	"github.com/factorytrack/factory-backend/internal/metrics"
	"github.com/factorytrack/factory-backend/internal/model"
	"github.com/factorytrack/factory-backend/internal/repository"
)

// Decision reasons.
const (
	ReasonGranted      = "granted"
	ReasonNoActiveRole = "no_active_role"
	ReasonNotGranted   = "not_granted"
)

// Decision is the outcome of one authorization check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// AuthorizationService evaluates access requests against the caller's active
// role grants. Grants are loaded from the store on every call so revocations
// take effect on the next request.
type AuthorizationService struct {
	store repository.PermissionStore
	log   zerolog.Logger
}

// NewAuthorizationService creates a new AuthorizationService.
func NewAuthorizationService(store repository.PermissionStore, log zerolog.Logger) *AuthorizationService {
	return &AuthorizationService{
		store: store,
		log:   logger.Component(log, "authorization"),
	}
}

// EffectivePermissions returns the union of the permissions of the user's
// active roles. A user without active roles gets an empty set.
func (s *AuthorizationService) EffectivePermissions(ctx context.Context, userID int) (model.PermissionSet, error) {
	roleIDs, err := s.store.ActiveRoleIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load active roles: %w", err)
	}
	if len(roleIDs) == 0 {
		return model.PermissionSet{}, nil
	}
	set, err := s.store.PermissionsForRoles(ctx, roleIDs)
	if err != nil {
		return nil, fmt.Errorf("load role permissions: %w", err)
	}
	return set, nil
}

// Authorize decides whether userID may perform action on resource within
// module. An empty resource asks for module-wide access. Errors from the
// store are returned with a deny decision.
func (s *AuthorizationService) Authorize(ctx context.Context, userID int, module model.Module, action model.Action, resource string) (Decision, error) {
	roleIDs, err := s.store.ActiveRoleIDs(ctx, userID)
	if err != nil {
		metrics.AuthorizationErrorsTotal.Inc()
		return Decision{Reason: "error"}, fmt.Errorf("load active roles: %w", err)
	}

	var d Decision
	if len(roleIDs) == 0 {
		d = Decision{Reason: ReasonNoActiveRole}
	} else {
		set, err := s.store.PermissionsForRoles(ctx, roleIDs)
		if err != nil {
			metrics.AuthorizationErrorsTotal.Inc()
			return Decision{Reason: "error"}, fmt.Errorf("load role permissions: %w", err)
		}
		if set.Allows(module, action, resource) {
			d = Decision{Allowed: true, Reason: ReasonGranted}
		} else {
			d = Decision{Reason: ReasonNotGranted}
		}
	}

	result := "deny"
	if d.Allowed {
		result = "allow"
	}
	metrics.AuthorizationDecisionsTotal.WithLabelValues(string(module), string(action), result).Inc()

	if !d.Allowed {
		s.log.Debug().
			Int("user_id", userID).
			Str("permission", model.PermissionKey(module, action, resource)).
			Str("reason", d.Reason).
			Msg("Access denied")
	}
	return d, nil
}

// AccessibleModules returns the modules the user can read and the keys of
// the permissions they hold.
func (s *AuthorizationService) AccessibleModules(ctx context.Context, userID int) (*model.ModuleAccess, error) {
	set, err := s.EffectivePermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.ModuleAccess{
		Modules:     set.ReadableModules(),
		Permissions: set.Keys(),
	}, nil
}
