package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/factorytrack/factory-backend/internal/logger"
	"github.com/factorytrack/factory-backend/internal/model"
	"github.com/factorytrack/factory-backend/internal/repository"
)

// RoleService handles business logic for roles and their permission sets.
type RoleService struct {
	roles  repository.RoleStore
	events EventPublisher
	log    zerolog.Logger
}

// NewRoleService creates a new RoleService.
func NewRoleService(roles repository.RoleStore, events EventPublisher, log zerolog.Logger) *RoleService {
	return &RoleService{
		roles:  roles,
		events: events,
		log:    logger.Component(log, "role_service"),
	}
}

// ListRoles retrieves all roles with user and permission counts.
func (s *RoleService) ListRoles(ctx context.Context) ([]model.RoleSummary, error) {
	return s.roles.ListRoles(ctx)
}

// GetRole retrieves a role and its permissions.
func (s *RoleService) GetRole(ctx context.Context, id int) (*model.RoleWithPermissions, error) {
	role, err := s.roles.GetRole(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, ErrRoleNotFound)
	}
	perms, err := s.roles.ListRolePermissions(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.RoleWithPermissions{Role: role, Permissions: perms}, nil
}

// ListRolePermissions retrieves the permissions linked to a role.
func (s *RoleService) ListRolePermissions(ctx context.Context, id int) ([]model.Permission, error) {
	if _, err := s.roles.GetRole(ctx, id); err != nil {
		return nil, mapNotFound(err, ErrRoleNotFound)
	}
	return s.roles.ListRolePermissions(ctx, id)
}

// ListRoleUsers retrieves the users actively holding a role.
func (s *RoleService) ListRoleUsers(ctx context.Context, id int) ([]model.User, error) {
	if _, err := s.roles.GetRole(ctx, id); err != nil {
		return nil, mapNotFound(err, ErrRoleNotFound)
	}
	return s.roles.ListRoleUsers(ctx, id)
}

// CreateRole creates an active, non-system role with no permissions.
func (s *RoleService) CreateRole(ctx context.Context, req model.CreateRoleRequest) (*model.Role, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, NewValidationError("name", "role name cannot be empty")
	}

	role := &model.Role{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		IsActive:    true,
	}
	if err := s.roles.CreateRole(ctx, role); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrRoleNameTaken
		}
		return nil, err
	}

	s.log.Info().Int("role_id", role.ID).Str("name", role.Name).Msg("Role created")
	s.events.Publish(ctx, NewRBACEvent(EventRoleCreated, role.ID, 0))
	return role, nil
}

// EnsureSystemRole returns the named role, creating it as a system role when
// absent. An existing non-system role of that name is promoted.
func (s *RoleService) EnsureSystemRole(ctx context.Context, name, description string) (*model.Role, bool, error) {
	var (
		out     *model.Role
		created bool
	)
	err := s.roles.InTx(ctx, func(tx repository.RoleStore) error {
		role, err := tx.GetRoleByName(ctx, name)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			role = &model.Role{Name: name, Description: description, IsSystem: true, IsActive: true}
			if err := tx.CreateRole(ctx, role); err != nil {
				return err
			}
			created = true
		case err != nil:
			return err
		case !role.IsSystem || !role.IsActive:
			role.IsActive = true
			if err := tx.UpdateRole(ctx, role); err != nil {
				return err
			}
			if err := tx.MarkSystem(ctx, role.ID); err != nil {
				return err
			}
			role.IsSystem = true
		}
		out = role
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

// UpdateRole changes a role's attributes. System roles keep their name and
// stay active; their description may change.
func (s *RoleService) UpdateRole(ctx context.Context, id int, req model.UpdateRoleRequest) (*model.Role, error) {
	var out *model.Role
	err := s.roles.InTx(ctx, func(tx repository.RoleStore) error {
		role, err := tx.GetRoleForUpdate(ctx, id)
		if err != nil {
			return mapNotFound(err, ErrRoleNotFound)
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return NewValidationError("name", "role name cannot be empty")
			}
			if role.IsSystem && name != role.Name {
				return ErrProtectedRole
			}
			role.Name = name
		}
		if req.IsActive != nil {
			if role.IsSystem && !*req.IsActive {
				return ErrProtectedRole
			}
			role.IsActive = *req.IsActive
		}
		if req.Description != nil {
			role.Description = strings.TrimSpace(*req.Description)
		}

		if err := tx.UpdateRole(ctx, role); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrRoleNameTaken
			}
			return err
		}
		out = role
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, NewRBACEvent(EventRoleUpdated, id, 0))
	return out, nil
}

// DeleteRole removes a non-system role. Grants are removed first, then the
// role's permission links, then the role itself, in one transaction. When
// reassignTo is set, users actively holding the role are granted that role
// before their grants are removed.
func (s *RoleService) DeleteRole(ctx context.Context, id int, reassignTo *int) (*model.RoleDeletion, error) {
	result := &model.RoleDeletion{RoleID: id, ReassignedTo: reassignTo}

	err := s.roles.InTx(ctx, func(tx repository.RoleStore) error {
		role, err := tx.GetRoleForUpdate(ctx, id)
		if err != nil {
			return mapNotFound(err, ErrRoleNotFound)
		}
		if role.IsSystem {
			return ErrProtectedRole
		}

		if reassignTo != nil {
			if *reassignTo == id {
				return NewValidationError("reassign_to", "cannot reassign users to the role being deleted")
			}
			target, err := tx.GetRole(ctx, *reassignTo)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return NewValidationError("reassign_to", "target role does not exist")
				}
				return err
			}
			if !target.IsActive {
				return NewValidationError("reassign_to", "target role is inactive")
			}
			if _, err := tx.ReassignRoleGrants(ctx, id, *reassignTo); err != nil {
				return fmt.Errorf("reassign grants: %w", err)
			}
		}

		affected, err := tx.RemoveRoleGrants(ctx, id)
		if err != nil {
			return fmt.Errorf("remove grants: %w", err)
		}
		removed, err := tx.RemoveAllRolePermissions(ctx, id)
		if err != nil {
			return fmt.Errorf("remove role permissions: %w", err)
		}
		if err := tx.DeleteRole(ctx, id); err != nil {
			return mapNotFound(err, ErrRoleNotFound)
		}

		result.AffectedUsers = int(affected)
		result.RemovedPermissions = int(removed)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int("role_id", id).
		Int("affected_users", result.AffectedUsers).
		Int("removed_permissions", result.RemovedPermissions).
		Msg("Role deleted")
	s.events.Publish(ctx, NewRBACEvent(EventRoleDeleted, id, 0))
	return result, nil
}

// ReplacePermissions makes the role's permission set exactly permissionIDs.
// Only the difference is written. Every id must exist in the catalog or
// nothing changes.
func (s *RoleService) ReplacePermissions(ctx context.Context, roleID int, permissionIDs []int) (*model.PermissionDiff, error) {
	target := uniqueSorted(permissionIDs)
	diff := &model.PermissionDiff{RoleID: roleID, PermissionIDs: target}

	err := s.roles.InTx(ctx, func(tx repository.RoleStore) error {
		if _, err := tx.GetRoleForUpdate(ctx, roleID); err != nil {
			return mapNotFound(err, ErrRoleNotFound)
		}

		existing, err := tx.ExistingPermissionIDs(ctx, target)
		if err != nil {
			return err
		}
		if unknown := missingIDs(target, existing); len(unknown) > 0 {
			return &ValidationError{
				Message: "unknown permission ids",
				Fields:  map[string]string{"permission_ids": "contains ids that do not exist"},
				Details: map[string]any{"unknown_permission_ids": unknown},
			}
		}

		current, err := tx.RolePermissionIDs(ctx, roleID)
		if err != nil {
			return err
		}
		add, remove, keep := model.DiffPermissionIDs(current, target)

		added, err := tx.AddRolePermissions(ctx, roleID, add)
		if err != nil {
			return fmt.Errorf("add role permissions: %w", err)
		}
		removed, err := tx.RemoveRolePermissions(ctx, roleID, remove)
		if err != nil {
			return fmt.Errorf("remove role permissions: %w", err)
		}

		diff.Added = int(added)
		diff.Removed = int(removed)
		diff.Unchanged = len(keep)
		diff.AddedIDs = nonNil(add)
		diff.RemovedIDs = nonNil(remove)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int("role_id", roleID).
		Int("added", diff.Added).
		Int("removed", diff.Removed).
		Int("unchanged", diff.Unchanged).
		Msg("Role permissions replaced")
	if diff.Added > 0 || diff.Removed > 0 {
		s.events.Publish(ctx, NewRBACEvent(EventRolePermissionsReplaced, roleID, 0))
	}
	return diff, nil
}

func uniqueSorted(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// missingIDs returns the ids of want absent from have.
func missingIDs(want, have []int) []int {
	present := make(map[int]struct{}, len(have))
	for _, id := range have {
		present[id] = struct{}{}
	}
	var out []int
	for _, id := range want {
		if _, ok := present[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func nonNil(ids []int) []int {
	if ids == nil {
		return []int{}
	}
	return ids
}
