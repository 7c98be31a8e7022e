package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/factorytrack/factory-backend/internal/logger"
	"github.com/factorytrack/factory-backend/internal/model"
	"github.com/factorytrack/factory-backend/internal/repository"
)

// PasswordHasher hashes plaintext passwords.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

// SessionRevoker ends every session of a user.
type SessionRevoker interface {
	RevokeAll(ctx context.Context, userID int) error
}

// UserService handles business logic for users and their role grants.
type UserService struct {
	users    repository.UserStore
	roles    repository.RoleStore
	hasher   PasswordHasher
	sessions SessionRevoker
	events   EventPublisher
	log      zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(
	users repository.UserStore,
	roles repository.RoleStore,
	hasher PasswordHasher,
	sessions SessionRevoker,
	events EventPublisher,
	log zerolog.Logger,
) *UserService {
	return &UserService{
		users:    users,
		roles:    roles,
		hasher:   hasher,
		sessions: sessions,
		events:   events,
		log:      logger.Component(log, "user_service"),
	}
}

// ListUsers retrieves a filtered page of users.
func (s *UserService) ListUsers(ctx context.Context, filter model.UserFilter) ([]model.User, int, error) {
	filter.Normalize()
	return s.users.ListUsers(ctx, filter)
}

// GetUser retrieves a user with all of their grants.
func (s *UserService) GetUser(ctx context.Context, id int) (*model.UserWithRoles, error) {
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}
	grants, err := s.users.ListGrants(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.UserWithRoles{User: user, Roles: grants}, nil
}

// GetUserByUsername retrieves a user by username.
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}
	return user, nil
}

// CreateUser creates an active user and grants the requested roles in the
// same transaction.
func (s *UserService) CreateUser(ctx context.Context, req model.CreateUserRequest) (*model.UserWithRoles, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, NewValidationError("username", "username cannot be empty")
	}
	for _, roleID := range req.RoleIDs {
		if _, err := s.roles.GetRole(ctx, roleID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, NewValidationError("role_ids", fmt.Sprintf("role %d does not exist", roleID))
			}
			return nil, err
		}
	}

	hash, err := s.hasher.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:     username,
		FullName:     strings.TrimSpace(req.FullName),
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		IsActive:     true,
	}

	err = s.users.InTx(ctx, func(tx repository.UserStore) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrUsernameTaken
			}
			return err
		}
		for _, roleID := range uniqueSorted(req.RoleIDs) {
			if _, err := tx.UpsertGrant(ctx, user.ID, roleID); err != nil {
				if errors.Is(err, repository.ErrReferenced) {
					return NewValidationError("role_ids", fmt.Sprintf("role %d does not exist", roleID))
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int("user_id", user.ID).Str("username", user.Username).Ints("role_ids", req.RoleIDs).Msg("User created")
	for _, roleID := range req.RoleIDs {
		s.events.Publish(ctx, NewRBACEvent(EventGrantAssigned, roleID, user.ID))
	}
	return s.GetUser(ctx, user.ID)
}

// UpdateUser changes a user's profile.
func (s *UserService) UpdateUser(ctx context.Context, id int, req model.UpdateUserRequest) (*model.User, error) {
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}
	user.FullName = strings.TrimSpace(req.FullName)
	user.Email = strings.TrimSpace(req.Email)
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}
	return user, nil
}

// SetActive activates or deactivates a user. Deactivation ends every session
// of the user; an inactive user is denied by the evaluator regardless.
func (s *UserService) SetActive(ctx context.Context, id int, active bool) (*model.User, error) {
	if err := s.users.SetActive(ctx, id, active); err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}
	if !active {
		if err := s.sessions.RevokeAll(ctx, id); err != nil {
			s.log.Warn().Err(err).Int("user_id", id).Msg("Failed to revoke sessions of deactivated user")
		}
	}
	s.log.Info().Int("user_id", id).Bool("active", active).Msg("User status changed")
	s.events.Publish(ctx, NewRBACEvent(EventUserStatusChanged, 0, id))

	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}
	return user, nil
}

// ResetPassword sets a new password and ends every session of the user.
func (s *UserService) ResetPassword(ctx context.Context, id int, password string) error {
	hash, err := s.hasher.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.SetPassword(ctx, id, hash); err != nil {
		return mapNotFound(err, ErrUserNotFound)
	}
	if err := s.sessions.RevokeAll(ctx, id); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	s.log.Info().Int("user_id", id).Msg("Password reset")
	s.events.Publish(ctx, NewRBACEvent(EventSessionsRevoked, 0, id))
	return nil
}

// AssignRole grants a role to a user. A revoked grant is reactivated rather
// than duplicated; created reports whether a new grant row was written.
func (s *UserService) AssignRole(ctx context.Context, userID, roleID int) (grants []model.UserRole, created bool, err error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, false, mapNotFound(err, ErrUserNotFound)
	}
	if _, err := s.roles.GetRole(ctx, roleID); err != nil {
		return nil, false, mapNotFound(err, ErrRoleNotFound)
	}

	created, err = s.users.UpsertGrant(ctx, userID, roleID)
	if err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return nil, false, ErrRoleNotFound
		}
		return nil, false, err
	}

	s.log.Info().Int("user_id", userID).Int("role_id", roleID).Bool("created", created).Msg("Role assigned")
	s.events.Publish(ctx, NewRBACEvent(EventGrantAssigned, roleID, userID))

	grants, err = s.users.ListGrants(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	return grants, created, nil
}

// RevokeRole deactivates a user's grant of a role. The row is kept so a later
// assignment reactivates it.
func (s *UserService) RevokeRole(ctx context.Context, userID, roleID int) ([]model.UserRole, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}
	if err := s.users.DeactivateGrant(ctx, userID, roleID); err != nil {
		return nil, mapNotFound(err, ErrGrantNotFound)
	}

	s.log.Info().Int("user_id", userID).Int("role_id", roleID).Msg("Role revoked")
	s.events.Publish(ctx, NewRBACEvent(EventGrantRevoked, roleID, userID))

	return s.users.ListGrants(ctx, userID)
}
