package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/factorytrack/factory-backend/internal/config"
	"github.com/factorytrack/factory-backend/internal/logger"
	"github.com/factorytrack/factory-backend/internal/metrics"
)

// EventType names a committed access-control change.
type EventType string

const (
	EventRolePermissionsReplaced EventType = "role.permissions_replaced"
	EventRoleCreated             EventType = "role.created"
	EventRoleUpdated             EventType = "role.updated"
	EventRoleDeleted             EventType = "role.deleted"
	EventGrantAssigned           EventType = "user.role_assigned"
	EventGrantRevoked            EventType = "user.role_revoked"
	EventUserStatusChanged       EventType = "user.status_changed"
	EventSessionsRevoked         EventType = "user.sessions_revoked"
)

// RBACEvent tells subscribers that cached permission views are stale.
type RBACEvent struct {
	ID     string    `json:"id"`
	Type   EventType `json:"type"`
	RoleID int       `json:"role_id,omitempty"`
	UserID int       `json:"user_id,omitempty"`
	At     time.Time `json:"at"`
}

// NewRBACEvent stamps an event with a fresh id and the current time.
func NewRBACEvent(t EventType, roleID, userID int) RBACEvent {
	return RBACEvent{
		ID:     uuid.NewString(),
		Type:   t,
		RoleID: roleID,
		UserID: userID,
		At:     time.Now().UTC(),
	}
}

// EventPublisher broadcasts committed access-control changes. Publishing is
// best effort: failures are logged and never surface to the caller.
type EventPublisher interface {
	Publish(ctx context.Context, ev RBACEvent)
}

// RedisEventPublisher publishes events on the Redis RBAC channel.
type RedisEventPublisher struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRedisEventPublisher creates a new RedisEventPublisher.
func NewRedisEventPublisher(rdb *redis.Client, log zerolog.Logger) *RedisEventPublisher {
	return &RedisEventPublisher{
		rdb: rdb,
		log: logger.Component(log, "event_publisher"),
	}
}

// Publish sends ev to every subscriber of the RBAC channel.
func (p *RedisEventPublisher) Publish(ctx context.Context, ev RBACEvent) {
	metrics.RBACMutationsTotal.WithLabelValues(string(ev.Type)).Inc()

	payload, err := json.Marshal(ev)
	if err != nil {
		p.log.Error().Err(err).Str("type", string(ev.Type)).Msg("Failed to encode RBAC event")
		return
	}
	// The request context may already be cancelled once the response is written.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := p.rdb.Publish(pubCtx, config.CacheKey.RBACEventsChannel(), payload).Err(); err != nil {
		p.log.Warn().Err(err).Str("type", string(ev.Type)).Msg("Failed to publish RBAC event")
	}
}

// NoopPublisher discards events.
type NoopPublisher struct{}

// Publish implements EventPublisher.
func (NoopPublisher) Publish(context.Context, RBACEvent) {}
