package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factorytrack/factory-backend/internal/config"
)

func TestRedisEventPublisher_Publish(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, config.CacheKey.RBACEventsChannel())
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	pub := NewRedisEventPublisher(rdb, zerolog.Nop())
	pub.Publish(ctx, NewRBACEvent(EventRolePermissionsReplaced, 7, 0))

	select {
	case msg := <-sub.Channel():
		var ev RBACEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		assert.Equal(t, EventRolePermissionsReplaced, ev.Type)
		assert.Equal(t, 7, ev.RoleID)
		assert.NotEmpty(t, ev.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("event not received")
	}
}

func TestRedisEventPublisher_FailureIsSwallowed(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	pub := NewRedisEventPublisher(rdb, zerolog.Nop())
	assert.NotPanics(t, func() {
		pub.Publish(context.Background(), NewRBACEvent(EventRoleDeleted, 1, 0))
	})
}
