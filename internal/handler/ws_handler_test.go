package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factorytrack/factory-backend/internal/middleware"
	"github.com/factorytrack/factory-backend/internal/service"
	ws "github.com/factorytrack/factory-backend/internal/websocket"
)

type stubSessions struct{ err error }

func (s stubSessions) ValidateSession(context.Context, int, string) error { return s.err }

type wsFixture struct {
	conn *websocket.Conn
	pub  *service.RedisEventPublisher
}

func newWSFixture(t *testing.T, sessions middleware.SessionValidator) *wsFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := NewWSHandler(rdb, sessions, zerolog.Nop(), nil)
	r := gin.New()
	r.GET("/ws/v1/rbac/events", func(c *gin.Context) {
		c.Set(middleware.ContextKeyClaims, &service.Claims{
			RegisteredClaims: jwt.RegisteredClaims{ID: "jti-7"},
			UserID:           7,
		})
		c.Next()
	}, h.RBACEvents)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/v1/rbac/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	var ready ws.ReadyResponse
	readJSON(t, conn, &ready)
	require.Equal(t, ws.EventReady, ready.Event)
	assert.Equal(t, 7, ready.UserID)

	return &wsFixture{conn: conn, pub: service.NewRedisEventPublisher(rdb, zerolog.Nop())}
}

func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	require.NoError(t, conn.ReadJSON(v))
}

func TestRBACEvents_ForwardsChanges(t *testing.T) {
	f := newWSFixture(t, stubSessions{})

	require.NoError(t, f.conn.WriteJSON(ws.RequestEnvelope{Action: ws.ActionPing}))
	var pong ws.PongResponse
	readJSON(t, f.conn, &pong)
	assert.Equal(t, ws.EventPong, pong.Event)

	f.pub.Publish(context.Background(), service.NewRBACEvent(service.EventRolePermissionsReplaced, 3, 0))

	var msg ws.ChangeResponse
	readJSON(t, f.conn, &msg)
	assert.Equal(t, ws.EventRBACChange, msg.Event)

	var ev service.RBACEvent
	require.NoError(t, json.Unmarshal(msg.Change, &ev))
	assert.Equal(t, service.EventRolePermissionsReplaced, ev.Type)
	assert.Equal(t, 3, ev.RoleID)
}

func TestRBACEvents_UnknownAction(t *testing.T) {
	f := newWSFixture(t, stubSessions{})

	require.NoError(t, f.conn.WriteJSON(ws.RequestEnvelope{Action: "dance"}))
	var msg ws.ErrorResponse
	readJSON(t, f.conn, &msg)
	assert.Equal(t, ws.EventError, msg.Event)
	assert.Contains(t, msg.Error, "dance")
}

func TestRBACEvents_ClosesOnRevokedSession(t *testing.T) {
	f := newWSFixture(t, stubSessions{err: service.ErrSessionInvalid})

	// Events about other users do not trigger a session check.
	f.pub.Publish(context.Background(), service.NewRBACEvent(service.EventGrantAssigned, 2, 8))
	var other ws.ChangeResponse
	readJSON(t, f.conn, &other)
	assert.Equal(t, ws.EventRBACChange, other.Event)

	f.pub.Publish(context.Background(), service.NewRBACEvent(service.EventUserStatusChanged, 0, 7))
	var change ws.ChangeResponse
	readJSON(t, f.conn, &change)
	assert.Equal(t, ws.EventRBACChange, change.Event)

	var bye ws.ErrorResponse
	readJSON(t, f.conn, &bye)
	assert.Equal(t, "session revoked", bye.Error)

	require.NoError(t, f.conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := f.conn.ReadMessage()
	assert.Error(t, err)
}

func TestRBACEvents_ClosesAfterPasswordReset(t *testing.T) {
	f := newWSFixture(t, stubSessions{err: service.ErrSessionInvalid})

	f.pub.Publish(context.Background(), service.NewRBACEvent(service.EventSessionsRevoked, 0, 7))
	var change ws.ChangeResponse
	readJSON(t, f.conn, &change)
	assert.Equal(t, ws.EventRBACChange, change.Event)
	assert.Contains(t, string(change.Change), string(service.EventSessionsRevoked))

	var bye ws.ErrorResponse
	readJSON(t, f.conn, &bye)
	assert.Equal(t, "session revoked", bye.Error)
}
