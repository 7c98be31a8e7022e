package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/factorytrack/factory-backend/internal/config"
	"github.com/factorytrack/factory-backend/internal/logger"
	"github.com/factorytrack/factory-backend/internal/metrics"
	"github.com/factorytrack/factory-backend/internal/middleware"
	"github.com/factorytrack/factory-backend/internal/response"
	"github.com/factorytrack/factory-backend/internal/service"
	ws "github.com/factorytrack/factory-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams access-control change events to connected clients.
type WSHandler struct {
	rdb      *redis.Client
	sessions middleware.SessionValidator
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(rdb *redis.Client, sessions middleware.SessionValidator, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		rdb:      rdb,
		sessions: sessions,
		log:      logger.Component(log, "ws_handler"),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// RBACEvents godoc
// WS /ws/v1/rbac/events?token=
// Forwards every published role, grant and user-status change so a client can
// refresh its cached permission view. The stream closes when the caller's own
// session is revoked.
func (h *WSHandler) RBACEvents(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := h.rdb.Subscribe(ctx, config.CacheKey.RBACEventsChannel())
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		h.log.Error().Err(err).Msg("RBAC event subscription failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	metrics.WebSocketClients.Inc()
	defer metrics.WebSocketClients.Dec()

	wsLog := h.log.With().Int("user_id", claims.UserID).Logger()
	wsLog.Info().Msg("RBAC event client connected")

	// gorilla connections allow one concurrent writer.
	var writeMu sync.Mutex
	write := func(v interface{}) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return ws.WriteTyped(conn, v)
	}

	if err := write(ws.ReadyResponse{Event: ws.EventReady, UserID: claims.UserID}); err != nil {
		return
	}

	go h.readLoop(conn, cancel, write, wsLog)

	ticker := time.NewTicker(ws.PingPeriod)
	defer ticker.Stop()
	events := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			wsLog.Debug().Msg("Connection closed")
			return

		case msg, ok := <-events:
			if !ok {
				return
			}
			if err := write(ws.ChangeResponse{Event: ws.EventRBACChange, Change: json.RawMessage(msg.Payload)}); err != nil {
				wsLog.Debug().Err(err).Msg("Write failed")
				return
			}
			if h.affectsCaller(msg.Payload, claims.UserID) {
				if err := h.sessions.ValidateSession(ctx, claims.UserID, claims.ID); err != nil {
					_ = write(ws.ErrorResponse{Event: ws.EventError, Error: "session revoked"})
					wsLog.Info().Msg("Closing stream of revoked session")
					return
				}
			}

		case <-ticker.C:
			writeMu.Lock()
			err := ws.WritePing(conn)
			writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// readLoop answers ping actions and cancels the stream once the peer goes away.
func (h *WSHandler) readLoop(conn *websocket.Conn, cancel context.CancelFunc, write func(interface{}) error, wsLog zerolog.Logger) {
	defer cancel()
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(ws.PongWait))
	})

	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			}
			return
		}

		switch msg.Action {
		case ws.ActionPing:
			if err := write(ws.PongResponse{Event: ws.EventPong}); err != nil {
				return
			}
		default:
			if err := write(ws.ErrorResponse{Event: ws.EventError, Error: "unknown action: " + string(msg.Action)}); err != nil {
				return
			}
		}
	}
}

func (h *WSHandler) affectsCaller(payload string, userID int) bool {
	var ev service.RBACEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return false
	}
	return ev.UserID == userID
}
