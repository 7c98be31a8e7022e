package websocket

import (
	"encoding/json"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action of a client message.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError      Event = "error"
	EventPong       Event = "pong"
	EventReady      Event = "ready"
	EventRBACChange Event = "rbac_change"
)

// ReadyResponse is sent once the subscription is live.
type ReadyResponse struct {
	Event  Event `json:"event"`
	UserID int   `json:"user_id"`
}

// ChangeResponse forwards one access-control change as published.
type ChangeResponse struct {
	Event  Event           `json:"event"`
	Change json.RawMessage `json:"change"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
