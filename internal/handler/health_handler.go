package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/factorytrack/factory-backend/internal/database"
	"github.com/factorytrack/factory-backend/internal/logger"
	"github.com/factorytrack/factory-backend/internal/response"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck names a backing service probed by GET /health.
type HealthCheck struct {
	Name   string
	Pinger database.Pinger
}

// HealthHandler reports whether the backing services are reachable.
type HealthHandler struct {
	checks []HealthCheck
	log    zerolog.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(log zerolog.Logger, checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{
		checks: checks,
		log:    logger.Component(log, "health_handler"),
	}
}

// Health godoc
// GET /health
// 200 when every dependency answers a ping, 503 with the failing ones otherwise.
func (h *HealthHandler) Health(c *gin.Context) {
	status := make(map[string]string, len(h.checks))
	healthy := true
	for _, chk := range h.checks {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		err := chk.Pinger.Ping(ctx)
		cancel()
		if err != nil {
			healthy = false
			status[chk.Name] = "down"
			h.log.Warn().Err(err).Str("dependency", chk.Name).Msg("Health check failed")
			continue
		}
		status[chk.Name] = "ok"
	}

	if !healthy {
		response.FailWithDetails(c, http.StatusServiceUnavailable, response.ErrServiceUnavailable, nil,
			map[string]any{"checks": status})
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": "ok", "checks": status})
}
