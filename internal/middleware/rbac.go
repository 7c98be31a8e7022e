package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/factorytrack/factory-backend/internal/logger"
	"github.com/factorytrack/factory-backend/internal/model"
	"github.com/factorytrack/factory-backend/internal/response"
	"github.com/factorytrack/factory-backend/internal/service"
)

// Authorizer decides access requests. *service.AuthorizationService implements it.
type Authorizer interface {
	Authorize(ctx context.Context, userID int, module model.Module, action model.Action, resource string) (service.Decision, error)
}

// PermissionGuard builds per-route permission middleware around one Authorizer.
type PermissionGuard struct {
	authz Authorizer
	log   zerolog.Logger
}

// NewPermissionGuard creates a new PermissionGuard.
func NewPermissionGuard(authz Authorizer, log zerolog.Logger) *PermissionGuard {
	return &PermissionGuard{
		authz: authz,
		log:   logger.Component(log, "rbac_middleware"),
	}
}

// RequirePermission lets the request through only when the caller holds
// (module, action, resource). An empty resource asks for module-wide access.
// The decision is evaluated against the store on every request.
func (g *PermissionGuard) RequirePermission(module model.Module, action model.Action, resource string) gin.HandlerFunc {
	required := map[string]any{
		"module":     module,
		"action":     action,
		"permission": model.PermissionKey(module, action, resource),
	}
	if resource != "" {
		required["resource"] = resource
	}

	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		decision, err := g.authz.Authorize(c.Request.Context(), claims.UserID, module, action, resource)
		if err != nil {
			g.log.Error().Err(err).Int("user_id", claims.UserID).Msg("Authorization lookup failed")
			response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
			return
		}
		if !decision.Allowed {
			details := make(map[string]any, len(required)+1)
			for k, v := range required {
				details[k] = v
			}
			details["reason"] = decision.Reason
			response.AbortFailWithDetails(c, http.StatusForbidden, response.ErrPermissionDenied, details)
			return
		}

		c.Next()
	}
}
