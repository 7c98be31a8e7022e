package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/factorytrack/factory-backend/internal/logger"
	"github.com/factorytrack/factory-backend/internal/middleware"
	"github.com/factorytrack/factory-backend/internal/response"
	"github.com/factorytrack/factory-backend/internal/service"
)

// DashboardHandler handles admin dashboard endpoints.
type DashboardHandler struct {
	dashboardService *service.DashboardService
	authzService     *service.AuthorizationService
	log              zerolog.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService *service.DashboardService, authzService *service.AuthorizationService, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		authzService:     authzService,
		log:              logger.Component(log, "dashboard_handler"),
	}
}

// Overview godoc
// GET /api/v1/dashboard
// Returns user, role and permission counts, role distribution and module coverage.
func (h *DashboardHandler) Overview(c *gin.Context) {
	data, err := h.dashboardService.Overview(c.Request.Context())
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, data)
}

// Access godoc
// GET /api/v1/dashboard/access
// Returns the modules the caller can read, for building navigation.
func (h *DashboardHandler) Access(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	access, err := h.authzService.AccessibleModules(c.Request.Context(), claims.UserID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, access)
}
