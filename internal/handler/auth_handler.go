package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/factorytrack/factory-backend/internal/logger"
	"github.com/factorytrack/factory-backend/internal/middleware"
	"github.com/factorytrack/factory-backend/internal/model"
	"github.com/factorytrack/factory-backend/internal/response"
	"github.com/factorytrack/factory-backend/internal/service"
	"github.com/factorytrack/factory-backend/internal/validator"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService  *service.AuthService
	userService  *service.UserService
	authzService *service.AuthorizationService
	log          zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	authService *service.AuthService,
	userService *service.UserService,
	authzService *service.AuthorizationService,
	log zerolog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		userService:  userService,
		authzService: authzService,
		log:          logger.Component(log, "auth_handler"),
	}
}

// Login godoc
// POST /api/v1/auth/login
// Validates username + password, returns a JWT with the user's roles and permissions.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}

// Logout godoc
// POST /api/v1/auth/logout
// Ends the session the presented token belongs to.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), claims.UserID, claims.ID); err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// Me godoc
// GET /api/v1/auth/me
// Returns the current user, their role grants and effective permissions.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), claims.UserID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	access, err := h.authzService.AccessibleModules(c.Request.Context(), claims.UserID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user":        user,
		"modules":     access.Modules,
		"permissions": access.Permissions,
	})
}

// Check godoc
// GET /api/v1/auth/check?module=&action=&resource=
// Evaluates a single permission for the current user without side effects.
func (h *AuthHandler) Check(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	module := model.Module(c.Query("module"))
	action := model.Action(c.Query("action"))
	resource := c.Query("resource")

	fields := map[string]string{}
	if !module.Valid() {
		fields["module"] = "module must be a known module"
	}
	if !action.Valid() {
		fields["action"] = "action must be a known action"
	}
	if len(fields) > 0 {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	decision, err := h.authzService.Authorize(c.Request.Context(), claims.UserID, module, action, resource)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"permission": model.PermissionKey(module, action, resource),
		"allowed":    decision.Allowed,
		"reason":     decision.Reason,
	})
}
