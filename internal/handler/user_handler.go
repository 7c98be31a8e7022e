package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/factorytrack/factory-backend/internal/logger"
	"github.com/factorytrack/factory-backend/internal/model"
	"github.com/factorytrack/factory-backend/internal/response"
	"github.com/factorytrack/factory-backend/internal/service"
	"github.com/factorytrack/factory-backend/internal/validator"
)

// UserHandler handles user management and role assignment endpoints.
type UserHandler struct {
	service      *service.UserService
	authzService *service.AuthorizationService
	log          zerolog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service *service.UserService, authzService *service.AuthorizationService, log zerolog.Logger) *UserHandler {
	return &UserHandler{
		service:      service,
		authzService: authzService,
		log:          logger.Component(log, "user_handler"),
	}
}

// List godoc
// GET /api/v1/users?page=&per_page=&role_id=&is_active=&search=
// Lists users with pagination and optional filters.
func (h *UserHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))
	roleID, _ := strconv.Atoi(c.Query("role_id"))

	filter := model.UserFilter{
		RoleID:  roleID,
		Search:  strings.TrimSpace(c.Query("search")),
		Page:    page,
		PerPage: perPage,
	}
	if raw := c.Query("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
				"is_active": "is_active must be true or false",
			})
			return
		}
		filter.IsActive = &active
	}
	filter.Normalize()

	users, total, err := h.service.ListUsers(c.Request.Context(), filter)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, users,
		response.NewPagination(filter.Page, filter.PerPage, total))
}

// Create godoc
// POST /api/v1/users
// Creates a user, optionally granting roles in the same transaction.
func (h *UserHandler) Create(c *gin.Context) {
	var req model.CreateUserRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	user, err := h.service.CreateUser(c.Request.Context(), req)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, user)
}

// Get returns a user with every grant, active or revoked.
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	user, err := h.service.GetUser(c.Request.Context(), id)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// Update changes a user's profile fields.
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateUserRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	user, err := h.service.UpdateUser(c.Request.Context(), id, req)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// SetStatus godoc
// PATCH /api/v1/users/:id/status
// Activates or deactivates a user. Deactivation ends their sessions.
func (h *UserHandler) SetStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.SetUserStatusRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	user, err := h.service.SetActive(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// ResetPassword sets a new password and ends the user's sessions.
func (h *UserHandler) ResetPassword(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.ResetPasswordRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.service.ResetPassword(c.Request.Context(), id, req.Password); err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// Permissions godoc
// GET /api/v1/users/:id/permissions
// Returns the user's effective permissions, the union over their active roles.
func (h *UserHandler) Permissions(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if _, err := h.service.GetUser(c.Request.Context(), id); err != nil {
		failFromError(c, h.log, err)
		return
	}

	access, err := h.authzService.AccessibleModules(c.Request.Context(), id)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user_id":     id,
		"modules":     access.Modules,
		"permissions": access.Permissions,
	})
}

// AssignRole godoc
// POST /api/v1/users/:id/roles
// Grants a role. Re-assigning a revoked role reactivates the existing grant.
func (h *UserHandler) AssignRole(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.AssignRoleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	grants, created, err := h.service.AssignRole(c.Request.Context(), id, req.RoleID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.Success(c, status, gin.H{"user_id": id, "roles": grants})
}

// RevokeRole godoc
// DELETE /api/v1/users/:id/roles/:role_id
// Deactivates the user's grant of a role.
func (h *UserHandler) RevokeRole(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	roleID, ok := paramID(c, "role_id")
	if !ok {
		return
	}

	grants, err := h.service.RevokeRole(c.Request.Context(), id, roleID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user_id": id, "roles": grants})
}
