package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/factorytrack/factory-backend/internal/logger"
	"github.com/factorytrack/factory-backend/internal/model"
	"github.com/factorytrack/factory-backend/internal/response"
	"github.com/factorytrack/factory-backend/internal/service"
	"github.com/factorytrack/factory-backend/internal/validator"
)

// RoleHandler handles role management endpoints.
type RoleHandler struct {
	service *service.RoleService
	log     zerolog.Logger
}

func NewRoleHandler(service *service.RoleService, log zerolog.Logger) *RoleHandler {
	return &RoleHandler{
		service: service,
		log:     logger.Component(log, "role_handler"),
	}
}

// List gets all roles with their user and permission counts.
func (h *RoleHandler) List(c *gin.Context) {
	roles, err := h.service.ListRoles(c.Request.Context())
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, roles)
}

// Get gets a role and its permissions by ID.
func (h *RoleHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	role, err := h.service.GetRole(c.Request.Context(), id)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, role)
}

// Create creates a new, non-system role without permissions.
func (h *RoleHandler) Create(c *gin.Context) {
	var req model.CreateRoleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	role, err := h.service.CreateRole(c.Request.Context(), req)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, role)
}

// Update changes a role's name, description or active flag.
func (h *RoleHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateRoleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	role, err := h.service.UpdateRole(c.Request.Context(), id, req)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, role)
}

// Delete godoc
// DELETE /api/v1/roles/:id?reassign_to=
// Deletes a non-system role. With reassign_to, the role's active holders are
// granted the target role first.
func (h *RoleHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var reassignTo *int
	if raw := c.Query("reassign_to"); raw != "" {
		target, err := strconv.Atoi(raw)
		if err != nil || target <= 0 {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
				"reassign_to": "reassign_to must be a positive integer",
			})
			return
		}
		reassignTo = &target
	}

	result, err := h.service.DeleteRole(c.Request.Context(), id, reassignTo)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// GetPermissions lists the permissions linked to a role.
func (h *RoleHandler) GetPermissions(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	perms, err := h.service.ListRolePermissions(c.Request.Context(), id)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, perms)
}

// ReplacePermissions godoc
// PUT /api/v1/roles/:id/permissions
// Makes the role's permission set exactly the submitted ids and reports the diff.
func (h *RoleHandler) ReplacePermissions(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.ReplacePermissionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	diff, err := h.service.ReplacePermissions(c.Request.Context(), id, req.PermissionIDs)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, diff)
}

// ListUsers lists the users actively holding a role.
func (h *RoleHandler) ListUsers(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	users, err := h.service.ListRoleUsers(c.Request.Context(), id)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, users)
}
