package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/factorytrack/factory-backend/internal/logger"
	"github.com/factorytrack/factory-backend/internal/model"
	"github.com/factorytrack/factory-backend/internal/response"
	"github.com/factorytrack/factory-backend/internal/service"
	"github.com/factorytrack/factory-backend/internal/validator"
)

// PermissionHandler serves the permission catalog.
type PermissionHandler struct {
	service *service.PermissionService
	log     zerolog.Logger
}

func NewPermissionHandler(service *service.PermissionService, log zerolog.Logger) *PermissionHandler {
	return &PermissionHandler{
		service: service,
		log:     logger.Component(log, "permission_handler"),
	}
}

// List godoc
// GET /api/v1/permissions?module=
// Lists catalog permissions, optionally for one module.
func (h *PermissionHandler) List(c *gin.Context) {
	perms, err := h.service.ListPermissions(c.Request.Context(), model.Module(c.Query("module")))
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, perms)
}

// Catalog returns the known modules and actions.
func (h *PermissionHandler) Catalog(c *gin.Context) {
	response.Success(c, http.StatusOK, h.service.Catalog())
}

// Create adds a new permission triple to the catalog.
func (h *PermissionHandler) Create(c *gin.Context) {
	var req model.CreatePermissionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	perm, err := h.service.CreatePermission(c.Request.Context(), req)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, perm)
}
