package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/factorytrack/factory-backend/internal/repository"
	"github.com/factorytrack/factory-backend/internal/response"
	"github.com/factorytrack/factory-backend/internal/service"
)

// failFromError writes the envelope matching a service error. Unknown errors
// are logged and reported as 500 without leaking their text.
func failFromError(c *gin.Context, log zerolog.Logger, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		code := response.ErrValidation
		if _, ok := verr.Details["unknown_permission_ids"]; ok {
			code = response.ErrUnknownPermissions
		}
		response.FailWithDetails(c, http.StatusBadRequest, code, verr.Fields, verr.Details)
		return
	}

	switch {
	case errors.Is(err, service.ErrProtectedRole):
		response.Fail(c, http.StatusForbidden, response.ErrProtectedResource)
	case errors.Is(err, service.ErrRoleNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrRoleNotFound)
	case errors.Is(err, service.ErrUserNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrUserNotFound)
	case errors.Is(err, service.ErrGrantNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrGrantNotFound)
	case errors.Is(err, service.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrRoleNameTaken):
		response.Fail(c, http.StatusConflict, response.ErrRoleNameTaken)
	case errors.Is(err, service.ErrUsernameTaken):
		response.Fail(c, http.StatusConflict, response.ErrUsernameTaken)
	case errors.Is(err, service.ErrPermissionExists):
		response.Fail(c, http.StatusConflict, response.ErrPermissionExists)
	case errors.Is(err, repository.ErrReferenced):
		response.Fail(c, http.StatusConflict, response.ErrDependencyExists)
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
	case errors.Is(err, service.ErrUserInactive):
		response.Fail(c, http.StatusForbidden, response.ErrAccountInactive)
	case errors.Is(err, service.ErrSessionInvalid):
		response.Fail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
	default:
		_ = c.Error(err)
		log.Error().Err(err).
			Str("path", c.FullPath()).
			Str("request_id", response.RequestID(c)).
			Msg("Request failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// paramID parses a positive integer path parameter, writing INVALID_ID on failure.
func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}
