package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/harold2001/financer-manager-api/shared/errs"
	"github.com/harold2001/financer-manager-api/shared/logger"
	"github.com/harold2001/financer-manager-api/shared/middleware"
	"github.com/rs/zerolog"
)

// errorMessages are the client-facing texts for one endpoint.
type errorMessages struct {
	notFound  string
	forbidden string
	fallback  string
}

// respondWithServiceError maps service errors to status codes. Anything not in
// the taxonomy is logged and hidden behind the fallback message.
func respondWithServiceError(c *gin.Context, log zerolog.Logger, err error, msgs errorMessages) {
	if ve, ok := errs.AsValidation(err); ok {
		middleware.RespondWithValidationError(c, ve.Details)
		return
	}
	switch {
	case errors.Is(err, errs.ErrNotFound):
		middleware.RespondWithError(c, http.StatusNotFound, msgs.notFound)
	case errors.Is(err, errs.ErrForbidden):
		middleware.RespondWithError(c, http.StatusForbidden, msgs.forbidden)
	case errors.Is(err, errs.ErrUnauthorized):
		middleware.RespondWithError(c, http.StatusUnauthorized, "Invalid or expired token")
	case errors.Is(err, errs.ErrInvalidCredentials):
		middleware.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, errs.ErrDuplicateEmail):
		middleware.RespondWithError(c, http.StatusBadRequest, "Email already registered")
	case errors.Is(err, errs.ErrWeakPassword):
		middleware.RespondWithValidationError(c, []middleware.ValidationError{{
			Field:   "password",
			Message: err.Error(),
			Type:    "min",
		}})
	case errors.Is(err, errs.ErrConflict):
		middleware.RespondWithError(c, http.StatusConflict, "Resource already exists")
	default:
		_ = c.Error(err)
		reqLog := logger.FromContext(c.Request.Context(), log)
		reqLog.Error().Err(err).Str("method", c.Request.Method).Str("path", c.Request.URL.Path).Msg(msgs.fallback)
		middleware.RespondWithError(c, http.StatusInternalServerError, msgs.fallback)
	}
}

// callerID returns the uid set by the auth middleware.
func callerID(c *gin.Context) string {
	uid, _ := middleware.GetUserID(c)
	return uid
}
