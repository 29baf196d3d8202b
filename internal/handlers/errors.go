package handlers

import (
	"errors"
	"net/http"

	"github.com/dimitrije/playdate-api/internal/apperror"
	"github.com/dimitrije/playdate-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	log "github.com/sirupsen/logrus"
)

// respondError maps an engine error onto its HTTP status. Conflicts carry
// the id of the entity they collided with.
func respondError(c *drift.Context, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		log.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
		_ = c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
		return
	}

	body := dto.ErrorResponse{Error: appErr.Message, Code: string(appErr.Code)}
	switch appErr.Kind {
	case apperror.KindValidation:
		_ = c.JSON(http.StatusBadRequest, body)
	case apperror.KindForbidden:
		_ = c.JSON(http.StatusForbidden, body)
	case apperror.KindNotFound:
		_ = c.JSON(http.StatusNotFound, body)
	case apperror.KindConflict:
		if appErr.ExistingID != uuid.Nil {
			id := appErr.ExistingID
			body.ExistingID = &id
		}
		_ = c.JSON(http.StatusConflict, body)
	case apperror.KindTransient:
		log.WithError(err).WithField("path", c.Request.URL.Path).Warn("transient store failure")
		c.Response.Header().Set("Retry-After", "1")
		_ = c.JSON(http.StatusServiceUnavailable, body)
	default:
		log.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
		_ = c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}
}
