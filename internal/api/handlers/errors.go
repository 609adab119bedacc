package handlers

import (
	"errors"
	"net/http"

	"github.com/andresuchdata/ddmrp/internal/domain"
	"github.com/andresuchdata/ddmrp/internal/engine"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidEdit),
		errors.Is(err, domain.ErrInvalidConfig),
		errors.Is(err, domain.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrDraftExists),
		errors.Is(err, domain.ErrNoOrderNeeded):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg(message)
	}

	body := gin.H{"error": message, "details": err.Error()}
	var verr *engine.ValidationError
	if errors.As(err, &verr) {
		body["field"] = verr.Field
		body["details"] = verr.Message
	}
	c.JSON(status, body)
}
