package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/meroguru/meroguru-backend/internal/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondServiceError maps the pipeline error taxonomy onto HTTP statuses.
// Internal detail never reaches the client for 5xx conditions.
func RespondServiceError(c *gin.Context, err error) {
	apiErr := classifyServiceError(err)
	RespondError(c, apiErr.Status, apiErr.Code, apiErr)
}

func classifyServiceError(err error) *apierr.Error {
	switch {
	case errors.Is(err, apierr.ErrValidation):
		return apierr.New(http.StatusBadRequest, "validation_error", err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apierr.New(http.StatusNotFound, "not_found", errors.New("not found"))
	case errors.Is(err, apierr.ErrStoreUnavailable):
		return apierr.New(http.StatusServiceUnavailable, "store_unavailable", errors.New("storage unavailable"))
	case errors.Is(err, apierr.ErrIndexUnavailable):
		return apierr.New(http.StatusServiceUnavailable, "index_unavailable", errors.New("vector index unavailable"))
	case errors.Is(err, apierr.ErrGenerationFailed):
		return apierr.New(http.StatusBadGateway, "generation_failed", errors.New("failed to generate response"))
	default:
		return apierr.New(http.StatusInternalServerError, "internal_error", errors.New("internal server error"))
	}
}
