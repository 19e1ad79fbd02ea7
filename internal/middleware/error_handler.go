package middleware

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"assogest/internal/models"
	"assogest/internal/services"
)

// ErrorResponse is the JSON error envelope. Fields is only present for
// validation failures and maps field names to messages.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// CustomErrorHandler maps service errors onto JSON responses
func CustomErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	resp := ErrorResponse{Error: "Internal server error"}

	var httpErr *echo.HTTPError
	var valErr *services.ValidationError

	switch {
	case errors.As(err, &valErr):
		code = http.StatusUnprocessableEntity
		resp.Error = "Validation failed"
		resp.Fields = valErr.Fields
	case errors.Is(err, gorm.ErrRecordNotFound):
		code = http.StatusNotFound
		resp.Error = "Resource not found"
	case errors.Is(err, services.ErrTemplateNotFound):
		code = http.StatusNotFound
		resp.Error = err.Error()
	case errors.Is(err, models.ErrInvalidTransition):
		code = http.StatusConflict
		resp.Error = err.Error()
	case services.IsTransientStorageError(err):
		code = http.StatusServiceUnavailable
		resp.Error = "Storage temporarily unavailable, retry later"
	case errors.As(err, &httpErr):
		code = httpErr.Code
		if msg, ok := httpErr.Message.(string); ok && msg != "" {
			resp.Error = msg
		} else {
			resp.Error = http.StatusText(code)
		}
	default:
		log.Printf("Unhandled error on %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}

	if writeErr := c.JSON(code, resp); writeErr != nil {
		log.Printf("Failed to write error response: %v", writeErr)
	}
}
