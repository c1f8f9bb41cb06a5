package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/loopwork/loopwork/internal/apperror"
	authdomain "github.com/loopwork/loopwork/internal/auth/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type         string `json:"type"`
	Message      string `json:"message"`
	Field        string `json:"field,omitempty"`
	RequiredRole string `json:"required_role,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// ErrorHandlingMiddleware renders the last error attached to the gin
// context as a JSON error response. Handlers never write error bodies
// themselves; they call AbortWithError and return.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

// mapError translates the service error taxonomy onto HTTP statuses.
// Messages pass through untouched: clients match on them.
func mapError(err error) (int, errorPayload) {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return statusFor(appErr.Code), errorPayload{
			Type:         string(appErr.Code),
			Message:      appErr.Message,
			Field:        appErr.Field,
			RequiredRole: appErr.RequiredRole,
		}
	}

	switch {
	case errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked):
		return http.StatusUnauthorized, errorPayload{
			Type:    string(apperror.CodeUnauthenticated),
			Message: "Not authenticated",
		}
	case errors.Is(err, authdomain.ErrUserExists),
		errors.Is(err, authdomain.ErrEmailTaken):
		return http.StatusConflict, errorPayload{
			Type:    string(apperror.CodeConflict),
			Message: err.Error(),
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    string(apperror.CodeNotFound),
			Message: "Not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    string(apperror.CodeInternal),
			Message: "Internal server error",
		}
	}
}

func statusFor(code apperror.Code) int {
	switch code {
	case apperror.CodeUnauthenticated:
		return http.StatusUnauthorized
	case apperror.CodeForbidden:
		return http.StatusForbidden
	case apperror.CodeNotFound:
		return http.StatusNotFound
	case apperror.CodeValidation:
		return http.StatusBadRequest
	case apperror.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// classifyErrorForLog feeds the request logger's error fields.
func classifyErrorForLog(err error) (string, string) {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return "app_error", string(appErr.Code)
	}
	return "internal_error", "internal"
}
