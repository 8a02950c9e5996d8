package errors

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-tracker/internal/constants"
	"go.uber.org/zap"
)

// Error codes
const (
	// Resource errors
	ErrCodeNotFound = "NOT_FOUND"

	// Service errors
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// Template rendered for error pages
const errorTemplate = "error.html"

// APIError represents a standardized error payload
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new APIError
func NewAPIError(code, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

// Predefined errors
var (
	ErrNotFound           = NewAPIError(ErrCodeNotFound, "Page not found")
	ErrInternalError      = NewAPIError(ErrCodeInternalError, constants.MsgInternal)
	ErrServiceUnavailable = NewAPIError(ErrCodeServiceUnavailable, "Service temporarily unavailable")
)

// RespondWithError sends an error as JSON
func RespondWithError(c *gin.Context, statusCode int, err *APIError) {
	c.JSON(statusCode, err)
}

// ServiceUnavailable sends a 503 JSON response
func ServiceUnavailable(c *gin.Context, message string) {
	if message == "" {
		message = ErrServiceUnavailable.Message
	}
	RespondWithError(c, http.StatusServiceUnavailable, NewAPIError(ErrCodeServiceUnavailable, message))
}

// RedirectWithError sends the browser to path with a message the page
// shows as a flash error.
func RedirectWithError(c *gin.Context, path, message string) {
	c.Redirect(http.StatusSeeOther, path+"?error="+url.QueryEscape(message))
}

// RenderError renders the error page
func RenderError(c *gin.Context, statusCode int, err *APIError) {
	c.HTML(statusCode, errorTemplate, gin.H{
		"code":    err.Code,
		"message": err.Message,
		"status":  statusCode,
	})
}

// NotFound renders a 404 page
func NotFound(c *gin.Context) {
	RenderError(c, http.StatusNotFound, ErrNotFound)
}

// InternalError logs err and renders a 500 page without exposing it
func InternalError(c *gin.Context, err error) {
	zap.L().Error("Request failed",
		zap.String("request_id", c.GetString(constants.ContextKeyRequestID)),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	RenderError(c, http.StatusInternalServerError, ErrInternalError)
}
