package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/floodline/portal-api/internal/transport/http/middleware"
)

// ErrorResponse represents a generic error payload with the request ID for
// debugging.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// NewErrorResponse creates an error response carrying the request ID from the
// gin context.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:     errorMsg,
		RequestID: middleware.GetRequestID(c),
	}
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ResetRequest carries the shared secret guarding the reset endpoint.
type ResetRequest struct {
	Secret string `json:"secret" binding:"required"`
}
