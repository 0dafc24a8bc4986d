package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/floodline/portal-api/internal/core/domain"
	"github.com/floodline/portal-api/internal/infra/security"
)

const (
	// ClaimsKey is the gin context key the parsed session claims live under.
	ClaimsKey = "session_claims"
	// UsernameKey is the gin context key for the authenticated username.
	UsernameKey = "username"
)

// ErrorResponse matches the handlers.ErrorResponse structure.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:     errorMsg,
		RequestID: GetRequestID(c),
	}
}

// RequireAuth validates the session cookie for the requesting interface and
// stores the parsed claims in the gin context. The cookie name is derived
// from the interface-name header the same way login derives it, so a session
// issued to one interface does not authenticate another.
func RequireAuth(signer *security.SessionSigner, adminOnly bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookieName := domain.ResolveCookieName(c.GetHeader(domain.InterfaceNameHeader))

		token, err := c.Cookie(string(cookieName))
		if err != nil || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing session cookie"))
			return
		}

		claims, err := signer.Parse(token)
		if err != nil {
			switch {
			case errors.Is(err, security.ErrExpiredToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "session expired"))
			default:
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "invalid session"))
			}
			return
		}

		if adminOnly && !claims.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, "administrator access required"))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(UsernameKey, claims.Username)

		c.Next()
	}
}

// GetSessionClaims retrieves the parsed session claims from the gin context.
// Returns nil when no authenticated session is attached.
func GetSessionClaims(c *gin.Context) *security.SessionClaims {
	if value, exists := c.Get(ClaimsKey); exists {
		if claims, ok := value.(*security.SessionClaims); ok {
			return claims
		}
	}
	return nil
}
