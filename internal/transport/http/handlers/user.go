package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/floodline/portal-api/internal/core/domain"
	"github.com/floodline/portal-api/internal/transport/http/middleware"
	"github.com/floodline/portal-api/internal/usecase"
)

// UserHandler exposes the login, logout, and user lookup endpoints.
type UserHandler struct {
	auth *usecase.AuthService
}

// NewUserHandler constructs UserHandler.
func NewUserHandler(auth *usecase.AuthService) *UserHandler {
	return &UserHandler{auth: auth}
}

// RegisterRoutes binds user routes. The auth middleware protects everything
// except login; loginMiddlewares (throttling) run ahead of the login handler.
func (h *UserHandler) RegisterRoutes(r *gin.RouterGroup, requireAuth gin.HandlerFunc, loginMiddlewares ...gin.HandlerFunc) {
	chain := append([]gin.HandlerFunc{}, loginMiddlewares...)
	chain = append(chain, h.login)
	r.POST("/users/login", chain...)

	r.POST("/users/logout", requireAuth, h.logout)
	r.GET("/users/current", requireAuth, h.current)
	r.GET("/users", requireAuth, h.list)
}

// login verifies credentials and issues the session cookie for the requesting
// interface. The response body always carries the token under the general
// cookie name; only the Set-Cookie name varies per interface.
func (h *UserHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "username and password are required"))
		return
	}

	origin := c.GetHeader(domain.InterfaceNameHeader)

	result, err := h.auth.Login(c.Request.Context(), req.Username, req.Password, origin)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "wrong username and/or password"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to log in"))
		return
	}

	setSessionCookie(c, result.Cookie, result.Token)

	c.JSON(http.StatusCreated, gin.H{
		"username":                   result.User.Username,
		string(domain.CookieGeneral): result.Token,
		"expires":                    result.Cookie.Expires.UTC().Format(time.RFC3339),
		"isAdmin":                    result.User.IsAdmin,
	})
}

// logout clears the session cookie for the requesting interface. The token
// itself is not revoked server side.
func (h *UserHandler) logout(c *gin.Context) {
	origin := c.GetHeader(domain.InterfaceNameHeader)
	setSessionCookie(c, h.auth.ExpiredCookie(origin), "")

	c.Status(http.StatusOK)
}

func (h *UserHandler) current(c *gin.Context) {
	claims := middleware.GetSessionClaims(c)
	if claims == nil || claims.Username == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "no user detectable from cookie"))
		return
	}

	user, err := h.auth.CurrentUser(c.Request.Context(), claims.Username)
	if err != nil {
		if errors.Is(err, usecase.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "no user detectable from cookie"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to look up current user"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *UserHandler) list(c *gin.Context) {
	users, err := h.auth.ListUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list users"))
		return
	}

	c.JSON(http.StatusOK, users)
}

// setSessionCookie applies a cookie policy to the response. gin's SetCookie
// does not expose an Expires attribute, so the cookie is written directly.
func setSessionCookie(c *gin.Context, policy usecase.CookiePolicy, token string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     string(policy.Name),
		Value:    token,
		Path:     "/",
		Expires:  policy.Expires,
		Secure:   policy.Secure,
		HttpOnly: policy.HTTPOnly,
		SameSite: policy.SameSite,
	})
}
