package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/floodline/portal-api/internal/core/domain"
	"github.com/floodline/portal-api/internal/usecase"
)

const resetTimeout = 10 * time.Minute

// ScriptsHandler exposes the secret-guarded database reset endpoint.
type ScriptsHandler struct {
	reset       *usecase.ResetService
	resetSecret string
	log         *zap.Logger
}

// NewScriptsHandler constructs ScriptsHandler.
func NewScriptsHandler(reset *usecase.ResetService, resetSecret string, log *zap.Logger) *ScriptsHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ScriptsHandler{reset: reset, resetSecret: resetSecret, log: log}
}

// RegisterRoutes binds the scripts routes.
func (h *ScriptsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/scripts/reset", h.resetDB)
}

// resetDB validates the shared secret and the baseline name, then runs the
// reset in the background. The 202 response only acknowledges that the
// request was accepted; completion is observable through the logs.
func (h *ScriptsHandler) resetDB(c *gin.Context) {
	var req ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "secret is required"))
		return
	}

	if h.resetSecret == "" || subtle.ConstantTimeCompare([]byte(req.Secret), []byte(h.resetSecret)) != 1 {
		c.String(http.StatusForbidden, "Not allowed")
		return
	}

	baselineName := c.Query("script")
	if _, ok := domain.FindBaseline(baselineName); !ok {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "unknown seed script"))
		return
	}

	isAPITests, _ := strconv.ParseBool(c.Query("isApiTests"))
	opts := usecase.ResetOptions{
		TestMode:   isAPITests,
		Identifier: c.Query("resetIdentifier"),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), resetTimeout)
		defer cancel()

		if err := h.reset.ResetToBaseline(ctx, baselineName, opts); err != nil {
			h.log.Error("background reset failed",
				zap.String("baseline", baselineName),
				zap.Error(err),
			)
		}
	}()

	c.String(http.StatusAccepted, "Request received. Database should be reset.")
}
