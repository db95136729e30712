package handlers

import (
	"context"
	"net/http"

	"datekeeper/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the HTTP endpoints.
type Handler struct {
	admin  AdminAPI
	store  Pinger
	logger *zap.Logger
}

// NewHandler builds a Handler. admin may be nil when the admin API is disabled.
func NewHandler(admin AdminAPI, store Pinger, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{admin: admin, store: store, logger: logger.Named("http")}
}

// handleError provides a consistent way to handle and log errors
func (h *Handler) handleError(c *gin.Context, status int, message string, err error) {
	h.logger.Error(message,
		zap.Error(err),
		zap.String("path", c.FullPath()),
		zap.String("ip", utils.GetRealClientIP(c)),
	)
	utils.AbortWithError(c, status, message)
}

// HomeHandler handles requests to the root path "/"
func HomeHandler(c *gin.Context) {
	c.String(http.StatusOK, "Welcome to datekeeper!")
}

// HealthHandler checks that the store answers
func (h *Handler) HealthHandler(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		h.handleError(c, http.StatusServiceUnavailable, "database unavailable", err)
		return
	}
	c.String(http.StatusOK, "OK")
}
