package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"datekeeper/internal/auth"
	"datekeeper/internal/models"
	"datekeeper/internal/services"
	"datekeeper/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminAPI is the part of the admin service exposed over HTTP.
type AdminAPI interface {
	Stats(ctx context.Context) (models.Stats, error)
	Broadcast(ctx context.Context, adminID, text string) (services.BroadcastResult, error)
	RecentBroadcasts(ctx context.Context, limit int) ([]models.Broadcast, error)
}

const maxBroadcastListLimit = 100

// GetStats returns the usage summary
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.admin.Stats(c.Request.Context())
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to collect statistics", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// PostBroadcast sends a message to every user and returns the delivery summary
func (h *Handler) PostBroadcast(c *gin.Context) {
	var req models.BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.AbortWithError(c, http.StatusBadRequest, "message is required")
		return
	}

	result, err := h.admin.Broadcast(c.Request.Context(), c.GetString(auth.AdminIDKey), req.Message)
	if errors.Is(err, services.ErrEmptyBroadcast) {
		utils.AbortWithError(c, http.StatusBadRequest, "message is required")
		return
	}
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Broadcast failed", err)
		return
	}

	h.logger.Info("broadcast sent via API",
		zap.String("broadcast_id", result.ID),
		zap.Int("success", result.Success),
		zap.Int("failed", result.Failed),
	)
	c.JSON(http.StatusOK, result)
}

// ListBroadcasts returns the latest broadcast audit records
func (h *Handler) ListBroadcasts(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			utils.AbortWithError(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxBroadcastListLimit)
	}

	list, err := h.admin.RecentBroadcasts(c.Request.Context(), limit)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to list broadcasts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"broadcasts": list})
}
