package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"telehealth-app-server/internal/store"
)

type HealthHandler struct {
	Store *store.Store
	Log   *zap.Logger
}

func NewHealthHandler(st *store.Store, log *zap.Logger) *HealthHandler {
	return &HealthHandler{Store: st, Log: log}
}

// Health reports whether the database answers.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.Store.Ping(ctx); err != nil {
		h.Log.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN", "database": "unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "UP", "database": "up"})
}
