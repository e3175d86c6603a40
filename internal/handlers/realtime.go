package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"telehealth-app-server/internal/apperrors"
	"telehealth-app-server/internal/config"
	"telehealth-app-server/internal/middleware"
	"telehealth-app-server/internal/relay"
	"telehealth-app-server/internal/utils"
)

// RealtimeHandler upgrades authenticated clients to the push channel.
type RealtimeHandler struct {
	Hub *relay.Hub
	Cfg *config.Config
	Log *zap.Logger
}

func NewRealtimeHandler(hub *relay.Hub, cfg *config.Config, log *zap.Logger) *RealtimeHandler {
	return &RealtimeHandler{Hub: hub, Cfg: cfg, Log: log}
}

// Connect authenticates with the token query parameter, since browsers
// cannot set headers on a websocket handshake.
func (h *RealtimeHandler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		utils.RespondError(c, h.Log, apperrors.Authentication("token query parameter required"))
		return
	}

	caller, err := middleware.Authenticate(token, h.Cfg)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}

	if err := h.Hub.Serve(c.Writer, c.Request, caller.UserID); err != nil {
		// The upgrader has already written the handshake error.
		h.Log.Debug("websocket upgrade failed", zap.String("user_id", caller.UserID), zap.Error(err))
	}
}
