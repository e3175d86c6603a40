// Package handlers holds the gin handlers. Each handler translates HTTP to
// calls on the lifecycle engine, the stores or the report service and
// reports failures through utils.RespondError.
package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"telehealth-app-server/internal/apperrors"
	"telehealth-app-server/internal/guard"
	"telehealth-app-server/internal/middleware"
	"telehealth-app-server/internal/utils"
)

// currentCaller returns the authenticated identity or writes a 401.
func currentCaller(c *gin.Context, log *zap.Logger) (guard.Caller, bool) {
	caller, ok := middleware.CallerFromContext(c)
	if !ok {
		utils.RespondError(c, log, apperrors.Authentication("User not authenticated"))
		return guard.Caller{}, false
	}
	return caller, true
}
