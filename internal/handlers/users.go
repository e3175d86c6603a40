package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"telehealth-app-server/internal/models"
	"telehealth-app-server/internal/store"
	"telehealth-app-server/internal/utils"
)

// UserHandler serves the user directory.
type UserHandler struct {
	Store *store.Store
	Log   *zap.Logger
}

func NewUserHandler(st *store.Store, log *zap.Logger) *UserHandler {
	return &UserHandler{Store: st, Log: log}
}

// GetDoctors lists every doctor. Any authenticated user may call it.
func (h *UserHandler) GetDoctors(c *gin.Context) {
	doctors, err := h.Store.Users.ListDoctors(c.Request.Context())
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}

	result := make([]models.UserSanitized, 0, len(doctors))
	for i := range doctors {
		result = append(result, doctors[i].Sanitize())
	}
	utils.Success(c, "Doctors fetched successfully", result)
}
