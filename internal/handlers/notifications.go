package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"telehealth-app-server/internal/models"
	"telehealth-app-server/internal/store"
	"telehealth-app-server/internal/utils"
)

type NotificationHandler struct {
	Store *store.Store
	Log   *zap.Logger
}

func NewNotificationHandler(st *store.Store, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{Store: st, Log: log}
}

type listNotificationsQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1"`
}

// NotificationList is the body of GET /notifications.
type NotificationList struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int64                 `json:"unreadCount"`
}

// GetNotifications returns the caller's newest notifications and the
// number still unread.
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	caller, ok := currentCaller(c, h.Log)
	if !ok {
		return
	}

	var q listNotificationsQuery
	if !utils.BindQuery(c, h.Log, &q) {
		return
	}

	ctx := c.Request.Context()
	list, err := h.Store.Notifications.ListForUser(ctx, caller.UserID, q.Limit)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	unread, err := h.Store.Notifications.CountUnread(ctx, caller.UserID)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}

	utils.Success(c, "Notifications fetched successfully", NotificationList{
		Notifications: nonNil(list),
		UnreadCount:   unread,
	})
}

// MarkAsRead flags a single notification of the caller as read.
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	caller, ok := currentCaller(c, h.Log)
	if !ok {
		return
	}

	n, err := h.Store.Notifications.MarkRead(c.Request.Context(), caller.UserID, c.Param("id"))
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Notification marked as read", n)
}

// MarkAllAsRead flags every unread notification of the caller.
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	caller, ok := currentCaller(c, h.Log)
	if !ok {
		return
	}

	updated, err := h.Store.Notifications.MarkAllRead(c.Request.Context(), caller.UserID)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "All notifications marked as read", gin.H{"updated": updated})
}
