package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"telehealth-app-server/internal/lifecycle"
	"telehealth-app-server/internal/utils"
)

// MessageHandler serves the chat thread of an appointment.
type MessageHandler struct {
	Engine *lifecycle.Engine
	Log    *zap.Logger
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(engine *lifecycle.Engine, log *zap.Logger) *MessageHandler {
	return &MessageHandler{Engine: engine, Log: log}
}

// GetMessages returns the transcript in the order messages were sent.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	caller, ok := currentCaller(c, h.Log)
	if !ok {
		return
	}

	messages, err := h.Engine.ListMessages(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Messages fetched successfully", nonNil(messages))
}

// SendMessage appends a message and returns the updated transcript.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	caller, ok := currentCaller(c, h.Log)
	if !ok {
		return
	}

	var req TextRequest
	if !utils.BindAndValidate(c, h.Log, &req) {
		return
	}

	messages, err := h.Engine.AppendMessage(c.Request.Context(), caller, c.Param("id"), req.Text)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Created(c, "Message sent successfully", nonNil(messages))
}
