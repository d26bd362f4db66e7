package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/meroguru/meroguru-backend/internal/logger"
	"github.com/meroguru/meroguru-backend/internal/services"
)

type ChatHandler struct {
	log         *logger.Logger
	chatService services.ChatService
}

func NewChatHandler(log *logger.Logger, chatService services.ChatService) *ChatHandler {
	return &ChatHandler{
		log:         log.With("handler", "ChatHandler"),
		chatService: chatService,
	}
}

type chatRequest struct {
	Message     string `json:"message"`
	ThreadID    string `json:"thread_id"`
	Grade       string `json:"grade"`
	Subject     string `json:"subject"`
	TitlePrompt string `json:"title_prompt"`
}

type chatResponse struct {
	Response  string            `json:"response"`
	ThreadID  string            `json:"thread_id"`
	Sources   []services.Source `json:"sources"`
	Timestamp time.Time         `json:"timestamp"`
	Success   bool              `json:"success"`
}

// POST /api/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	result, err := h.chatService.SendMessage(c.Request.Context(), services.ChatRequest{
		Message:     req.Message,
		ThreadID:    req.ThreadID,
		Grade:       req.Grade,
		Subject:     req.Subject,
		TitlePrompt: req.TitlePrompt,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}

	resp := chatResponse{
		Response:  result.Response,
		ThreadID:  result.ThreadID.String(),
		Sources:   result.Sources,
		Timestamp: result.Timestamp,
		Success:   result.Success,
	}
	if !result.Success {
		// Degraded turn: the apology body still goes out, but the status
		// tells the client generation could not be reached.
		c.JSON(http.StatusBadGateway, resp)
		return
	}
	RespondOK(c, resp)
}
