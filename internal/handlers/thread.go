package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/meroguru/meroguru-backend/internal/logger"
	"github.com/meroguru/meroguru-backend/internal/services"
)

type ThreadHandler struct {
	log         *logger.Logger
	chatService services.ChatService
}

func NewThreadHandler(log *logger.Logger, chatService services.ChatService) *ThreadHandler {
	return &ThreadHandler{
		log:         log.With("handler", "ThreadHandler"),
		chatService: chatService,
	}
}

// GET /api/threads
func (h *ThreadHandler) ListThreads(c *gin.Context) {
	threads, err := h.chatService.ListThreads(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, threads)
}

// GET /api/threads/:id
func (h *ThreadHandler) ListMessages(c *gin.Context) {
	threadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_thread_id", errors.New("invalid thread id"))
		return
	}
	messages, err := h.chatService.ListMessages(c.Request.Context(), threadID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, messages)
}

// DELETE /api/threads/:id
func (h *ThreadHandler) DeleteThread(c *gin.Context) {
	threadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_thread_id", errors.New("invalid thread id"))
		return
	}
	if err := h.chatService.DeleteThread(c.Request.Context(), threadID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "Thread deleted successfully"})
}
