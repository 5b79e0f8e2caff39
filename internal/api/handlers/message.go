package handlers

import (
	"net/http"
	"strconv"

	"alo17-service/internal/models"
	"alo17-service/internal/repositories/postgres"

	"github.com/gin-gonic/gin"
)

const defaultHistoryLimit = 100

type MessageHandler struct {
	messages *postgres.MessageRepository
}

func NewMessageHandler(messages *postgres.MessageRepository) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// GetRoomMessages returns the persisted history of one conversation room,
// oldest first. Clients load this once and then follow the live relay.
func (h *MessageHandler) GetRoomMessages(c *gin.Context) {
	roomID := c.Param("roomId")
	if roomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room id is required"})
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	messages, err := h.messages.FindByRoomID(c.Request.Context(), roomID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	responses := make([]*models.MessageResponse, 0, len(messages))
	for _, m := range messages {
		responses = append(responses, m.ToResponse())
	}

	c.JSON(http.StatusOK, responses)
}
