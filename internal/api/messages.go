package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arcade/lobby/internal/social"
)

type sendMessageRequest struct {
	SenderID   string `json:"senderId" binding:"required"`
	ReceiverID string `json:"receiverId" binding:"required"`
	Content    string `json:"content" binding:"required"`
}

func (h *Handler) conversation(c *gin.Context) {
	msgs, err := h.social.Conversation(c.Request.Context(), c.Param("userId"), c.Param("peerId"))
	if err != nil {
		fail(c, err, "Failed to load messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *Handler) sendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Missing fields")
		return
	}

	msg, err := h.social.SendMessage(c.Request.Context(), req.SenderID, req.ReceiverID, req.Content)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
	case errors.Is(err, social.ErrBlocked):
		c.JSON(http.StatusForbidden, gin.H{"error": "User blocked"})
	default:
		fail(c, err, "DB insert failed")
	}
}
