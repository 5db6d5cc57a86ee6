package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arcade/lobby/internal/store"
)

type createMatchRequest struct {
	Player1ID string  `json:"player1Id" binding:"required"`
	Player2ID string  `json:"player2Id" binding:"required,nefield=Player1ID"`
	WinnerID  *string `json:"winnerId"`
	Score     *string `json:"score"`
	MatchType string  `json:"matchType" binding:"omitempty,oneof=regular tournament"`
	GameType  string  `json:"gameType"`
	Duration  *int    `json:"duration" binding:"omitempty,min=0"`
}

func (h *Handler) createMatch(c *gin.Context) {
	var req createMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Missing fields")
		return
	}
	if req.WinnerID != nil && *req.WinnerID != req.Player1ID && *req.WinnerID != req.Player2ID {
		badRequest(c, "Winner must be one of the players")
		return
	}

	m := &store.Match{
		Player1ID: req.Player1ID,
		Player2ID: req.Player2ID,
		WinnerID:  req.WinnerID,
		Score:     req.Score,
		MatchType: req.MatchType,
		GameType:  req.GameType,
		Duration:  req.Duration,
	}
	if err := h.store.CreateMatch(c.Request.Context(), m); err != nil {
		fail(c, err, "Failed to save match")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "matchId": m.ID})
}

func (h *Handler) listMatches(matchType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		matches, err := h.store.ListMatches(c.Request.Context(), c.Param("userId"), matchType)
		if err != nil {
			fail(c, err, "Failed to load matches")
			return
		}
		c.JSON(http.StatusOK, gin.H{"matches": matches})
	}
}

func (h *Handler) matchStats(c *gin.Context) {
	stats, err := h.store.MatchStats(c.Request.Context(), c.Param("userId"))
	if err != nil {
		fail(c, err, "Failed to load stats")
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
