package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type blockRequest struct {
	BlockerID string `json:"blockerId" binding:"required"`
	BlockedID string `json:"blockedId" binding:"required"`
}

type friendRequest struct {
	UserID   string `json:"userId" binding:"required"`
	FriendID string `json:"friendId" binding:"required"`
}

type inviteRequest struct {
	InviterID string `json:"inviterId" binding:"required"`
	InviteeID string `json:"inviteeId" binding:"required"`
}

type inviteResponseRequest struct {
	InviterID string `json:"inviterId" binding:"required"`
	InviteeID string `json:"inviteeId" binding:"required"`
	Accepted  *bool  `json:"accepted" binding:"required"`
}

// ---------------------------------------------------------------------------
// Blocks
// ---------------------------------------------------------------------------

func (h *Handler) block(c *gin.Context) {
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Missing fields")
		return
	}
	if err := h.social.Block(c.Request.Context(), req.BlockerID, req.BlockedID); err != nil {
		fail(c, err, "Failed to block user")
		return
	}
	ok(c)
}

func (h *Handler) unblock(c *gin.Context) {
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Missing fields")
		return
	}
	if err := h.social.Unblock(c.Request.Context(), req.BlockerID, req.BlockedID); err != nil {
		fail(c, err, "Failed to unblock user")
		return
	}
	ok(c)
}

func (h *Handler) listBlocks(c *gin.Context) {
	lists, err := h.store.ListBlocks(c.Request.Context(), c.Param("userId"))
	if err != nil {
		fail(c, err, "Failed to load blocks")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"blocked":   lo.Map(lists.Blocked, func(id string, _ int) gin.H { return gin.H{"blockedId": id} }),
		"blockedBy": lo.Map(lists.BlockedBy, func(id string, _ int) gin.H { return gin.H{"blockerId": id} }),
	})
}

// ---------------------------------------------------------------------------
// Friends
// ---------------------------------------------------------------------------

func (h *Handler) listFriends(c *gin.Context) {
	lists, err := h.store.ListFriends(c.Request.Context(), c.Param("userId"))
	if err != nil {
		fail(c, err, "Failed to load friends")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"accepted": lists.Accepted,
		"incoming": lists.Incoming,
		"outgoing": lists.Outgoing,
	})
}

func (h *Handler) requestFriend(c *gin.Context) {
	var req friendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Missing fields")
		return
	}
	if err := h.social.RequestFriend(c.Request.Context(), req.UserID, req.FriendID); err != nil {
		fail(c, err, "Failed to send friend request")
		return
	}
	ok(c)
}

func (h *Handler) acceptFriend(c *gin.Context) {
	var req friendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Missing fields")
		return
	}
	if err := h.social.AcceptFriend(c.Request.Context(), req.UserID, req.FriendID); err != nil {
		fail(c, err, "Failed to accept friend request")
		return
	}
	ok(c)
}

func (h *Handler) removeFriend(c *gin.Context) {
	var req friendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Missing fields")
		return
	}
	if err := h.social.RemoveFriend(c.Request.Context(), req.UserID, req.FriendID); err != nil {
		fail(c, err, "Failed to remove friend")
		return
	}
	ok(c)
}

// ---------------------------------------------------------------------------
// Invites
// ---------------------------------------------------------------------------

func (h *Handler) createInvite(c *gin.Context) {
	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Missing fields")
		return
	}
	created, err := h.social.CreateInvite(c.Request.Context(), req.InviterID, req.InviteeID)
	if err != nil {
		fail(c, err, "Failed to create invite")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "created": created})
}

func (h *Handler) respondInvite(c *gin.Context) {
	var req inviteResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Missing fields")
		return
	}
	if err := h.social.RespondInvite(c.Request.Context(), req.InviterID, req.InviteeID, *req.Accepted); err != nil {
		fail(c, err, "Failed to respond to invite")
		return
	}
	ok(c)
}

func (h *Handler) cancelInvite(c *gin.Context) {
	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Missing fields")
		return
	}
	if err := h.social.CancelInvite(c.Request.Context(), req.InviterID, req.InviteeID); err != nil {
		fail(c, err, "Failed to cancel invite")
		return
	}
	ok(c)
}

func (h *Handler) incomingInvites(c *gin.Context) {
	lists, err := h.store.ListInvites(c.Request.Context(), c.Param("userId"))
	if err != nil {
		fail(c, err, "Failed to load invites")
		return
	}
	c.JSON(http.StatusOK, gin.H{"incoming": userRefs(lists.Incoming)})
}

func (h *Handler) outgoingInvites(c *gin.Context) {
	lists, err := h.store.ListInvites(c.Request.Context(), c.Param("userId"))
	if err != nil {
		fail(c, err, "Failed to load invites")
		return
	}
	c.JSON(http.StatusOK, gin.H{"outgoing": userRefs(lists.Outgoing)})
}

type userRef struct {
	UserID string `json:"userId"`
}

func userRefs(ids []string) []userRef {
	return lo.Map(ids, func(id string, _ int) userRef { return userRef{UserID: id} })
}

// ---------------------------------------------------------------------------
// Tournament
// ---------------------------------------------------------------------------

type tournamentNotifyRequest struct {
	Message string `json:"message" binding:"required"`
	Status  string `json:"status"`
}

func (h *Handler) notifyTournament(c *gin.Context) {
	var req tournamentNotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Missing message")
		return
	}
	if err := h.social.NotifyTournament(c.Request.Context(), req.Message, req.Status); err != nil {
		fail(c, err, "Failed to notify")
		return
	}
	ok(c)
}
