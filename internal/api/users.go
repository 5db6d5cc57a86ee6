package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/arcade/lobby/internal/store"
)

type createUserRequest struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		fail(c, err, "Failed to load users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// createUser returns the user with the given username, creating it first
// if needed. The user is the top-level body: clients read its id directly.
func (h *Handler) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" {
		badRequest(c, "Missing username")
		return
	}
	ctx := c.Request.Context()

	existing, err := h.store.GetUserByUsername(ctx, req.Username)
	if err == nil {
		c.JSON(http.StatusOK, existing)
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		fail(c, err, "Failed to load user")
		return
	}

	u := store.User{
		ID:       "user-" + uuid.NewString(),
		Username: req.Username,
		Avatar:   req.Avatar,
	}
	if u.Avatar == "" {
		u.Avatar = store.DefaultAvatar
	}
	if err := h.store.CreateUser(ctx, u); err != nil {
		fail(c, err, "Failed to create user")
		return
	}
	log.Info().Str("component", "api").Str("user_id", u.ID).Str("username", u.Username).Msg("user created")
	c.JSON(http.StatusOK, u)
}
