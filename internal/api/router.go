// Package api is the REST surface of the lobby. Pull requests (lists,
// history) read the store directly; every mutation goes through the social
// coordinator so REST and push callers produce the same events.
package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/arcade/lobby/internal/social"
	"github.com/arcade/lobby/internal/store"
)

// Handler holds the collaborators of every endpoint.
type Handler struct {
	store     store.Store
	social    *social.Coordinator
	staticDir string
}

// Option configures a Handler.
type Option func(*Handler)

// WithStaticDir serves a single page app from dir for non-API paths.
func WithStaticDir(dir string) Option {
	return func(h *Handler) { h.staticDir = dir }
}

// New returns a Handler over st and coord.
func New(st store.Store, coord *social.Coordinator, opts ...Option) *Handler {
	h := &Handler{store: st, social: coord}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router builds the gin engine with every route mounted.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	h.RegisterRoutes(r.Group("/api"))
	r.NoRoute(h.noRoute)
	return r
}

// RegisterRoutes mounts the API routes under g.
func (h *Handler) RegisterRoutes(g *gin.RouterGroup) {
	// Users
	g.GET("/users", h.listUsers)
	g.POST("/users", h.createUser)

	// Direct messages
	g.GET("/messages/:userId/:peerId", h.conversation)
	g.POST("/messages", h.sendMessage)

	// Blocks
	g.POST("/block", h.block)
	g.DELETE("/block", h.unblock)
	g.GET("/blocks/:userId", h.listBlocks)

	// Friends
	g.GET("/friends/:userId", h.listFriends)
	g.POST("/friends/request", h.requestFriend)
	g.POST("/friends/accept", h.acceptFriend)
	g.DELETE("/friends", h.removeFriend)

	// Game invites
	g.POST("/invite", h.createInvite)
	g.POST("/invite/response", h.respondInvite)
	g.DELETE("/invite", h.cancelInvite)
	g.GET("/invite/incoming/:userId", h.incomingInvites)
	g.GET("/invite/outgoing/:userId", h.outgoingInvites)

	// Match history
	g.POST("/matches", h.createMatch)
	g.GET("/matches/:userId", h.listMatches(""))
	g.GET("/matches/:userId/regular", h.listMatches(store.MatchRegular))
	g.GET("/matches/:userId/tournament", h.listMatches(store.MatchTournament))
	g.GET("/matches/:userId/stats", h.matchStats)

	// Tournament
	g.POST("/tournament/notify", h.notifyTournament)
}

// noRoute answers unknown API paths with JSON and everything else with
// the SPA, falling back to index.html for client-side routes.
func (h *Handler) noRoute(c *gin.Context) {
	path := c.Request.URL.Path
	if strings.HasPrefix(path, "/api") || h.staticDir == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
		return
	}

	file := filepath.Join(h.staticDir, filepath.Clean("/"+path))
	if info, err := os.Stat(file); err == nil && !info.IsDir() {
		c.File(file)
		return
	}
	c.File(filepath.Join(h.staticDir, "index.html"))
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Debug().
			Str("component", "api").
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Msg("request")
	}
}
