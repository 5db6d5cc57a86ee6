package api

import (
	"errors"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/arcade/lobby/internal/social"
	"github.com/arcade/lobby/internal/store"
)

// statusFor maps a domain error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, social.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, social.ErrBlocked):
		return http.StatusForbidden
	case errors.Is(err, social.ErrThrottled):
		return http.StatusTooManyRequests
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as {"error": ...}. Persistence failures are logged and
// reported with the generic message msg.
func fail(c *gin.Context, err error, msg string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Str("component", "api").Str("path", c.FullPath()).Err(err).Msg(msg)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	body := gin.H{"error": err.Error()}
	var te *social.ThrottledError
	if errors.As(err, &te) {
		body["retryAfter"] = int(math.Ceil(te.RetryAfter.Seconds()))
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func ok(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}
