package http_ratelimit_middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	http_common "github.com/lidiakram/bottlespin/internal/delivery/http/common"
)

// Limiter is the admission check shared with the websocket router.
type Limiter interface {
	Allow(addr, action string) (bool, int, error)
}

// New returns a gin middleware limiting an action by client IP. The
// limiter failing (redis down) lets the request through; admission is
// best-effort, not a security boundary.
func New(limiter Limiter, action string) gin.HandlerFunc {
	if limiter == nil {
		panic("limiter cannot be nil for ratelimit middleware")
	}

	return func(c *gin.Context) {
		ok, retryAfter, err := limiter.Allow(c.ClientIP(), action)
		if err != nil {
			slog.Default().Error("rate limiter failed", slog.String("error", err.Error()))
			c.Next()
			return
		}
		if !ok {
			c.JSON(http.StatusTooManyRequests, http_common.ErrorResponse{
				Message:    "too many requests",
				RetryAfter: retryAfter,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
