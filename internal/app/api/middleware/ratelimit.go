package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fatflowers/letterdesk/pkg/logctx"
	"github.com/fatflowers/letterdesk/pkg/response"
)

// RateLimiter keeps one token bucket per caller.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	log      *zap.SugaredLogger
}

// NewRateLimiter allows perMinute requests per caller with the given burst.
// A non-positive perMinute disables limiting.
func NewRateLimiter(perMinute, burst int, log *zap.SugaredLogger) *RateLimiter {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return &RateLimiter{limiters: map[string]*rate.Limiter{}, limit: limit, burst: max(burst, 1), log: log}
}

func (l *RateLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	return lim
}

// Handler keys on the authenticated user, falling back to the client IP.
func (l *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if actor := ActorFrom(c); actor != nil {
			key = actor.UserID
		}
		if !l.get(key).Allow() {
			logctx.FromGin(c, l.log).Warnf("too many requests, key=%s", key)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.ErrorT[any](response.APIResponseCodeTooManyRequests, nil))
			return
		}
		c.Next()
	}
}
