package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"
	"time"

	"datekeeper/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// AdminIDKey is the gin context key holding the caller identity for admin routes.
const AdminIDKey = "admin_id"

// APIAdminID identifies actions taken through the HTTP API in audit records.
const APIAdminID = "api"

// AdminTokenMiddleware requires "Authorization: Bearer <token>". With an
// empty token every request is refused.
func AdminTokenMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			utils.AbortWithError(c, http.StatusForbidden, "admin API disabled")
			return
		}

		header := c.GetHeader("Authorization")
		got, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), []byte(token)) != 1 {
			utils.AbortWithError(c, http.StatusUnauthorized, "authentication required")
			return
		}

		c.Set(AdminIDKey, APIAdminID)
		c.Next()
	}
}

// RateLimiter holds one token bucket per client IP.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	logger   *zap.Logger
}

// NewRateLimiter allows perMinute requests per IP with the given burst.
func NewRateLimiter(perMinute, burst int, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		logger:   logger,
	}
}

func (r *RateLimiter) getLimiter(ip string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	limiter, exists := r.limiters[ip]
	if !exists {
		limiter = rate.NewLimiter(r.limit, r.burst)
		r.limiters[ip] = limiter
	}
	return limiter
}

// Middleware limits requests per client IP.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := utils.GetRealClientIP(c)
		if !r.getLimiter(ip).Allow() {
			r.logger.Warn("rate limit exceeded", zap.String("ip", ip))
			utils.AbortWithError(c, http.StatusTooManyRequests, "Rate limit exceeded. Try again later.")
			return
		}
		c.Next()
	}
}
