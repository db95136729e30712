package handlers

import (
	"time"

	"datekeeper/internal/auth"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterConfig wires NewRouter.
type RouterConfig struct {
	Handler *Handler
	// AdminToken guards /admin; empty leaves the admin routes unregistered.
	AdminToken     string
	RatePerMinute  int
	RateBurst      int
	TrustedProxies []string
	Logger         *zap.Logger
}

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = 60
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 10
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(cfg.Logger))

	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		cfg.Logger.Warn("failed to set trusted proxies", zap.Error(err))
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/", HomeHandler)
	r.GET("/health", cfg.Handler.HealthHandler)

	if cfg.AdminToken == "" || cfg.Handler.admin == nil {
		cfg.Logger.Info("admin API disabled")
		return r
	}

	limiter := auth.NewRateLimiter(cfg.RatePerMinute, cfg.RateBurst, cfg.Logger)
	admin := r.Group("/admin")
	admin.Use(limiter.Middleware(), auth.AdminTokenMiddleware(cfg.AdminToken))
	{
		admin.GET("/stats", cfg.Handler.GetStats)
		admin.POST("/broadcast", cfg.Handler.PostBroadcast)
		admin.GET("/broadcasts", cfg.Handler.ListBroadcasts)
	}
	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
