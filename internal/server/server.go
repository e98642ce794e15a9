package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/chatter/chatter-backend/handlers"
	"github.com/chatter/chatter-backend/internal/config"
	"github.com/chatter/chatter-backend/internal/gql"
	"github.com/chatter/chatter-backend/internal/tokens"
	"github.com/chatter/chatter-backend/internal/users"
	"github.com/chatter/chatter-backend/pkg/logger"
	"github.com/chatter/chatter-backend/pkg/middleware"
)

// Options are the collaborators the HTTP surface is built from.
type Options struct {
	Config  *config.Config
	Users   *users.Service
	Redis   *redis.Client // optional
	Checks  map[string]handlers.Check
	Started time.Time
}

// New builds the gin engine serving GraphQL, auth, health and metrics routes.
func New(opts Options) (*gin.Engine, error) {
	cfg := opts.Config
	r := gin.New()
	r.Use(middleware.RequestID(), gin.Logger(), gin.Recovery())

	// Lightweight CORS for browser clients of the GraphQL endpoint.
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, "+middleware.RequestIDHeader)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	})

	// identify token holders up front so the limiter can key on the subject
	// and resolvers can authorize; anonymous requests pass through
	if cfg.JWT.Secret != "" {
		r.Use(middleware.OptionalAuthMiddleware(tokens.NewVerifier(cfg.JWT.Secret)))
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && opts.Redis != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(opts.Redis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
			logger.Infof("rate limiter: redis (rps=%.2f burst=%d window=%s)", cfg.RateLimit.RPS, cfg.RateLimit.Burst, win)
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
			logger.Infof("rate limiter: memory (rps=%.2f burst=%d)", cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		}
	}

	started := opts.Started
	if started.IsZero() {
		started = time.Now()
	}
	handlers.RegisterHealth(r, started, opts.Checks)
	handlers.RegisterSwagger(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	schema, err := gql.NewSchema(users.NewResolver(opts.Users))
	if err != nil {
		return nil, fmt.Errorf("graphql schema: %w", err)
	}
	r.POST("/graphql", gql.Handler(schema))

	if cfg.JWT.Secret != "" {
		handlers.NewAuthHandler(opts.Users, cfg.JWT.Secret, cfg.JWT.AccessTokenTTL).Register(r)
	} else {
		logger.Warnf("JWT_SECRET is not set; /auth/login and /api/v1/me are disabled")
	}
	return r, nil
}
