package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"cashcraft/api/internal/cache"
	"cashcraft/api/internal/config"
	"cashcraft/api/internal/middleware"
	"cashcraft/api/internal/security"
	"cashcraft/api/internal/service"
	"cashcraft/api/internal/validation"
)

// Store is the credential store plus a liveness probe for /health.
type Store interface {
	service.AccountStore
	Ping(ctx context.Context) error
}

type HandlerSet struct {
	log       zerolog.Logger
	cfg       *config.AppConfig
	accounts  *service.AccountService
	validator *validation.Validator
	sessions  *security.SessionIssuer
	store     Store
	cache     *redis.Client
}

// NewHandlerSet wires the auth stack. cache may be nil, which disables rate
// limiting.
func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, store Store, cache *redis.Client) HandlerSet {
	hasher := security.NewPasswordHasher(security.Argon2Params{
		Time:    cfg.Security.Argon2.Time,
		Memory:  cfg.Security.Argon2.Memory,
		Threads: cfg.Security.Argon2.Threads,
	})
	sessions := security.NewSessionIssuer(cfg.Security.JWTSecret, cfg.Security.TokenTTL)
	accounts := service.NewAccountService(store, hasher, sessions, cfg.Accounts, log)

	return HandlerSet{
		log:       log,
		cfg:       cfg,
		accounts:  accounts,
		validator: validation.New(),
		sessions:  sessions,
		store:     store,
		cache:     cache,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	if h.cache != nil {
		limiter := cache.NewRateLimiter(h.cache, h.cfg.RateLimit.Window, h.cfg.RateLimit.Max)
		router.Use(middleware.RateLimit(limiter, h.log))
	}

	router.GET("/health", h.Health)

	auth := router.Group("/auth")
	auth.POST("/register", h.RegisterAccount)
	auth.POST("/login", h.Login)

	protected := auth.Group("")
	protected.Use(middleware.Auth(h.sessions, h.log))
	protected.GET("/me", h.Me)
	protected.POST("/refresh-token", h.RefreshToken)
}
