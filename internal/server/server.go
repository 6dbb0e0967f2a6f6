// Package server wires configuration, storage and services into the HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/authz"
	"github.com/pageza/foodgram/backend/internal/logger"
	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
)

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	http   *http.Server
	cfg    *config.Config
}

// NewImageStore picks the image backend named by cfg.StorageBackend
func NewImageStore(ctx context.Context, cfg *config.Config) (service.ImageStore, error) {
	switch cfg.StorageBackend {
	case "s3":
		s3Config, err := config.NewS3Config(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return service.NewS3ImageStore(s3Config), nil
	case "local":
		return service.NewLocalImageStore(cfg.MediaRoot, mediaPrefix(cfg)), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}

func mediaPrefix(cfg *config.Config) string {
	return "/" + strings.Trim(cfg.MediaURL, "/")
}

// New builds the router and every service behind it. redisClient may be nil,
// in which case tokens are revoked in memory and rate limiting is off.
func New(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, images service.ImageStore) (*Server, error) {
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	enforcer, err := authz.NewEnforcer()
	if err != nil {
		return nil, err
	}

	var blacklist service.TokenBlacklist
	if redisClient != nil {
		blacklist = service.NewRedisTokenBlacklist(redisClient)
	} else {
		logger.L().Warn("redis unavailable: token revocation is process-local and rate limiting is disabled")
		blacklist = service.NewMemoryTokenBlacklist()
	}

	deps := &api.Dependencies{
		DB:            db,
		Auth:          service.NewAuthService(db, cfg.JWTSecret, cfg.TokenTTL, blacklist),
		Users:         service.NewUserService(db),
		Recipes:       service.NewRecipeService(db, service.NewImageService(images, cfg.MaxImageBytes)),
		Tags:          service.NewTagService(db),
		Ingredients:   service.NewIngredientService(db),
		Relations:     service.NewRelationService(db),
		Shopping:      service.NewShoppingListService(db),
		Presenter:     service.NewPresenter(db),
		Enforcer:      enforcer,
		RecipeLimiter: middleware.NewRecipeCreationRateLimiter(redisClient, cfg.RecipeCreateLimit, cfg.RecipeCreateWindow),
		PageSize:      cfg.PageSize,
	}

	router := gin.New()
	router.Use(
		logger.GinLogger(),
		logger.GinRecovery(),
		middleware.CORS(cfg.CORSOrigins),
		metrics.GinMiddleware(),
	)
	if cfg.StorageBackend == "local" {
		router.Static(mediaPrefix(cfg), cfg.MediaRoot)
	}

	if err := api.RegisterRoutes(router, deps); err != nil {
		return nil, fmt.Errorf("failed to register routes: %w", err)
	}

	return &Server{
		router: router,
		cfg:    cfg,
		http: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	logger.L().Info("starting server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
