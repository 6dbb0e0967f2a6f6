// Package api holds the gin handlers of the Foodgram REST API.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/authz"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
)

// Dependencies is everything the handlers need
type Dependencies struct {
	DB            *gorm.DB
	Auth          service.IAuthService
	Users         service.IUserService
	Recipes       service.IRecipeService
	Tags          service.ITagService
	Ingredients   service.IIngredientService
	Relations     service.IRelationService
	Shopping      service.IShoppingListService
	Presenter     *service.Presenter
	Enforcer      *authz.Enforcer
	RecipeLimiter *middleware.RateLimiter
	PageSize      int
}

// HealthCheck reports whether the API and its database are reachable
func HealthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := database.HealthCheck(ctx, db); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	}
}

// RegisterRoutes registers all API routes under /api
func RegisterRoutes(router *gin.Engine, deps *Dependencies) error {
	if err := RegisterValidators(); err != nil {
		return err
	}

	router.GET("/health", HealthCheck(deps.DB))

	api := router.Group("/api")
	api.GET("/health", HealthCheck(deps.DB))
	api.GET("/metrics", gin.WrapH(metrics.Handler()))

	authed := api.Group("")
	authed.Use(middleware.OptionalAuth(deps.Auth), middleware.RequireActiveUser(deps.DB))

	NewAuthHandler(deps).RegisterRoutes(authed)
	NewUserHandler(deps).RegisterRoutes(authed)
	NewRecipeHandler(deps).RegisterRoutes(authed)
	NewTagHandler(deps).RegisterRoutes(authed)
	NewIngredientHandler(deps).RegisterRoutes(authed)
	return nil
}
