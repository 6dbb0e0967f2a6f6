package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/authz"
	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

// RecipeHandler serves /recipes and its favorite, cart and download actions
type RecipeHandler struct {
	recipes   service.IRecipeService
	relations service.IRelationService
	shopping  service.IShoppingListService
	users     service.IUserService
	presenter *service.Presenter
	enforcer  *authz.Enforcer
	limiter   *middleware.RateLimiter
	pageSize  int
	now       func() time.Time
}

func NewRecipeHandler(deps *Dependencies) *RecipeHandler {
	return &RecipeHandler{
		recipes:   deps.Recipes,
		relations: deps.Relations,
		shopping:  deps.Shopping,
		users:     deps.Users,
		presenter: deps.Presenter,
		enforcer:  deps.Enforcer,
		limiter:   deps.RecipeLimiter,
		pageSize:  deps.PageSize,
		now:       time.Now,
	}
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	policy := middleware.Policy(h.enforcer, authz.ObjectRecipes)
	favorites := middleware.Policy(h.enforcer, authz.ObjectFavorites)
	cart := middleware.Policy(h.enforcer, authz.ObjectShoppingCart)

	create := []gin.HandlerFunc{policy}
	if h.limiter != nil {
		create = append(create, h.limiter.RateLimitMiddleware())
	}
	create = append(create, h.CreateRecipe)

	recipes := router.Group("/recipes")
	{
		recipes.GET("", policy, h.ListRecipes)
		recipes.POST("", create...)
		recipes.GET("/download_shopping_cart", middleware.RequireAuth(), h.DownloadShoppingCart)
		recipes.GET("/:id", policy, h.GetRecipe)
		recipes.PATCH("/:id", policy, h.UpdateRecipe)
		recipes.DELETE("/:id", policy, h.DeleteRecipe)
		recipes.POST("/:id/favorite", favorites, h.AddFavorite)
		recipes.DELETE("/:id/favorite", favorites, h.RemoveFavorite)
		recipes.POST("/:id/shopping_cart", cart, h.AddToCart)
		recipes.DELETE("/:id/shopping_cart", cart, h.RemoveFromCart)
	}
}

func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	pager, err := NewPaginator(c, h.pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	filter := service.RecipeFilter{
		TagSlugs:         c.QueryArray("tags"),
		IsFavorited:      queryFlag(c, "is_favorited"),
		IsInShoppingCart: queryFlag(c, "is_in_shopping_cart"),
		Limit:            pager.Limit,
		Offset:           pager.Offset(),
	}
	if raw := c.Query("author"); raw != "" {
		author, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, service.NewValidationError("author", "author must be a user id"))
			return
		}
		filter.AuthorID = uint(author)
	}

	viewer := viewerFrom(c)
	recipes, total, err := h.recipes.ListRecipes(c.Request.Context(), viewer, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	results, err := h.presenter.Recipes(c.Request.Context(), viewer, recipes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPage(c, pager, total, results))
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	recipe, err := h.recipes.GetRecipe(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondRecipe(c, http.StatusOK, recipe)
}

func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req types.RecipeRequest
	if !bindJSON(c, &req) {
		return
	}

	recipe, err := h.recipes.CreateRecipe(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondRecipe(c, http.StatusCreated, recipe)
}

// UpdateRecipe checks ownership before reading the body
func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	recipe, ok := h.recipeForChange(c)
	if !ok {
		return
	}

	var req types.RecipeRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.recipes.UpdateRecipe(c.Request.Context(), recipe, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondRecipe(c, http.StatusOK, updated)
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	recipe, ok := h.recipeForChange(c)
	if !ok {
		return
	}

	if err := h.recipes.DeleteRecipe(c.Request.Context(), recipe); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) recipeForChange(c *gin.Context) (*models.Recipe, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		return nil, false
	}
	id, ok := parseID(c, "id")
	if !ok {
		return nil, false
	}

	recipe, err := h.recipes.GetRecipeForChange(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return recipe, true
}

func (h *RecipeHandler) respondRecipe(c *gin.Context, status int, recipe *models.Recipe) {
	resp, err := h.presenter.Recipe(c.Request.Context(), viewerFrom(c), recipe)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, resp)
}

func (h *RecipeHandler) AddFavorite(c *gin.Context) {
	h.mark(c, "favorite", h.relations.AddFavorite)
}

func (h *RecipeHandler) RemoveFavorite(c *gin.Context) {
	h.unmark(c, "favorite", h.relations.RemoveFavorite)
}

func (h *RecipeHandler) AddToCart(c *gin.Context) {
	h.mark(c, "shopping_cart", h.relations.AddToCart)
}

func (h *RecipeHandler) RemoveFromCart(c *gin.Context) {
	h.unmark(c, "shopping_cart", h.relations.RemoveFromCart)
}

func (h *RecipeHandler) mark(c *gin.Context, relation string, add func(context.Context, uint, uint) (*models.Recipe, error)) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	recipe, err := add(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.RecordToggle(relation, true)
	c.JSON(http.StatusCreated, service.MinifiedRecipe(recipe))
}

func (h *RecipeHandler) unmark(c *gin.Context, relation string, remove func(context.Context, uint, uint) error) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := remove(c.Request.Context(), userID, id); err != nil {
		respondError(c, err)
		return
	}
	metrics.RecordToggle(relation, false)
	c.Status(http.StatusNoContent)
}

// DownloadShoppingCart serves the caller's consolidated shopping list as a text attachment
func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	items, err := h.shopping.Aggregate(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	body := h.shopping.Render(user, items, h.now())
	metrics.ShoppingListDownloads.Inc()
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", h.shopping.Filename(user)))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", body)
}
