package service

import (
	"context"
	"time"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// IAuthService defines the interface for token authentication
type IAuthService interface {
	Login(ctx context.Context, email, password string) (string, error)
	GenerateToken(user *models.User) (string, error)
	ValidateToken(ctx context.Context, token string) (*types.TokenClaims, error)
	Logout(ctx context.Context, claims *types.TokenClaims) error
}

// IUserService defines the interface for account operations
type IUserService interface {
	Register(ctx context.Context, req *types.RegisterRequest) (*models.User, error)
	CreateAdmin(ctx context.Context, req *types.RegisterRequest) (*models.User, error)
	GetByID(ctx context.Context, id uint) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, int64, error)
	SetPassword(ctx context.Context, userID uint, current, next string) error
}

// IRecipeService defines the interface for recipe operations
type IRecipeService interface {
	CreateRecipe(ctx context.Context, authorID uint, req *types.RecipeRequest) (*models.Recipe, error)
	GetRecipe(ctx context.Context, id uint) (*models.Recipe, error)
	GetRecipeForChange(ctx context.Context, actorID, id uint) (*models.Recipe, error)
	UpdateRecipe(ctx context.Context, recipe *models.Recipe, req *types.RecipeRequest) (*models.Recipe, error)
	DeleteRecipe(ctx context.Context, recipe *models.Recipe) error
	ListRecipes(ctx context.Context, viewer Viewer, filter RecipeFilter) ([]models.Recipe, int64, error)
}

// ITagService defines the interface for tag reference data
type ITagService interface {
	ListTags(ctx context.Context) ([]models.Tag, error)
	GetTag(ctx context.Context, id uint) (*models.Tag, error)
	CreateTag(ctx context.Context, req *types.TagRequest) (*models.Tag, error)
	UpdateTag(ctx context.Context, id uint, req *types.TagRequest) (*models.Tag, error)
	DeleteTag(ctx context.Context, id uint) error
	LoadTags(ctx context.Context, reqs []types.TagRequest) (int64, error)
}

// IIngredientService defines the interface for ingredient reference data
type IIngredientService interface {
	ListIngredients(ctx context.Context, search string) ([]models.Ingredient, error)
	GetIngredient(ctx context.Context, id uint) (*models.Ingredient, error)
	CreateIngredient(ctx context.Context, req *types.IngredientRequest) (*models.Ingredient, error)
	UpdateIngredient(ctx context.Context, id uint, req *types.IngredientRequest) (*models.Ingredient, error)
	DeleteIngredient(ctx context.Context, id uint) error
	LoadIngredients(ctx context.Context, reqs []types.IngredientRequest) (int64, error)
}

// IRelationService defines the favorite, cart and subscription toggles
type IRelationService interface {
	AddFavorite(ctx context.Context, userID, recipeID uint) (*models.Recipe, error)
	RemoveFavorite(ctx context.Context, userID, recipeID uint) error
	AddToCart(ctx context.Context, userID, recipeID uint) (*models.Recipe, error)
	RemoveFromCart(ctx context.Context, userID, recipeID uint) error
	Subscribe(ctx context.Context, userID, authorID uint) (*models.User, error)
	Unsubscribe(ctx context.Context, userID, authorID uint) error
	Subscriptions(ctx context.Context, userID uint, limit, offset int) ([]models.User, int64, error)
}

// IShoppingListService defines the shopping list download
type IShoppingListService interface {
	Aggregate(ctx context.Context, userID uint) ([]ShoppingItem, error)
	Render(user *models.User, items []ShoppingItem, now time.Time) []byte
	Filename(user *models.User) string
}
