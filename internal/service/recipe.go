package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/authz"
	"github.com/pageza/foodgram/backend/internal/logger"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

const maxAmount = 32767

// RecipeFilter narrows ListRecipes. Membership flags are ignored for anonymous viewers.
type RecipeFilter struct {
	AuthorID         uint
	TagSlugs         []string
	IsFavorited      bool
	IsInShoppingCart bool
	Limit            int
	Offset           int
}

// RecipeService handles recipe operations
type RecipeService struct {
	db     *gorm.DB
	images *ImageService
}

var _ IRecipeService = (*RecipeService)(nil)

// NewRecipeService creates a new RecipeService instance
func NewRecipeService(db *gorm.DB, images *ImageService) *RecipeService {
	return &RecipeService{
		db:     db,
		images: images,
	}
}

// ValidateAssociations checks a proposed tag and ingredient set before anything is written
func ValidateAssociations(tagIDs []uint, ingredients []types.RecipeIngredientInput) error {
	if len(tagIDs) == 0 {
		return NewValidationError("tags", "at least one tag is required")
	}
	if len(ingredients) == 0 {
		return NewValidationError("ingredients", "at least one ingredient is required")
	}

	seen := make(map[uint]struct{}, len(ingredients))
	for _, item := range ingredients {
		if item.Amount <= 0 {
			return NewValidationError("ingredients", "ingredient amount must be greater than zero")
		}
		if item.Amount > maxAmount {
			return NewValidationError("ingredients", fmt.Sprintf("ingredient amount must not exceed %d", maxAmount))
		}
		if _, dup := seen[item.ID]; dup {
			return NewValidationError("ingredients", "ingredients must not repeat")
		}
		seen[item.ID] = struct{}{}
	}
	return nil
}

// replaceAssociations swaps the tag and ingredient sets of recipe for the
// proposed ones. It must run inside tx so a failure keeps the old sets.
func replaceAssociations(tx *gorm.DB, recipe *models.Recipe, tagIDs []uint, ingredients []types.RecipeIngredientInput) error {
	uniqueTags := make([]uint, 0, len(tagIDs))
	seenTags := make(map[uint]struct{}, len(tagIDs))
	for _, id := range tagIDs {
		if _, ok := seenTags[id]; !ok {
			seenTags[id] = struct{}{}
			uniqueTags = append(uniqueTags, id)
		}
	}

	var tags []models.Tag
	if err := tx.Where("id IN ?", uniqueTags).Find(&tags).Error; err != nil {
		return fmt.Errorf("failed to load tags: %w", err)
	}
	if len(tags) != len(uniqueTags) {
		return NewValidationError("tags", "unknown tag")
	}

	ingredientIDs := make([]uint, len(ingredients))
	for i, item := range ingredients {
		ingredientIDs[i] = item.ID
	}
	var known int64
	if err := tx.Model(&models.Ingredient{}).Where("id IN ?", ingredientIDs).Count(&known).Error; err != nil {
		return fmt.Errorf("failed to check ingredients: %w", err)
	}
	if int(known) != len(ingredientIDs) {
		return notFound("ingredient")
	}

	if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.IngredientRecipe{}).Error; err != nil {
		return fmt.Errorf("failed to clear recipe ingredients: %w", err)
	}
	if err := tx.Model(recipe).Association("Tags").Replace(tags); err != nil {
		return fmt.Errorf("failed to replace recipe tags: %w", err)
	}

	rows := make([]models.IngredientRecipe, len(ingredients))
	for i, item := range ingredients {
		rows[i] = models.IngredientRecipe{
			RecipeID:     recipe.ID,
			IngredientID: item.ID,
			Amount:       item.Amount,
		}
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to create recipe ingredients: %w", err)
	}
	recipe.Ingredients = rows
	return nil
}

// CreateRecipe stores a new recipe for authorID together with its image,
// tags and ingredients
func (s *RecipeService) CreateRecipe(ctx context.Context, authorID uint, req *types.RecipeRequest) (*models.Recipe, error) {
	if err := ValidateAssociations(req.Tags, req.Ingredients); err != nil {
		return nil, err
	}
	if req.Image == "" {
		return nil, NewValidationError("image", "image is required")
	}

	imageURL, err := s.images.SaveDataURI(ctx, req.Image)
	if err != nil {
		return nil, err
	}

	recipe := &models.Recipe{
		AuthorID:    authorID,
		Name:        req.Name,
		Text:        req.Text,
		CookingTime: req.CookingTime,
		Image:       imageURL,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Tags", "Ingredients", "Author").Create(recipe).Error; err != nil {
			return fmt.Errorf("failed to create recipe: %w", err)
		}
		return replaceAssociations(tx, recipe, req.Tags, req.Ingredients)
	})
	if err != nil {
		s.images.Delete(ctx, imageURL)
		return nil, err
	}

	logger.L().Info("recipe created", zap.Uint("recipe_id", recipe.ID), zap.Uint("author_id", authorID))
	return s.GetRecipe(ctx, recipe.ID)
}

// GetRecipe loads a recipe with author, tags and ingredients
func (s *RecipeService) GetRecipe(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	err := s.preload(s.db.WithContext(ctx)).First(&recipe, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("recipe")
		}
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}
	return &recipe, nil
}

// GetRecipeForChange loads a recipe and checks that actorID may modify it.
// Callers run it before looking at any payload.
func (s *RecipeService) GetRecipeForChange(ctx context.Context, actorID, id uint) (*models.Recipe, error) {
	recipe, err := s.GetRecipe(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.MayModifyRecipe(actorID, recipe) {
		return nil, ErrForbidden
	}
	return recipe, nil
}

// UpdateRecipe rewrites the scalar fields of recipe and replaces its
// associations. The author never changes. An empty image keeps the old one.
func (s *RecipeService) UpdateRecipe(ctx context.Context, recipe *models.Recipe, req *types.RecipeRequest) (*models.Recipe, error) {
	if err := ValidateAssociations(req.Tags, req.Ingredients); err != nil {
		return nil, err
	}

	oldImage := recipe.Image
	newImage := ""
	if req.Image != "" {
		url, err := s.images.SaveDataURI(ctx, req.Image)
		if err != nil {
			return nil, err
		}
		newImage = url
	}

	updates := map[string]interface{}{
		"name":         req.Name,
		"text":         req.Text,
		"cooking_time": req.CookingTime,
	}
	if newImage != "" {
		updates["image"] = newImage
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Recipe{ID: recipe.ID}).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update recipe: %w", err)
		}
		return replaceAssociations(tx, &models.Recipe{ID: recipe.ID}, req.Tags, req.Ingredients)
	})
	if err != nil {
		s.images.Delete(ctx, newImage)
		return nil, err
	}
	if newImage != "" {
		s.images.Delete(ctx, oldImage)
	}

	logger.L().Info("recipe updated", zap.Uint("recipe_id", recipe.ID))
	return s.GetRecipe(ctx, recipe.ID)
}

// DeleteRecipe removes recipe with everything that hangs off it
func (s *RecipeService) DeleteRecipe(ctx context.Context, recipe *models.Recipe) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, dependent := range []interface{}{&models.IngredientRecipe{}, &models.Favorite{}, &models.ShoppingCart{}} {
			if err := tx.Where("recipe_id = ?", recipe.ID).Delete(dependent).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&models.Recipe{ID: recipe.ID}).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(&models.Recipe{}, recipe.ID).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}

	s.images.Delete(ctx, recipe.Image)
	logger.L().Info("recipe deleted", zap.Uint("recipe_id", recipe.ID))
	return nil
}

// ListRecipes returns one page of recipes, newest first, and the total count
func (s *RecipeService) ListRecipes(ctx context.Context, viewer Viewer, filter RecipeFilter) ([]models.Recipe, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Recipe{})

	if filter.AuthorID != 0 {
		q = q.Where("recipes.author_id = ?", filter.AuthorID)
	}
	if len(filter.TagSlugs) > 0 {
		tagged := s.db.Table("recipe_tags").
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", filter.TagSlugs)
		q = q.Where("recipes.id IN (?)", tagged)
	}
	if filter.IsFavorited && viewer.Authenticated() {
		q = q.Where("recipes.id IN (?)",
			s.db.Table("favorites").Select("recipe_id").Where("user_id = ?", viewer.UserID))
	}
	if filter.IsInShoppingCart && viewer.Authenticated() {
		q = q.Where("recipes.id IN (?)",
			s.db.Table("shopping_carts").Select("recipe_id").Where("user_id = ?", viewer.UserID))
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count recipes: %w", err)
	}

	var recipes []models.Recipe
	page := s.preload(q).Order("recipes.id DESC")
	if filter.Limit > 0 {
		page = page.Limit(filter.Limit).Offset(filter.Offset)
	}
	if err := page.Find(&recipes).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list recipes: %w", err)
	}
	return recipes, total, nil
}

func (s *RecipeService) preload(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Tags").
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("ingredient_recipes.id") }).
		Preload("Ingredients.Ingredient")
}
