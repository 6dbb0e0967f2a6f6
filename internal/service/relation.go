package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/logger"
	"github.com/pageza/foodgram/backend/internal/models"
)

// RelationService toggles the binary user relations: favorite, cart and follow.
// Activating twice is a validation error; deactivating an absent relation is not-found.
type RelationService struct {
	db *gorm.DB
}

var _ IRelationService = (*RelationService)(nil)

func NewRelationService(db *gorm.DB) *RelationService {
	return &RelationService{db: db}
}

// recipeMark is a (user, recipe) row: models.Favorite or models.ShoppingCart
type recipeMark interface {
	TableName() string
}

func (s *RelationService) findRecipe(ctx context.Context, recipeID uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("recipe")
		}
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}
	return &recipe, nil
}

func (s *RelationService) mark(ctx context.Context, row recipeMark, userID, recipeID uint, existsMsg string) (*models.Recipe, error) {
	recipe, err := s.findRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Table(row.TableName()).Where("user_id = ? AND recipe_id = ?", userID, recipeID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check %s: %w", row.TableName(), err)
	}
	if count > 0 {
		return nil, NewValidationError("errors", existsMsg)
	}

	if err := db.Create(row).Error; err != nil {
		// a concurrent request won the race for the unique index
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, NewValidationError("errors", existsMsg)
		}
		return nil, fmt.Errorf("failed to add to %s: %w", row.TableName(), err)
	}

	logger.L().Info("recipe marked",
		zap.String("relation", row.TableName()),
		zap.Uint("user_id", userID),
		zap.Uint("recipe_id", recipeID),
	)
	return recipe, nil
}

func (s *RelationService) unmark(ctx context.Context, row recipeMark, userID, recipeID uint, missing string) error {
	if _, err := s.findRecipe(ctx, recipeID); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).Where("user_id = ? AND recipe_id = ?", userID, recipeID).Delete(row)
	if res.Error != nil {
		return fmt.Errorf("failed to remove from %s: %w", row.TableName(), res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound(missing)
	}
	return nil
}

func (s *RelationService) AddFavorite(ctx context.Context, userID, recipeID uint) (*models.Recipe, error) {
	return s.mark(ctx, &models.Favorite{UserID: userID, RecipeID: recipeID}, userID, recipeID,
		"recipe already exists in favorites")
}

func (s *RelationService) RemoveFavorite(ctx context.Context, userID, recipeID uint) error {
	return s.unmark(ctx, &models.Favorite{}, userID, recipeID, "favorite")
}

func (s *RelationService) AddToCart(ctx context.Context, userID, recipeID uint) (*models.Recipe, error) {
	return s.mark(ctx, &models.ShoppingCart{UserID: userID, RecipeID: recipeID}, userID, recipeID,
		"recipe already exists in the shopping cart")
}

func (s *RelationService) RemoveFromCart(ctx context.Context, userID, recipeID uint) error {
	return s.unmark(ctx, &models.ShoppingCart{}, userID, recipeID, "shopping cart entry")
}

// Subscribe makes userID follow authorID and returns the author
func (s *RelationService) Subscribe(ctx context.Context, userID, authorID uint) (*models.User, error) {
	db := s.db.WithContext(ctx)

	var author models.User
	if err := db.First(&author, authorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("author")
		}
		return nil, fmt.Errorf("failed to load author: %w", err)
	}
	if userID == authorID {
		return nil, NewValidationError("errors", "you cannot subscribe to yourself")
	}

	var count int64
	if err := db.Model(&models.Follow{}).Where("user_id = ? AND author_id = ?", userID, authorID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check subscription: %w", err)
	}
	if count > 0 {
		return nil, NewValidationError("errors", "subscription already exists")
	}

	if err := db.Create(&models.Follow{UserID: userID, AuthorID: authorID}).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, NewValidationError("errors", "subscription already exists")
		}
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	logger.L().Info("subscribed", zap.Uint("user_id", userID), zap.Uint("author_id", authorID))
	return &author, nil
}

func (s *RelationService) Unsubscribe(ctx context.Context, userID, authorID uint) error {
	db := s.db.WithContext(ctx)

	var author models.User
	if err := db.Select("id").First(&author, authorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("author")
		}
		return fmt.Errorf("failed to load author: %w", err)
	}

	res := db.Where("user_id = ? AND author_id = ?", userID, authorID).Delete(&models.Follow{})
	if res.Error != nil {
		return fmt.Errorf("failed to unsubscribe: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("subscription")
	}
	return nil
}

// Subscriptions returns one page of the authors userID follows
func (s *RelationService) Subscriptions(ctx context.Context, userID uint, limit, offset int) ([]models.User, int64, error) {
	followed := s.db.Model(&models.Follow{}).Select("author_id").Where("user_id = ?", userID)

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id IN (?)", followed).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	var authors []models.User
	err := s.db.WithContext(ctx).
		Where("id IN (?)", followed).
		Order("id").
		Limit(limit).
		Offset(offset).
		Find(&authors).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return authors, total, nil
}
