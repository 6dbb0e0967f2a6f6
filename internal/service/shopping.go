package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/logger"
	"github.com/pageza/foodgram/backend/internal/models"
)

// ShoppingItem is one consolidated line of a shopping list
type ShoppingItem struct {
	Name            string `gorm:"column:name"`
	MeasurementUnit string `gorm:"column:measurement_unit"`
	TotalAmount     int64  `gorm:"column:total_amount"`
}

// ShoppingListService builds the downloadable list for a user's cart
type ShoppingListService struct {
	db *gorm.DB
}

var _ IShoppingListService = (*ShoppingListService)(nil)

func NewShoppingListService(db *gorm.DB) *ShoppingListService {
	return &ShoppingListService{db: db}
}

// Aggregate sums ingredient amounts over every recipe in the user's cart,
// one item per (name, measurement unit) pair
func (s *ShoppingListService) Aggregate(ctx context.Context, userID uint) ([]ShoppingItem, error) {
	var items []ShoppingItem
	err := s.db.WithContext(ctx).
		Table("shopping_carts").
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(ingredient_recipes.amount) AS total_amount").
		Joins("JOIN ingredient_recipes ON ingredient_recipes.recipe_id = shopping_carts.recipe_id").
		Joins("JOIN ingredients ON ingredients.id = ingredient_recipes.ingredient_id").
		Where("shopping_carts.user_id = ?", userID).
		Group("ingredients.name, ingredients.measurement_unit").
		Scan(&items).Error
	if err != nil {
		logger.L().Error("shopping list aggregation failed", zap.Uint("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to aggregate shopping list: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	return items, nil
}

// Render formats items as the plain-text list. Items are sorted in place.
func (s *ShoppingListService) Render(user *models.User, items []ShoppingItem, now time.Time) []byte {
	// collators are not safe for concurrent use
	c := collate.New(language.Russian)
	sort.SliceStable(items, func(i, j int) bool {
		if cmp := c.CompareString(items[i].Name, items[j].Name); cmp != 0 {
			return cmp < 0
		}
		return c.CompareString(items[i].MeasurementUnit, items[j].MeasurementUnit) < 0
	})

	var buf bytes.Buffer
	buf.WriteString("Foodgram - shopping list\n\n")
	fmt.Fprintf(&buf, "User: %s\n\n", user.FullName())
	fmt.Fprintf(&buf, "Date: %s\n\n", now.Format("02.01.2006"))
	for _, item := range items {
		fmt.Fprintf(&buf, "• %s (%s) — %d\n", item.Name, item.MeasurementUnit, item.TotalAmount)
	}
	return buf.Bytes()
}

// Filename is the attachment name offered to the client
func (s *ShoppingListService) Filename(user *models.User) string {
	return user.Username + "_shopping_list.txt"
}
