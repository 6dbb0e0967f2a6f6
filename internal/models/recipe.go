package models

import "time"

// Recipe is owned by its author. Tags and Ingredients are always replaced as a
// whole, never patched row by row.
type Recipe struct {
	ID          uint               `gorm:"primarykey"`
	AuthorID    uint               `gorm:"not null;index"`
	Author      User               `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	Name        string             `gorm:"size:200;not null"`
	Text        string             `gorm:"type:text;not null"`
	CookingTime int                `gorm:"not null;check:chk_recipe_cooking_time,cooking_time >= 1"`
	Image       string             `gorm:"size:255;not null"`
	PubDate     time.Time          `gorm:"autoCreateTime;index"`
	Tags        []Tag              `gorm:"many2many:recipe_tags;constraint:OnDelete:CASCADE"`
	Ingredients []IngredientRecipe `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
}

// IngredientRecipe carries the amount of one ingredient in one recipe
type IngredientRecipe struct {
	ID           uint       `gorm:"primarykey"`
	RecipeID     uint       `gorm:"not null;uniqueIndex:idx_ingredient_recipe"`
	IngredientID uint       `gorm:"not null;uniqueIndex:idx_ingredient_recipe;index"`
	Ingredient   Ingredient `gorm:"foreignKey:IngredientID;constraint:OnDelete:RESTRICT"`
	Amount       int        `gorm:"not null;check:chk_ingredient_recipe_amount,amount >= 1"`
}

// Favorite marks a recipe as favorited by a user
type Favorite struct {
	ID        uint      `gorm:"primarykey"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_favorite_user_recipe"`
	RecipeID  uint      `gorm:"not null;uniqueIndex:idx_favorite_user_recipe;index"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Recipe    Recipe    `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

func (Favorite) TableName() string {
	return "favorites"
}

// ShoppingCart marks a recipe as being in a user's cart
type ShoppingCart struct {
	ID        uint      `gorm:"primarykey"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_cart_user_recipe"`
	RecipeID  uint      `gorm:"not null;uniqueIndex:idx_cart_user_recipe;index"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Recipe    Recipe    `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

func (ShoppingCart) TableName() string {
	return "shopping_carts"
}

// All lists every model in dependency order for AutoMigrate
func All() []interface{} {
	return []interface{}{
		&User{},
		&Follow{},
		&Ingredient{},
		&Tag{},
		&Recipe{},
		&IngredientRecipe{},
		&Favorite{},
		&ShoppingCart{},
	}
}
