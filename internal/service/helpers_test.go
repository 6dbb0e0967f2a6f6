package service_test

import (
	"context"
	"encoding/base64"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
)

// memoryImageStore keeps images in a map keyed by public URL
type memoryImageStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryImageStore() *memoryImageStore {
	return &memoryImageStore{objects: make(map[string][]byte)}
}

func (m *memoryImageStore) Save(_ context.Context, key string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	url := "/media/" + key
	m.objects[url] = data
	return url, nil
}

func (m *memoryImageStore) Delete(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, url)
	return nil
}

func (m *memoryImageStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

func pngDataURI() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
}

// recipeEnv is a database with two users, tags and ingredients ready for recipes
type recipeEnv struct {
	db      *gorm.DB
	store   *memoryImageStore
	recipes *service.RecipeService

	author *models.User
	other  *models.User

	breakfast *models.Tag
	dinner    *models.Tag

	salt  *models.Ingredient
	sugar *models.Ingredient
	flour *models.Ingredient
}

func newRecipeEnv(t *testing.T) *recipeEnv {
	db := testhelpers.NewSQLiteDB(t)
	store := newMemoryImageStore()

	return &recipeEnv{
		db:        db,
		store:     store,
		recipes:   service.NewRecipeService(db, service.NewImageService(store, 1<<20)),
		author:    testhelpers.CreateUser(t, db, "author"),
		other:     testhelpers.CreateUser(t, db, "other"),
		breakfast: testhelpers.CreateTag(t, db, "Breakfst", "breakfast"),
		dinner:    testhelpers.CreateTag(t, db, "Dinner", "dinner"),
		salt:      testhelpers.CreateIngredient(t, db, "Salt", "g"),
		sugar:     testhelpers.CreateIngredient(t, db, "Sugar", "g"),
		flour:     testhelpers.CreateIngredient(t, db, "Flour", "g"),
	}
}

func (e *recipeEnv) request(tags []uint, ingredients ...types.RecipeIngredientInput) *types.RecipeRequest {
	return &types.RecipeRequest{
		Ingredients: ingredients,
		Tags:        tags,
		Image:       pngDataURI(),
		Name:        "Pancakes",
		Text:        "Whisk and fry.",
		CookingTime: 20,
	}
}

func (e *recipeEnv) create(t *testing.T, tags []uint, ingredients ...types.RecipeIngredientInput) *models.Recipe {
	t.Helper()
	recipe, err := e.recipes.CreateRecipe(context.Background(), e.author.ID, e.request(tags, ingredients...))
	require.NoError(t, err)
	return recipe
}

func item(ingredient *models.Ingredient, amount int) types.RecipeIngredientInput {
	return types.RecipeIngredientInput{ID: ingredient.ID, Amount: amount}
}

// storedAssociations reads the persisted tag ids and ingredient amounts of a recipe
func storedAssociations(t *testing.T, db *gorm.DB, recipeID uint) ([]uint, map[uint]int) {
	t.Helper()

	var tagIDs []uint
	require.NoError(t, db.Table("recipe_tags").Where("recipe_id = ?", recipeID).Pluck("tag_id", &tagIDs).Error)
	sort.Slice(tagIDs, func(i, j int) bool { return tagIDs[i] < tagIDs[j] })

	var rows []models.IngredientRecipe
	require.NoError(t, db.Where("recipe_id = ?", recipeID).Find(&rows).Error)
	amounts := make(map[uint]int, len(rows))
	for _, row := range rows {
		amounts[row.IngredientID] = row.Amount
	}
	return tagIDs, amounts
}
