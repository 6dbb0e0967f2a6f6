package service

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// Presenter builds viewer-dependent read models. Every per-viewer flag is
// resolved with one query per page, not one per row.
type Presenter struct {
	db *gorm.DB
}

func NewPresenter(db *gorm.DB) *Presenter {
	return &Presenter{db: db}
}

// membership returns which of ids appear in column for rows of table owned by userID
func (p *Presenter) membership(ctx context.Context, table, column string, userID uint, ids []uint) (map[uint]bool, error) {
	set := make(map[uint]bool, len(ids))
	if userID == 0 || len(ids) == 0 {
		return set, nil
	}

	var found []uint
	err := p.db.WithContext(ctx).Table(table).
		Where("user_id = ? AND "+column+" IN ?", userID, ids).
		Pluck(column, &found).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load %s for viewer: %w", table, err)
	}
	for _, id := range found {
		set[id] = true
	}
	return set, nil
}

func userResponse(u *models.User, subscribed bool) types.UserResponse {
	return types.UserResponse{
		Email:        u.Email,
		ID:           u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
	}
}

// Users renders users with is_subscribed computed for viewer
func (p *Presenter) Users(ctx context.Context, viewer Viewer, users []models.User) ([]types.UserResponse, error) {
	ids := make([]uint, len(users))
	for i := range users {
		ids[i] = users[i].ID
	}
	subscribed, err := p.membership(ctx, "follows", "author_id", viewer.UserID, ids)
	if err != nil {
		return nil, err
	}

	out := make([]types.UserResponse, len(users))
	for i := range users {
		out[i] = userResponse(&users[i], subscribed[users[i].ID])
	}
	return out, nil
}

// User renders a single user
func (p *Presenter) User(ctx context.Context, viewer Viewer, user *models.User) (types.UserResponse, error) {
	out, err := p.Users(ctx, viewer, []models.User{*user})
	if err != nil {
		return types.UserResponse{}, err
	}
	return out[0], nil
}

// Recipes renders fully preloaded recipes for viewer
func (p *Presenter) Recipes(ctx context.Context, viewer Viewer, recipes []models.Recipe) ([]types.RecipeResponse, error) {
	recipeIDs := make([]uint, len(recipes))
	authorIDs := make([]uint, 0, len(recipes))
	for i := range recipes {
		recipeIDs[i] = recipes[i].ID
		authorIDs = append(authorIDs, recipes[i].AuthorID)
	}

	favorited, err := p.membership(ctx, "favorites", "recipe_id", viewer.UserID, recipeIDs)
	if err != nil {
		return nil, err
	}
	inCart, err := p.membership(ctx, "shopping_carts", "recipe_id", viewer.UserID, recipeIDs)
	if err != nil {
		return nil, err
	}
	subscribed, err := p.membership(ctx, "follows", "author_id", viewer.UserID, authorIDs)
	if err != nil {
		return nil, err
	}

	out := make([]types.RecipeResponse, len(recipes))
	for i := range recipes {
		r := &recipes[i]

		tags := make([]types.TagResponse, len(r.Tags))
		for j, tag := range r.Tags {
			tags[j] = TagResponse(&tag)
		}
		sort.Slice(tags, func(a, b int) bool { return tags[a].Name < tags[b].Name })

		ingredients := make([]types.RecipeIngredientResponse, len(r.Ingredients))
		for j, item := range r.Ingredients {
			ingredients[j] = types.RecipeIngredientResponse{
				ID:              item.IngredientID,
				Name:            item.Ingredient.Name,
				MeasurementUnit: item.Ingredient.MeasurementUnit,
				Amount:          item.Amount,
			}
		}

		out[i] = types.RecipeResponse{
			ID:               r.ID,
			Tags:             tags,
			Author:           userResponse(&r.Author, subscribed[r.AuthorID]),
			Ingredients:      ingredients,
			IsFavorited:      favorited[r.ID],
			IsInShoppingCart: inCart[r.ID],
			Name:             r.Name,
			Image:            r.Image,
			Text:             r.Text,
			CookingTime:      r.CookingTime,
		}
	}
	return out, nil
}

// Recipe renders a single recipe
func (p *Presenter) Recipe(ctx context.Context, viewer Viewer, recipe *models.Recipe) (types.RecipeResponse, error) {
	out, err := p.Recipes(ctx, viewer, []models.Recipe{*recipe})
	if err != nil {
		return types.RecipeResponse{}, err
	}
	return out[0], nil
}

// MinifiedRecipe is the short form returned by favorite and cart toggles
func MinifiedRecipe(r *models.Recipe) types.RecipeMinified {
	return types.RecipeMinified{
		ID:          r.ID,
		Name:        r.Name,
		Image:       r.Image,
		CookingTime: r.CookingTime,
	}
}

func TagResponse(t *models.Tag) types.TagResponse {
	return types.TagResponse{ID: t.ID, Name: t.Name, Color: t.Color, Slug: t.Slug}
}

func IngredientResponse(i *models.Ingredient) types.IngredientResponse {
	return types.IngredientResponse{ID: i.ID, Name: i.Name, MeasurementUnit: i.MeasurementUnit}
}

// NoRecipesLimit disables the per-author recipe cap in Subscriptions
const NoRecipesLimit = -1

// Subscriptions renders followed authors with at most recipesLimit recipes
// each and their total recipe count. A zero limit yields empty previews.
func (p *Presenter) Subscriptions(ctx context.Context, viewer Viewer, authors []models.User, recipesLimit int) ([]types.SubscriptionResponse, error) {
	users, err := p.Users(ctx, viewer, authors)
	if err != nil {
		return nil, err
	}
	if len(authors) == 0 {
		return []types.SubscriptionResponse{}, nil
	}

	ids := make([]uint, len(authors))
	for i := range authors {
		ids[i] = authors[i].ID
	}

	var counts []struct {
		AuthorID uint
		Total    int64
	}
	err = p.db.WithContext(ctx).Model(&models.Recipe{}).
		Select("author_id, COUNT(*) AS total").
		Where("author_id IN ?", ids).
		Group("author_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count recipes: %w", err)
	}
	countByAuthor := make(map[uint]int64, len(counts))
	for _, c := range counts {
		countByAuthor[c.AuthorID] = c.Total
	}

	var recipes []models.Recipe
	err = p.db.WithContext(ctx).
		Select("id, author_id, name, image, cooking_time").
		Where("author_id IN ?", ids).
		Order("id DESC").
		Find(&recipes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recipes: %w", err)
	}
	byAuthor := make(map[uint][]types.RecipeMinified, len(authors))
	for i := range recipes {
		r := &recipes[i]
		if recipesLimit >= 0 && len(byAuthor[r.AuthorID]) >= recipesLimit {
			continue
		}
		byAuthor[r.AuthorID] = append(byAuthor[r.AuthorID], MinifiedRecipe(r))
	}

	out := make([]types.SubscriptionResponse, len(users))
	for i, u := range users {
		preview := byAuthor[u.ID]
		if preview == nil {
			preview = []types.RecipeMinified{}
		}
		out[i] = types.SubscriptionResponse{
			UserResponse: u,
			Recipes:      preview,
			RecipesCount: countByAuthor[u.ID],
		}
	}
	return out, nil
}
