package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

func requireValidation(t *testing.T, err error, contains string) {
	t.Helper()
	var verr *service.ValidationError
	require.True(t, errors.As(err, &verr), "expected a validation error, got %v", err)
	assert.Contains(t, verr.Message, contains)
}

func TestRecipeMarks(t *testing.T) {
	marks := []struct {
		name   string
		add    func(*service.RelationService) func(context.Context, uint, uint) (*models.Recipe, error)
		remove func(*service.RelationService) func(context.Context, uint, uint) error
	}{
		{"favorite", func(s *service.RelationService) func(context.Context, uint, uint) (*models.Recipe, error) {
			return s.AddFavorite
		}, func(s *service.RelationService) func(context.Context, uint, uint) error {
			return s.RemoveFavorite
		}},
		{"shopping cart", func(s *service.RelationService) func(context.Context, uint, uint) (*models.Recipe, error) {
			return s.AddToCart
		}, func(s *service.RelationService) func(context.Context, uint, uint) error {
			return s.RemoveFromCart
		}},
	}

	for _, m := range marks {
		t.Run(m.name, func(t *testing.T) {
			env := newRecipeEnv(t)
			ctx := context.Background()
			relations := service.NewRelationService(env.db)
			add, remove := m.add(relations), m.remove(relations)
			recipe := testhelpers.CreateRecipe(t, env.db, env.author, "Soup", []*models.Tag{env.dinner})

			got, err := add(ctx, env.other.ID, recipe.ID)
			require.NoError(t, err)
			assert.Equal(t, recipe.ID, got.ID)

			_, err = add(ctx, env.other.ID, recipe.ID)
			requireValidation(t, err, "already exists")

			// another user's mark is independent
			_, err = add(ctx, env.author.ID, recipe.ID)
			require.NoError(t, err)

			require.NoError(t, remove(ctx, env.other.ID, recipe.ID))
			assert.True(t, errors.Is(remove(ctx, env.other.ID, recipe.ID), service.ErrNotFound))

			_, err = add(ctx, env.other.ID, 9999)
			assert.True(t, errors.Is(err, service.ErrNotFound))
			assert.True(t, errors.Is(remove(ctx, env.other.ID, 9999), service.ErrNotFound))
		})
	}
}

func TestSubscribe(t *testing.T) {
	db := testhelpers.NewSQLiteDB(t)
	ctx := context.Background()
	relations := service.NewRelationService(db)
	reader := testhelpers.CreateUser(t, db, "reader")
	writer := testhelpers.CreateUser(t, db, "writer")

	author, err := relations.Subscribe(ctx, reader.ID, writer.ID)
	require.NoError(t, err)
	assert.Equal(t, "writer", author.Username)

	_, err = relations.Subscribe(ctx, reader.ID, writer.ID)
	requireValidation(t, err, "subscription already exists")

	_, err = relations.Subscribe(ctx, reader.ID, reader.ID)
	requireValidation(t, err, "yourself")

	_, err = relations.Subscribe(ctx, reader.ID, 9999)
	assert.True(t, errors.Is(err, service.ErrNotFound))

	require.NoError(t, relations.Unsubscribe(ctx, reader.ID, writer.ID))
	assert.True(t, errors.Is(relations.Unsubscribe(ctx, reader.ID, writer.ID), service.ErrNotFound))
	assert.True(t, errors.Is(relations.Unsubscribe(ctx, reader.ID, 9999), service.ErrNotFound))
}

func TestSelfSubscribeAlwaysFails(t *testing.T) {
	db := testhelpers.NewSQLiteDB(t)
	ctx := context.Background()
	relations := service.NewRelationService(db)
	user := testhelpers.CreateUser(t, db, "loner")
	other := testhelpers.CreateUser(t, db, "other")

	_, err := relations.Subscribe(ctx, user.ID, user.ID)
	requireValidation(t, err, "yourself")

	_, err = relations.Subscribe(ctx, user.ID, other.ID)
	require.NoError(t, err)
	_, err = relations.Subscribe(ctx, other.ID, user.ID)
	require.NoError(t, err)

	_, err = relations.Subscribe(ctx, user.ID, user.ID)
	requireValidation(t, err, "yourself")

	// the schema refuses self-follow rows as well
	assert.Error(t, db.Create(&models.Follow{UserID: user.ID, AuthorID: user.ID}).Error)
}

func TestSubscriptionsPage(t *testing.T) {
	db := testhelpers.NewSQLiteDB(t)
	ctx := context.Background()
	relations := service.NewRelationService(db)
	reader := testhelpers.CreateUser(t, db, "reader")

	var authors []*models.User
	for _, name := range []string{"alpha", "beta", "gamma"} {
		a := testhelpers.CreateUser(t, db, name)
		authors = append(authors, a)
		_, err := relations.Subscribe(ctx, reader.ID, a.ID)
		require.NoError(t, err)
	}
	testhelpers.CreateUser(t, db, "unfollowed")

	page, total, err := relations.Subscriptions(ctx, reader.ID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, authors[0].ID, page[0].ID)
	assert.Equal(t, authors[1].ID, page[1].ID)

	page, _, err = relations.Subscriptions(ctx, reader.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "gamma", page[0].Username)

	page, total, err = relations.Subscriptions(ctx, authors[0].ID, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, page)
}
