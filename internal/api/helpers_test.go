package api_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/authz"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

type discardImageStore struct{}

func (discardImageStore) Save(_ context.Context, key string, _ []byte, _ string) (string, error) {
	return "/media/" + key, nil
}

func (discardImageStore) Delete(context.Context, string) error { return nil }

var pngPayload = "data:image/png;base64," +
	base64.StdEncoding.EncodeToString(append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...))

// apiEnv is the full router on an in-memory database
type apiEnv struct {
	t      *testing.T
	db     *gorm.DB
	auth   *service.AuthService
	router *gin.Engine
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testhelpers.NewSQLiteDB(t)
	enforcer, err := authz.NewEnforcer()
	require.NoError(t, err)
	auth := service.NewAuthService(db, "test-secret", time.Hour, service.NewMemoryTokenBlacklist())

	deps := &api.Dependencies{
		DB:          db,
		Auth:        auth,
		Users:       service.NewUserService(db),
		Recipes:     service.NewRecipeService(db, service.NewImageService(discardImageStore{}, 1<<20)),
		Tags:        service.NewTagService(db),
		Ingredients: service.NewIngredientService(db),
		Relations:   service.NewRelationService(db),
		Shopping:    service.NewShoppingListService(db),
		Presenter:   service.NewPresenter(db),
		Enforcer:    enforcer,
		PageSize:    6,
	}

	router := gin.New()
	require.NoError(t, api.RegisterRoutes(router, deps))
	return &apiEnv{t: t, db: db, auth: auth, router: router}
}

func (e *apiEnv) token(user *models.User) string {
	e.t.Helper()
	token, err := e.auth.GenerateToken(user)
	require.NoError(e.t, err)
	return token
}

// do sends body as JSON; an empty token makes an anonymous request
func (e *apiEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func recipePayload(tag *models.Tag, ingredients map[*models.Ingredient]int) map[string]interface{} {
	items := make([]map[string]interface{}, 0, len(ingredients))
	for ing, amount := range ingredients {
		items = append(items, map[string]interface{}{"id": ing.ID, "amount": amount})
	}
	return map[string]interface{}{
		"ingredients":  items,
		"tags":         []uint{tag.ID},
		"image":        pngPayload,
		"name":         "Borscht",
		"text":         "Boil the beets.",
		"cooking_time": 90,
	}
}
