package api_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

func TestRegisterLoginLogout(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(http.MethodPost, "/api/users", "", map[string]string{
		"email":      "vasya@example.com",
		"username":   "vasya.pupkin",
		"first_name": "Vasya",
		"last_name":  "Pupkin",
		"password":   "Qwerty123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Len(t, body, 5)
	assert.Equal(t, "vasya.pupkin", body["username"])
	assert.NotContains(t, body, "password")

	w = env.do(http.MethodPost, "/api/auth/token/login", "", map[string]string{
		"email": "vasya@example.com", "password": "wrong-one",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/api/auth/token/login", "", map[string]string{
		"email": "vasya@example.com", "password": "Qwerty123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token, _ := decode(t, w)["auth_token"].(string)
	require.NotEmpty(t, token)

	w = env.do(http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode(t, w)
	assert.Equal(t, "vasya@example.com", me["email"])
	assert.Equal(t, false, me["is_subscribed"])

	assert.Equal(t, http.StatusNoContent, env.do(http.MethodPost, "/api/auth/token/logout", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/users/me", token, nil).Code)
}

func TestRegisterValidation(t *testing.T) {
	env := newAPIEnv(t)
	testhelpers.CreateUser(t, env.db, "taken")

	tests := []struct {
		name      string
		body      interface{}
		wantField string
	}{
		{"malformed json", `{"email":`, "body"},
		{"missing fields", map[string]string{"email": "a@example.com"}, "username"},
		{"bad email", map[string]string{
			"email": "nope", "username": "u", "first_name": "A", "last_name": "B", "password": "Qwerty123",
		}, "email"},
		{"bad username", map[string]string{
			"email": "a@example.com", "username": "has space", "first_name": "A", "last_name": "B", "password": "Qwerty123",
		}, "username"},
		{"short password", map[string]string{
			"email": "a@example.com", "username": "u", "first_name": "A", "last_name": "B", "password": "short",
		}, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/api/users", "", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			body := decode(t, w)
			fields, ok := body["fields"].(map[string]interface{})
			require.True(t, ok, w.Body.String())
			assert.Contains(t, fields, tt.wantField)
		})
	}

	w := env.do(http.MethodPost, "/api/users", "", map[string]string{
		"email": "taken@example.com", "username": "fresh", "first_name": "A", "last_name": "B", "password": "Qwerty123",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "email", decode(t, w)["field"])
}

func TestAuthenticationErrors(t *testing.T) {
	env := newAPIEnv(t)
	user := testhelpers.CreateUser(t, env.db, "cook")

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/users/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/recipes", "garbage", nil).Code)

	token := env.token(user)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/recipes", token, nil).Code)

	require.NoError(t, env.db.Model(&models.User{}).Where("id = ?", user.ID).Update("is_active", false).Error)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/recipes", token, nil).Code)
}

func TestSetPassword(t *testing.T) {
	env := newAPIEnv(t)
	user := testhelpers.CreateUser(t, env.db, "cook")
	token := env.token(user)

	w := env.do(http.MethodPost, "/api/users/set_password", "", map[string]string{
		"current_password": testhelpers.TestPassword, "new_password": "another-pass",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodPost, "/api/users/set_password", token, map[string]string{
		"current_password": "not-it", "new_password": "another-pass",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "current_password", decode(t, w)["field"])

	w = env.do(http.MethodPost, "/api/users/set_password", token, map[string]string{
		"current_password": testhelpers.TestPassword, "new_password": "another-pass",
	})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(http.MethodPost, "/api/auth/token/login", "", map[string]string{
		"email": "cook@example.com", "password": "another-pass",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUsersListAndProfile(t *testing.T) {
	env := newAPIEnv(t)
	var users []*models.User
	for i := 0; i < 3; i++ {
		users = append(users, testhelpers.CreateUser(t, env.db, fmt.Sprintf("user%d", i)))
	}

	w := env.do(http.MethodGet, "/api/users?limit=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode(t, w)
	assert.Equal(t, float64(3), page["count"])
	assert.Equal(t, "http://example.com/api/users?limit=2&page=2", page["next"])
	assert.Nil(t, page["previous"])
	assert.Len(t, page["results"], 2)

	w = env.do(http.MethodGet, "/api/users?limit=2&page=2", "", nil)
	page = decode(t, w)
	assert.Nil(t, page["next"])
	assert.Equal(t, "http://example.com/api/users?limit=2", page["previous"])

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/users?page=0", "", nil).Code)

	w = env.do(http.MethodGet, fmt.Sprintf("/api/users/%d", users[1].ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user1", decode(t, w)["username"])

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/users/9999", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/users/abc", "", nil).Code)
}

func TestSubscriptionFlow(t *testing.T) {
	env := newAPIEnv(t)
	reader := testhelpers.CreateUser(t, env.db, "reader")
	author := testhelpers.CreateUser(t, env.db, "author")
	tag := testhelpers.CreateTag(t, env.db, "Lunch", "lunch")
	for _, name := range []string{"one", "two", "three"} {
		testhelpers.CreateRecipe(t, env.db, author, name, []*models.Tag{tag})
	}
	token := env.token(reader)
	subscribe := fmt.Sprintf("/api/users/%d/subscribe", author.ID)

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, subscribe, "", nil).Code)

	w := env.do(http.MethodPost, subscribe+"?recipes_limit=2", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["is_subscribed"])
	assert.Equal(t, float64(3), body["recipes_count"])
	assert.Len(t, body["recipes"], 2)

	w = env.do(http.MethodPost, subscribe, token, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "errors", decode(t, w)["field"])

	w = env.do(http.MethodPost, fmt.Sprintf("/api/users/%d/subscribe", reader.ID), token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPost, "/api/users/9999/subscribe", token, nil).Code)

	w = env.do(http.MethodGet, "/api/users/subscriptions?recipes_limit=1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode(t, w)
	assert.Equal(t, float64(1), page["count"])
	results := page["results"].([]interface{})
	require.Len(t, results, 1)
	assert.Len(t, results[0].(map[string]interface{})["recipes"], 1)

	w = env.do(http.MethodGet, "/api/users/subscriptions", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["results"].([]interface{})[0].(map[string]interface{})["recipes"], 3)

	w = env.do(http.MethodGet, "/api/users/subscriptions?recipes_limit=0", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	first := decode(t, w)["results"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, float64(3), first["recipes_count"])
	assert.Equal(t, []interface{}{}, first["recipes"])

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/users/subscriptions?recipes_limit=-1", token, nil).Code)

	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, subscribe, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, subscribe, token, nil).Code)
}
