package integration

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/server"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

type client struct {
	t       *testing.T
	handler http.Handler
	token   string
}

func (c *client) call(method, path string, body interface{}, wantStatus int) map[string]interface{} {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("failed to marshal body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)

	if w.Code != wantStatus {
		c.t.Fatalf("%s %s: got %d, want %d: %s", method, path, w.Code, wantStatus, w.Body.String())
	}
	if w.Body.Len() == 0 || !strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		return map[string]interface{}{"body": w.Body.String(), "disposition": w.Header().Get("Content-Disposition")}
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		// list endpoints return arrays
		var list []interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
			c.t.Fatalf("failed to decode %s %s: %v", method, path, err)
		}
		out["list"] = list
	}
	return out
}

func (c *client) login(email, password string) {
	c.t.Helper()
	resp := c.call(http.MethodPost, "/api/auth/token/login", map[string]string{"email": email, "password": password}, http.StatusOK)
	c.token, _ = resp["auth_token"].(string)
	if c.token == "" {
		c.t.Fatalf("no token returned")
	}
}

func TestIntegrationRecipeLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testhelpers.NewPostgresDB(t)
	redisClient := testhelpers.NewRedisClient(t)

	cfg := &config.Config{
		CORSOrigins:        []string{"http://localhost"},
		JWTSecret:          "integration-secret",
		TokenTTL:           time.Hour,
		StorageBackend:     "local",
		MediaRoot:          t.TempDir(),
		MediaURL:           "/media/",
		PageSize:           6,
		RecipeCreateLimit:  30,
		RecipeCreateWindow: time.Hour,
		MaxImageBytes:      1 << 20,
	}
	srv, err := server.New(cfg, db, redisClient, service.NewLocalImageStore(cfg.MediaRoot, cfg.MediaURL))
	if err != nil {
		t.Fatalf("failed to build server: %v", err)
	}
	handler := srv.Handler()

	admin := testhelpers.CreateStaff(t, db, "admin")
	staff := &client{t: t, handler: handler}
	staff.login(admin.Email, testhelpers.TestPassword)

	tag := staff.call(http.MethodPost, "/api/tags", map[string]string{"name": "Обед", "slug": "lunch", "color": "#49B64E"}, http.StatusCreated)
	beet := staff.call(http.MethodPost, "/api/ingredients", map[string]string{"name": "Свёкла", "measurement_unit": "г"}, http.StatusCreated)
	salt := staff.call(http.MethodPost, "/api/ingredients", map[string]string{"name": "Соль", "measurement_unit": "г"}, http.StatusCreated)

	staff.call(http.MethodPost, "/api/ingredients", map[string]string{"name": "Dill", "measurement_unit": "g"}, http.StatusCreated)
	search := staff.call(http.MethodGet, "/api/ingredients?search=DI", nil, http.StatusOK)
	if got := len(search["list"].([]interface{})); got != 1 {
		t.Fatalf("expected case-insensitive prefix match, got %d results", got)
	}
	search = staff.call(http.MethodGet, "/api/ingredients?search=СВЁ", nil, http.StatusOK)
	if got := len(search["list"].([]interface{})); got != 1 {
		t.Fatalf("expected cyrillic prefix match, got %d results", got)
	}

	anon := &client{t: t, handler: handler}
	anon.call(http.MethodPost, "/api/users", map[string]string{
		"email": "chef@example.com", "username": "chef", "first_name": "Ivan", "last_name": "Petrov", "password": "Qwerty123",
	}, http.StatusCreated)
	anon.call(http.MethodPost, "/api/users", map[string]string{
		"email": "fan@example.com", "username": "fan", "first_name": "Olga", "last_name": "Ivanova", "password": "Qwerty123",
	}, http.StatusCreated)

	chef := &client{t: t, handler: handler}
	chef.login("chef@example.com", "Qwerty123")
	fan := &client{t: t, handler: handler}
	fan.login("fan@example.com", "Qwerty123")

	image := "data:image/png;base64," + base64.StdEncoding.EncodeToString(append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...))
	newRecipe := func(name string, ingredients ...map[string]interface{}) map[string]interface{} {
		return chef.call(http.MethodPost, "/api/recipes", map[string]interface{}{
			"ingredients":  ingredients,
			"tags":         []interface{}{tag["id"]},
			"image":        image,
			"name":         name,
			"text":         "Cook it.",
			"cooking_time": 60,
		}, http.StatusCreated)
	}
	borscht := newRecipe("Borscht",
		map[string]interface{}{"id": beet["id"], "amount": 300},
		map[string]interface{}{"id": salt["id"], "amount": 5})
	pickles := newRecipe("Pickles",
		map[string]interface{}{"id": salt["id"], "amount": 3})

	fan.call(http.MethodPatch, fmt.Sprintf("/api/recipes/%v", borscht["id"]), map[string]interface{}{}, http.StatusForbidden)

	for _, r := range []map[string]interface{}{borscht, pickles} {
		fan.call(http.MethodPost, fmt.Sprintf("/api/recipes/%v/shopping_cart", r["id"]), nil, http.StatusCreated)
	}
	fan.call(http.MethodPost, fmt.Sprintf("/api/recipes/%v/favorite", borscht["id"]), nil, http.StatusCreated)
	fan.call(http.MethodPost, fmt.Sprintf("/api/recipes/%v/favorite", borscht["id"]), nil, http.StatusBadRequest)

	chefID := borscht["author"].(map[string]interface{})["id"]
	sub := fan.call(http.MethodPost, fmt.Sprintf("/api/users/%v/subscribe?recipes_limit=1", chefID), nil, http.StatusCreated)
	if sub["recipes_count"] != float64(2) || len(sub["recipes"].([]interface{})) != 1 {
		t.Fatalf("unexpected subscription payload: %v", sub)
	}

	favorites := fan.call(http.MethodGet, "/api/recipes?is_favorited=1", nil, http.StatusOK)
	if favorites["count"] != float64(1) {
		t.Fatalf("expected one favorite, got %v", favorites["count"])
	}

	list := fan.call(http.MethodGet, "/api/recipes/download_shopping_cart", nil, http.StatusOK)
	if list["disposition"] != "attachment; filename=fan_shopping_list.txt" {
		t.Fatalf("unexpected disposition %v", list["disposition"])
	}
	body := list["body"].(string)
	for _, line := range []string{"User: Olga Ivanova", "• Свёкла (г) — 300", "• Соль (г) — 8"} {
		if !strings.Contains(body, line) {
			t.Fatalf("shopping list is missing %q:\n%s", line, body)
		}
	}

	chef.call(http.MethodDelete, fmt.Sprintf("/api/recipes/%v", borscht["id"]), nil, http.StatusNoContent)
	list = fan.call(http.MethodGet, "/api/recipes/download_shopping_cart", nil, http.StatusOK)
	if strings.Contains(list["body"].(string), "Свёкла") {
		t.Fatalf("deleted recipe still contributes to the shopping list")
	}

	// logout is shared through redis
	fan.call(http.MethodPost, "/api/auth/token/logout", nil, http.StatusNoContent)
	fan.call(http.MethodGet, "/api/users/me", nil, http.StatusUnauthorized)
}
