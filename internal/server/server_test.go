package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		ServerHost:         "localhost",
		ServerPort:         "8080",
		CORSOrigins:        []string{"http://localhost"},
		JWTSecret:          "test-secret",
		TokenTTL:           time.Hour,
		StorageBackend:     "local",
		MediaRoot:          t.TempDir(),
		MediaURL:           "/media/",
		PageSize:           6,
		RecipeCreateLimit:  30,
		RecipeCreateWindow: time.Hour,
		MaxImageBytes:      1 << 20,
	}
}

func TestNew(t *testing.T) {
	cfg := testConfig(t)
	db := testhelpers.NewSQLiteDB(t)

	srv, err := New(cfg, db, nil, service.NewLocalImageStore(cfg.MediaRoot, "/media"))
	require.NoError(t, err)
	require.NotNil(t, srv)

	for _, path := range []string{"/health", "/api/health", "/api/tags", "/api/metrics"} {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestNewImageStore(t *testing.T) {
	cfg := testConfig(t)

	store, err := NewImageStore(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &service.LocalImageStore{}, store)

	cfg.StorageBackend = "ftp"
	_, err = NewImageStore(context.Background(), cfg)
	assert.Error(t, err)
}

func TestCORSPreflight(t *testing.T) {
	cfg := testConfig(t)
	srv, err := New(cfg, testhelpers.NewSQLiteDB(t), nil, service.NewLocalImageStore(cfg.MediaRoot, "/media"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodOptions, "/api/recipes", nil)
	req.Header.Set("Origin", "http://localhost")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost", w.Header().Get("Access-Control-Allow-Origin"))
}
