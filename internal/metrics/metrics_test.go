package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGinMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinMiddleware())
	router.GET("/recipes/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/recipes/:id", "200"))
	for _, id := range []string{"1", "2", "3"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/recipes/"+id, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/recipes/:id", "200"))
	assert.Equal(t, float64(3), after-before)
}

func TestRecordToggle(t *testing.T) {
	before := testutil.ToFloat64(RelationToggles.WithLabelValues("favorite", "add"))
	RecordToggle("favorite", true)
	assert.Equal(t, before+1, testutil.ToFloat64(RelationToggles.WithLabelValues("favorite", "add")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	ShoppingListDownloads.Inc()

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "foodgram_shopping_list_downloads_total"))
}
