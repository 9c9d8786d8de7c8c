package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/product-catalog/internal/cache"
	"github.com/iyhunko/product-catalog/internal/config"
	"github.com/iyhunko/product-catalog/internal/dto"
	"github.com/iyhunko/product-catalog/internal/http/apierror"
	"github.com/iyhunko/product-catalog/internal/http/controller"
	"github.com/iyhunko/product-catalog/internal/repository/memory"
	"github.com/iyhunko/product-catalog/internal/service"
	"github.com/iyhunko/product-catalog/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(conf *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	store := memory.NewStore()
	productService := service.NewProductService(store, store, cache.NewMemory())
	productCtr := controller.NewProductController(productService, validation.NewValidator())
	return InitRouter(conf, gin.New(), controller.New(nil), productCtr)
}

func do(router *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestProductLifecycle(t *testing.T) {
	router := newTestRouter(&config.Config{})

	// create
	w := do(router, http.MethodPost, ProductsPath, `{"name":"Widget","description":"small","price":9.99,"quantity":2}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created dto.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, "ACTIVE", string(created.Status))
	require.NotNil(t, created.CreatedAt)

	// duplicate
	w = do(router, http.MethodPost, ProductsPath, `{"name":"Widget","price":1,"quantity":1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// update
	w = do(router, http.MethodPut, ProductsPath+"/1", `{"name":"Widget Pro","price":19.99,"quantity":4,"status":"DISCONTINUED"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// read back
	w = do(router, http.MethodGet, ProductsPath+"/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got dto.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Widget Pro", got.Name)
	assert.Equal(t, 19.99, *got.Price)
	assert.Equal(t, "DISCONTINUED", string(got.Status))

	// search
	w = do(router, http.MethodGet, ProductsPath+"/search?name=PRO&maxPrice=20", "")
	require.Equal(t, http.StatusOK, w.Code)
	var found []dto.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &found))
	assert.Len(t, found, 1)

	// delete
	w = do(router, http.MethodDelete, ProductsPath+"/1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(router, http.MethodGet, ProductsPath+"/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(router, http.MethodGet, ProductsPath, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestMethodNotAllowed(t *testing.T) {
	router := newTestRouter(&config.Config{})

	w := do(router, http.MethodPost, ProductsPath+"/5", `{}`)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "DELETE, GET, PUT", w.Header().Get("Allow"))
	var body apierror.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Method Not Allowed", body.Error)
	assert.Equal(t, "POST method is not supported for this request. Supported methods are DELETE, GET, PUT", body.Message)
}

func TestNoRoute(t *testing.T) {
	router := newTestRouter(&config.Config{})

	w := do(router, http.MethodGet, "/api/v2/things", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	var body apierror.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "No route found for /api/v2/things", body.Message)
}

func TestRateLimitIsOptional(t *testing.T) {
	limited := newTestRouter(&config.Config{RateLimit: config.RateLimit{RPS: 0.001, Burst: 1}})
	assert.Equal(t, http.StatusOK, do(limited, http.MethodGet, "/ping", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(limited, http.MethodGet, "/ping", "").Code)

	open := newTestRouter(&config.Config{})
	for range 5 {
		assert.Equal(t, http.StatusOK, do(open, http.MethodGet, "/ping", "").Code)
	}
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/api/v1/products/:id", "/api/v1/products/5", true},
		{"/api/v1/products/:id", "/api/v1/products", false},
		{"/api/v1/products/:id", "/api/v1/products/5/extra", false},
		{"/api/v1/products", "/api/v1/products", true},
		{"/api/v1/products/search", "/api/v1/products/5", false},
		{"/static/*filepath", "/static/css/site.css", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, matchPattern(tt.pattern, tt.path))
		})
	}
}
