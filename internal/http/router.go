package http

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/product-catalog/internal/config"
	"github.com/iyhunko/product-catalog/internal/http/apierror"
	"github.com/iyhunko/product-catalog/internal/http/controller"
	"github.com/iyhunko/product-catalog/internal/http/middleware"
	"golang.org/x/time/rate"
)

// ProductsPath is the base path of the product API.
const ProductsPath = "/api/v1/products"

func InitRouter(conf *config.Config, server *gin.Engine, ctr *controller.Controller, productCtr *controller.ProductController) *gin.Engine {
	// Apply recovery middleware globally to prevent panics from crashing the server
	server.Use(middleware.Recovery(), middleware.Logger(), middleware.CORS())
	if conf.RateLimit.Enabled() {
		server.Use(middleware.RateLimit(middleware.NewClientLimiters(rate.Limit(conf.RateLimit.RPS), conf.RateLimit.Burst)))
	}

	server.GET("/ping", ctr.Ping)
	server.GET("/health", ctr.Health)

	// Product endpoints
	products := server.Group(ProductsPath)
	{
		products.GET("", productCtr.ListProducts)
		products.GET("/search", productCtr.SearchProducts)
		products.GET("/:id", productCtr.GetProduct)
		products.POST("", productCtr.CreateProduct)
		products.PUT("/:id", productCtr.UpdateProduct)
		products.DELETE("/:id", productCtr.DeleteProduct)
	}

	server.HandleMethodNotAllowed = true
	server.NoMethod(methodNotAllowed(server))
	server.NoRoute(func(c *gin.Context) {
		apierror.Write(c, http.StatusNotFound, apierror.LabelNotFound, "No route found for "+c.Request.URL.Path)
	})

	return server
}

func methodNotAllowed(server *gin.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed := allowedMethods(server.Routes(), c.Request.URL.Path)
		c.Header("Allow", strings.Join(allowed, ", "))
		apierror.Write(c, http.StatusMethodNotAllowed, apierror.LabelMethodNotAllowed,
			fmt.Sprintf("%s method is not supported for this request. Supported methods are %s",
				c.Request.Method, strings.Join(allowed, ", ")))
	}
}

// allowedMethods lists the methods of every route whose pattern matches path.
func allowedMethods(routes gin.RoutesInfo, path string) []string {
	seen := map[string]bool{}
	var methods []string
	for _, route := range routes {
		if seen[route.Method] || !matchPattern(route.Path, path) {
			continue
		}
		seen[route.Method] = true
		methods = append(methods, route.Method)
	}
	sort.Strings(methods)
	return methods
}

func matchPattern(pattern, path string) bool {
	patternParts := strings.Split(strings.Trim(pattern, "/"), "/")
	pathParts := strings.Split(strings.Trim(path, "/"), "/")

	for i, part := range patternParts {
		if strings.HasPrefix(part, "*") {
			return true
		}
		if i >= len(pathParts) {
			return false
		}
		if strings.HasPrefix(part, ":") {
			if pathParts[i] == "" {
				return false
			}
			continue
		}
		if part != pathParts[i] {
			return false
		}
	}
	return len(patternParts) == len(pathParts)
}
