package controller

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"reflect"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/product-catalog/internal/dto"
	"github.com/iyhunko/product-catalog/internal/http/apierror"
	"github.com/iyhunko/product-catalog/internal/repository"
	"github.com/iyhunko/product-catalog/internal/validation"
)

// ProductService is the product API the controller exposes over HTTP.
type ProductService interface {
	List(ctx context.Context) ([]dto.Product, error)
	Search(ctx context.Context, filter repository.ProductFilter) ([]dto.Product, error)
	Get(ctx context.Context, id int64) (dto.Product, error)
	Create(ctx context.Context, input dto.Product) (dto.Product, error)
	Update(ctx context.Context, id int64, input dto.Product) (dto.Product, error)
	Delete(ctx context.Context, id int64) error
}

// ProductController handles HTTP requests for product operations.
type ProductController struct {
	productService ProductService
	validator      *validation.Validator
}

// NewProductController creates a new ProductController with the given product service.
func NewProductController(productService ProductService, validator *validation.Validator) *ProductController {
	return &ProductController{
		productService: productService,
		validator:      validator,
	}
}

// ListProducts handles GET /products.
func (pc *ProductController) ListProducts(c *gin.Context) {
	products, err := pc.productService.List(c.Request.Context())
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// SearchProducts handles GET /products/search?name=&minPrice=&maxPrice=.
func (pc *ProductController) SearchProducts(c *gin.Context) {
	minPrice, err := floatQuery(c, "minPrice")
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	maxPrice, err := floatQuery(c, "maxPrice")
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	filter := repository.NewProductFilter(c.Query("name"), minPrice, maxPrice)
	products, err := pc.productService.Search(c.Request.Context(), filter)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// GetProduct handles GET /products/:id.
func (pc *ProductController) GetProduct(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	product, err := pc.productService.Get(c.Request.Context(), id)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// CreateProduct handles POST /products.
func (pc *ProductController) CreateProduct(c *gin.Context) {
	input, err := pc.bindProduct(c)
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	created, err := pc.productService.Create(c.Request.Context(), input)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateProduct handles PUT /products/:id. The id in the body, if any, is ignored.
func (pc *ProductController) UpdateProduct(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	input, err := pc.bindProduct(c)
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	updated, err := pc.productService.Update(c.Request.Context(), id, input)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteProduct handles DELETE /products/:id.
func (pc *ProductController) DeleteProduct(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	if err := pc.productService.Delete(c.Request.Context(), id); err != nil {
		apierror.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// bindProduct decodes the body and runs the structural checks. A field of the
// wrong JSON type is a structural error; any other decode failure, an empty
// body included, is a malformed body.
func (pc *ProductController) bindProduct(c *gin.Context) (dto.Product, error) {
	var input dto.Product
	if err := c.ShouldBindJSON(&input); err != nil {
		return dto.Product{}, bindError(err)
	}
	if err := pc.validator.Struct(input); err != nil {
		return dto.Product{}, err
	}
	return input, nil
}

func bindError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			return &apierror.MalformedBodyError{Err: err}
		}
		return validation.FieldError(field, "must be "+describeKind(typeErr.Type))
	}
	return &apierror.MalformedBodyError{Err: err}
}

func describeKind(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "an integer"
	case reflect.String:
		return "a string"
	default:
		return "of type " + t.String()
	}
}

func idParam(c *gin.Context) (int64, error) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &apierror.TypeMismatchError{Param: "id", Type: "integer", Value: raw}
	}
	return id, nil
}

// floatQuery parses an optional query parameter. Absent and empty values are
// nil; NaN and infinities are not numbers a price can be compared with.
func floatQuery(c *gin.Context, name string) (*float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, &apierror.TypeMismatchError{Param: name, Type: "number", Value: raw}
	}
	return &v, nil
}
