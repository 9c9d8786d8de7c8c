// Package apierror renders every failure of the HTTP API as one JSON shape.
package apierror

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/product-catalog/internal/repository"
	"github.com/iyhunko/product-catalog/internal/service"
	"github.com/iyhunko/product-catalog/internal/validation"
)

// Error labels.
const (
	LabelNotFound           = "Not Found"
	LabelBusinessValidation = "Business Validation Failed"
	LabelValidation         = "Validation Failed"
	LabelMalformedJSON      = "Malformed JSON Request"
	LabelTypeMismatch       = "Type Mismatch"
	LabelMethodNotAllowed   = "Method Not Allowed"
	LabelDatabase           = "Database Error"
	LabelTooManyRequests    = "Too Many Requests"
	LabelInternal           = "Internal Server Error"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
	Details   []string  `json:"details,omitempty"`
}

// TypeMismatchError reports a path or query parameter that could not be
// converted to the expected type.
type TypeMismatchError struct {
	Param string
	Type  string
	Value string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s should be of type %s", e.Param, e.Type)
}

// MalformedBodyError reports a request body that is not valid JSON.
type MalformedBodyError struct {
	Err error
}

func (e *MalformedBodyError) Error() string {
	return "malformed request body: " + e.Err.Error()
}

func (e *MalformedBodyError) Unwrap() error {
	return e.Err
}

// Respond writes the error response matching err and aborts the chain.
func Respond(c *gin.Context, err error) {
	status, label, message, details := classify(err)

	if status >= http.StatusInternalServerError {
		slog.Error("Request failed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Any("err", err))
	} else {
		slog.Debug("Request rejected",
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Any("err", err))
	}

	Write(c, status, label, message, details...)
}

// Write aborts the request with an ErrorResponse.
func Write(c *gin.Context, status int, label, message string, details ...string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Error:     label,
		Message:   message,
		Path:      c.Request.URL.Path,
		Details:   details,
	})
}

func classify(err error) (status int, label, message string, details []string) {
	var (
		notFound   *service.NotFoundError
		business   *validation.BusinessError
		structural *validation.StructuralError
		malformed  *MalformedBodyError
		mismatch   *TypeMismatchError
		constraint *repository.ConstraintError
	)

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound, LabelNotFound, notFound.Error(), nil
	case errors.As(err, &business):
		return http.StatusUnprocessableEntity, LabelBusinessValidation, business.Error(), nil
	case errors.As(err, &structural):
		return http.StatusBadRequest, LabelValidation, "Invalid input data", structural.Details
	case errors.As(err, &malformed):
		return http.StatusBadRequest, LabelMalformedJSON, "The request body is invalid", []string{malformed.Err.Error()}
	case errors.As(err, &mismatch):
		return http.StatusBadRequest, LabelTypeMismatch, mismatch.Error(), nil
	case errors.As(err, &constraint):
		return http.StatusConflict, LabelDatabase, "Database integrity constraint violated", []string{constraint.Detail}
	default:
		return http.StatusInternalServerError, LabelInternal, "An unexpected error occurred", []string{err.Error()}
	}
}
