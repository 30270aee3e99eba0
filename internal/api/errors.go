package api

import (
	"encoding/json" // JSON decoding errors
	"errors"        // Error matching
	"io"            // Empty body detection
	"net/http"      // HTTP status codes
	"strings"       // String manipulation

	"yamdb/internal/middleware" // Request id lookup

	"github.com/gin-gonic/gin"               // Gin web framework
	"github.com/go-playground/validator/v10" // Validation errors
	"github.com/sirupsen/logrus"             // Logrus for structured logging
	"gorm.io/gorm"                           // GORM ORM library
)

// FieldErrors maps a JSON field name to a human readable message
type FieldErrors map[string]string

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error  string      `json:"error"`            // Summary message
	Fields FieldErrors `json:"fields,omitempty"` // Per-field validation messages
}

// abortError writes a plain error response
func abortError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg})
}

// abortValidation writes a 400 listing the offending fields
func abortValidation(c *gin.Context, fields FieldErrors) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Fields: fields})
}

// abortBinding converts a ShouldBindJSON error into a response
func abortBinding(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		abortValidation(c, translateValidation(verrs))
		return
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		abortValidation(c, FieldErrors{typeErr.Field: "Invalid type, expected " + typeErr.Type.String() + "."})
		return
	}
	if errors.Is(err, io.EOF) {
		abortError(c, http.StatusBadRequest, "Request body is empty")
		return
	}
	abortError(c, http.StatusBadRequest, "Invalid request")
}

// abortInternal logs err and writes a 500
func abortInternal(c *gin.Context, msg string, err error) {
	logrus.WithFields(logrus.Fields{
		"request_id": c.GetString(middleware.ContextRequestIDKey), // Correlate with the access log
		"path":       c.Request.URL.Path,                          // Request path
		"error":      err.Error(),                                 // Error message
	}).Error(msg)
	_ = c.Error(err)
	abortError(c, http.StatusInternalServerError, msg)
}

// abortLookup writes "<what> not found" for missing records and a 500 otherwise
func abortLookup(c *gin.Context, err error, what string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		abortError(c, http.StatusNotFound, what+" not found")
		return
	}
	abortInternal(c, "Failed to load "+strings.ToLower(what), err)
}
