package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"health-registry-server/internal/apperrors"
	"health-registry-server/internal/validation"
)

// LoggerKey is the gin context key holding the request-scoped logger.
const LoggerKey = "logger"

const internalErrorMessage = "An unexpected error occurred."

// ResponseData represents the structure of a standard API response.
type ResponseData struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody is the error half of the envelope.
type ErrorBody struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Fields  validation.FieldErrors `json:"fields,omitempty"`
}

// Success sends a standard success response.
func Success(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, ResponseData{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Created sends a standard resource created response.
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, ResponseData{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NoContent acknowledges a deletion.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends a standard error response.
func Error(c *gin.Context, statusCode int, errorMessage string) {
	ErrorWithFields(c, statusCode, errorMessage, nil)
}

// ErrorWithFields sends an error response carrying per-field messages.
func ErrorWithFields(c *gin.Context, statusCode int, errorMessage string, fields validation.FieldErrors) {
	c.JSON(statusCode, ResponseData{
		Success: false,
		Error: &ErrorBody{
			Code:    statusCode,
			Message: errorMessage,
			Fields:  fields,
		},
	})
}

// BadRequest sends a 400 Bad Request error response.
func BadRequest(c *gin.Context, errorMessage string) {
	Error(c, http.StatusBadRequest, errorMessage)
}

// ValidationFailed sends a 400 with the collected field errors.
func ValidationFailed(c *gin.Context, fields validation.FieldErrors) {
	ErrorWithFields(c, http.StatusBadRequest, "Validation error", fields)
}

// Unauthorized sends a 401 Unauthorized error response.
func Unauthorized(c *gin.Context, errorMessage string) {
	Error(c, http.StatusUnauthorized, errorMessage)
}

// Forbidden sends a 403 Forbidden error response.
func Forbidden(c *gin.Context, errorMessage string) {
	Error(c, http.StatusForbidden, errorMessage)
}

// NotFound sends a 404 Not Found error response.
func NotFound(c *gin.Context, errorMessage string) {
	Error(c, http.StatusNotFound, errorMessage)
}

// InternalServerError logs err and sends a 500 without leaking its details.
func InternalServerError(c *gin.Context, err error) {
	lgr := RequestLogger(c)
	lgr.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Unhandled error")
	Error(c, http.StatusInternalServerError, internalErrorMessage)
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrInvalidState),
		errors.Is(err, apperrors.ErrCapacityExceeded):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// HandleError writes the envelope for any service error.
func HandleError(c *gin.Context, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		InternalServerError(c, err)
		return
	}
	status := StatusFor(appErr)
	if status == http.StatusInternalServerError {
		InternalServerError(c, err)
		return
	}
	ErrorWithFields(c, status, appErr.Message, appErr.Fields)
}

// RequestLogger returns the logger attached by the logging middleware.
func RequestLogger(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(LoggerKey); ok {
		if lgr, ok := v.(*zerolog.Logger); ok {
			return lgr
		}
	}
	nop := zerolog.Nop()
	return &nop
}
