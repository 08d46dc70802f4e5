package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"StockAnalyzer/internal/collector"
	"StockAnalyzer/internal/model"
)

// AppError represents application-level error with HTTP status.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{Code: code, Field: field, Message: message, Status: status}
}

// ValidationError is one failed request field.
type ValidationError struct {
	Code    string         `json:"code"`
	Field   string         `json:"field,omitempty"`
	Message string         `json:"message"`
	Params  map[string]any `json:"params,omitempty"`
}

// FromError maps a service error onto an AppError.
func FromError(err error) *AppError {
	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, model.ErrInvalidInput):
		return &AppError{Code: "ERR_INVALID_INPUT", Message: err.Error(), Status: http.StatusBadRequest, Err: err}
	case errors.Is(err, model.ErrInsufficientData):
		return &AppError{Code: "ERR_INSUFFICIENT_DATA", Message: err.Error(), Status: http.StatusUnprocessableEntity, Err: err}
	case errors.Is(err, collector.ErrCircuitOpen):
		return &AppError{Code: "ERR_UPSTREAM_UNAVAILABLE", Message: "market data source temporarily unavailable", Status: http.StatusServiceUnavailable, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &AppError{Code: "ERR_TIMEOUT", Message: "analysis timed out", Status: http.StatusGatewayTimeout, Err: err}
	default:
		return &AppError{Code: "ERR_UPSTREAM", Message: err.Error(), Status: http.StatusBadGateway, Err: err}
	}
}
