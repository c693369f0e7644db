// Package apperrors provides the tagged-outcome error type used at API-boundary
// translation points. Internal subsystems return plain Go errors; this type is
// only constructed where an outcome needs an HTTP-flavored code attached.
package apperrors

import (
	"fmt"
	"net/http"
)

// AppError represents a boundary-facing application error.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	return e.Message
}

func NewBadRequestError(message string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: message}
}

func NewInternalServerError(message string) *AppError {
	return &AppError{Code: http.StatusInternalServerError, Message: message}
}

func NewTimeoutError(message string) *AppError {
	return &AppError{Code: http.StatusRequestTimeout, Message: message}
}

func NewValidationError(detail string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: "Validation failed", Detail: detail}
}

// NewScrapingError reports a job/URL-level scraping failure.
func NewScrapingError(detail string) *AppError {
	return &AppError{Code: http.StatusUnprocessableEntity, Message: "Scraping failed", Detail: detail}
}

// NewNotFoundError reports a missing job, URL, or result.
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: http.StatusNotFound, Message: message}
}

// NewConflictError reports an illegal job-state transition.
func NewConflictError(detail string) *AppError {
	return &AppError{Code: http.StatusConflict, Message: "Invalid state transition", Detail: detail}
}
