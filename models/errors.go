package models

import (
	"errors"
	"fmt"
)

var ErrTodoNotFound = errors.New("todo not found")

// ValidationError carries the offending field and reason so the API layer can
// fill the details object of the wire error body.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// ErrorResponse is the stable error body shape for every failed request.
type ErrorResponse struct {
	Error   string        `json:"error"`
	Message string        `json:"message"`
	Details *ErrorDetails `json:"details,omitempty"`
}

type ErrorDetails struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

const (
	CodeNotFound        = "NOT_FOUND"
	CodeValidationError = "VALIDATION_ERROR"
	CodeInternalError   = "INTERNAL_SERVER_ERROR"
)
