// Package apperror holds the error taxonomy shared by stores and handlers.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnauthorized is returned when a request carries no valid credentials
var ErrUnauthorized = errors.New("unauthorized")

// ValidationError carries every field level violation found, in the order found
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, ", ")
}

// Add appends violations
func (e *ValidationError) Add(messages ...string) {
	e.Messages = append(e.Messages, messages...)
}

// OrNil returns nil when no violation was recorded, so callers can build one
// ValidationError across several checks and return it unconditionally.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Messages) == 0 {
		return nil
	}
	return e
}

// NewValidation builds a ValidationError from messages
func NewValidation(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

// NotFoundError reports an id that does not resolve to a record
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// NotFound builds a NotFoundError for a human readable resource name ("Property")
func NotFound(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}

// ConflictError reports a delete blocked by records that still reference the target
type ConflictError struct {
	Message        string
	DependentCount int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s (%d dependents)", e.Message, e.DependentCount)
}

// ParameterMissingError reports a request body without its required root key
type ParameterMissingError struct {
	Param    string
	Received []string
}

func (e *ParameterMissingError) Error() string {
	return fmt.Sprintf("param is missing or the value is empty: %s", e.Param)
}

// BadRequestError reports a malformed request that is not a field validation failure
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string {
	return e.Message
}

// BadRequest builds a BadRequestError
func BadRequest(format string, args ...any) *BadRequestError {
	return &BadRequestError{Message: fmt.Sprintf(format, args...)}
}

// ExternalServiceError wraps a failure of a third party dependency
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return e.Service + ": " + e.Err.Error()
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// External wraps err as an ExternalServiceError of service
func External(service string, err error) *ExternalServiceError {
	return &ExternalServiceError{Service: service, Err: err}
}
