// Package errs defines the error kinds surfaced at the HTTP boundary.
package errs

import "fmt"

// ValidationError reports a malformed or out-of-range request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError reports a missing ledger key.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Kind)
}

// EmptyStateError reports that there is no data to compute a report over.
type EmptyStateError struct {
	Message string
}

func (e *EmptyStateError) Error() string {
	return e.Message
}

// ServiceError wraps a failure of an external dependency.
type ServiceError struct {
	Service string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s unavailable", e.Service)
	}
	return e.Err.Error()
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Validation returns a ValidationError for field.
func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotFound returns a NotFoundError for key of the given kind.
func NotFound(kind, key string) error {
	return &NotFoundError{Kind: kind, Key: key}
}

// EmptyState returns an EmptyStateError.
func EmptyState(message string) error {
	return &EmptyStateError{Message: message}
}

// Service wraps err as a failure of service.
func Service(service string, err error) error {
	return &ServiceError{Service: service, Err: err}
}
