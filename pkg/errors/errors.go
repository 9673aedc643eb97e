// Package errors defines the unified error taxonomy for the answer pipeline.
// Three categories exist: configuration errors (fatal at startup), external
// service errors (abort the current request), and persistent store errors
// (abort the current request, committed writes are kept). Routing falling
// through to the general route and cache misses are control flow, not errors.
package errors

import (
	"errors"
	"fmt"
)

// ConfigError reports missing or invalid configuration. It is only returned
// during startup validation and is always fatal.
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// NewConfigError creates a configuration error for the given field.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// ValidationError reports a malformed request field. It maps to a client
// error at the transport layer and never indicates a server-side fault.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s %s", e.Field, e.Message)
}

// NewValidationError creates a request validation error for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Service identifies the external collaborator that failed.
const (
	ServiceEmbedding  = "embedding"
	ServiceGeneration = "generation"
	ServiceRetrieval  = "retrieval"
)

// ServiceError reports a failed call to an external service (embedding,
// generation, retrieval). The Message is safe to surface to clients; Err
// carries the underlying cause for logs.
type ServiceError struct {
	Service   string `json:"service"`
	Op        string `json:"op"`
	Message   string `json:"message"`
	Retryable bool   `json:"-"`
	Err       error  `json:"-"`
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s service: %s: %s: %v", e.Service, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s service: %s: %s", e.Service, e.Op, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *ServiceError) Unwrap() error { return e.Err }

// NewServiceError wraps an external-call failure.
func NewServiceError(service, op, message string, err error) *ServiceError {
	return &ServiceError{Service: service, Op: op, Message: message, Err: err}
}

// StoreError reports that the persistent store was unavailable or a write
// failed. Writes committed before the failure are not rolled back; each
// write in the pipeline is independently meaningful.
type StoreError struct {
	Op  string `json:"op"`
	Key string `json:"key,omitempty"`
	Err error  `json:"-"`
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("store: %s %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError wraps a persistent-store failure.
func NewStoreError(op, key string, err error) *StoreError {
	return &StoreError{Op: op, Key: key, Err: err}
}

// IsConfig reports whether err is (or wraps) a ConfigError.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsService reports whether err is (or wraps) a ServiceError.
func IsService(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}

// IsStore reports whether err is (or wraps) a StoreError.
func IsStore(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// ClientMessage returns a message safe to return to callers. Service and
// store failures are reduced to generic text so provider details never leak.
func ClientMessage(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return fmt.Sprintf("%s service unavailable", se.Service)
	}
	var ste *StoreError
	if errors.As(err, &ste) {
		return "storage temporarily unavailable"
	}
	return "internal error"
}
