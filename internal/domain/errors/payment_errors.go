package errors

import (
	"errors"
	"fmt"
)

// Error kinds for payment operations
const (
	ErrTypeDuplicateRequest        = "DUPLICATE_REQUEST"
	ErrTypeInvalidTransition       = "INVALID_TRANSITION"
	ErrTypeInvalidTransactionState = "INVALID_TRANSACTION_STATE"
	ErrTypeNotFound                = "NOT_FOUND"
	ErrTypeGatewayTransient        = "GATEWAY_TRANSIENT"
	ErrTypeGatewayTerminal         = "GATEWAY_TERMINAL"
	ErrTypeConcurrentModification  = "CONCURRENT_MODIFICATION"
	ErrTypeInternal                = "INTERNAL_ERROR"
)

// DuplicateRequestError signals an idempotency key collision: either the
// same key is still in flight or the key maps to a different request
type DuplicateRequestError struct {
	Key string
}

func (e *DuplicateRequestError) Error() string {
	return fmt.Sprintf("%s: request with idempotency key %q is already being processed", ErrTypeDuplicateRequest, e.Key)
}

// NewDuplicateRequestError creates a duplicate request error for a key
func NewDuplicateRequestError(key string) *DuplicateRequestError {
	return &DuplicateRequestError{Key: key}
}

// InvalidTransitionError signals a state-machine move that is not allowed
// from the entity's current status
type InvalidTransitionError struct {
	Entity string
	From   string
	Event  string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: %s cannot apply %s from status %s", ErrTypeInvalidTransition, e.Entity, e.Event, e.From)
}

// NewInvalidTransitionError creates an invalid transition error
func NewInvalidTransitionError(entity, from, event string) *InvalidTransitionError {
	return &InvalidTransitionError{Entity: entity, From: from, Event: event}
}

// InvalidTransactionStateError signals a command precondition failure, e.g.
// capturing a transaction that is not authorized
type InvalidTransactionStateError struct {
	Message string
}

func (e *InvalidTransactionStateError) Error() string {
	return fmt.Sprintf("%s: %s", ErrTypeInvalidTransactionState, e.Message)
}

// NewInvalidTransactionStateError creates an invalid state error
func NewInvalidTransactionStateError(format string, args ...interface{}) *InvalidTransactionStateError {
	return &InvalidTransactionStateError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError signals an unknown transaction or subscription
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s %s not found", ErrTypeNotFound, e.Entity, e.ID)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// GatewayError wraps a failure reported by or while reaching the payment
// gateway. Transient errors are retried internally and never surface unless
// all attempts are exhausted; terminal errors (declines, validation
// rejections) surface immediately.
type GatewayError struct {
	Code      string
	Message   string
	Transient bool
	Cause     error
}

func (e *GatewayError) Error() string {
	kind := ErrTypeGatewayTerminal
	if e.Transient {
		kind = ErrTypeGatewayTransient
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%s) - %v", kind, e.Message, e.Code, e.Cause)
	}
	return fmt.Sprintf("%s: %s (%s)", kind, e.Message, e.Code)
}

func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// NewGatewayTransientError creates a retryable gateway error
func NewGatewayTransientError(code, message string, cause error) *GatewayError {
	return &GatewayError{Code: code, Message: message, Transient: true, Cause: cause}
}

// NewGatewayTerminalError creates a non-retryable gateway error
func NewGatewayTerminalError(code, message string) *GatewayError {
	return &GatewayError{Code: code, Message: message}
}

// IsGatewayTransient reports whether err is a retryable gateway error
func IsGatewayTransient(err error) bool {
	var gwErr *GatewayError
	return errors.As(err, &gwErr) && gwErr.Transient
}

// ConcurrentModificationError signals a lost optimistic-concurrency race;
// the caller should re-read the row and re-validate, not overwrite
type ConcurrentModificationError struct {
	Entity string
	ID     string
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("%s: %s %s was modified concurrently", ErrTypeConcurrentModification, e.Entity, e.ID)
}

// NewConcurrentModificationError creates a concurrency conflict error
func NewConcurrentModificationError(entity, id string) *ConcurrentModificationError {
	return &ConcurrentModificationError{Entity: entity, ID: id}
}

// InternalError wraps an unexpected fault
type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s - %v", ErrTypeInternal, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", ErrTypeInternal, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

// NewInternalError creates an internal error
func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{Message: message, Cause: cause}
}
