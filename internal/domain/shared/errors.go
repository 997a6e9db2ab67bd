package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError carrying the same code, so a sentinel such as
// ErrInvalidTransition matches a customised message built with NewDomainError.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes
const (
	CodeNotFound               = "NOT_FOUND"
	CodeValidation             = "VALIDATION_ERROR"
	CodeEmptyCart              = "EMPTY_CART"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeTenantMismatch         = "TENANT_MISMATCH"
	CodeTenantRequired         = "TENANT_REQUIRED"
	CodeUserNotFound           = "USER_NOT_FOUND"
	CodeOrderNotFound          = "ORDER_NOT_FOUND"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
)

// Common domain errors
var (
	ErrNotFound               = NewDomainError(CodeNotFound, "Resource not found")
	ErrValidation             = NewDomainError(CodeValidation, "Invalid input provided")
	ErrEmptyCart              = NewDomainError(CodeEmptyCart, "Cart has no items")
	ErrInvalidTransition      = NewDomainError(CodeInvalidTransition, "Status transition is not allowed")
	ErrTenantMismatch         = NewDomainError(CodeTenantMismatch, "Resource belongs to a different tenant")
	ErrTenantRequired         = NewDomainError(CodeTenantRequired, "Tenant context is required")
	ErrUserNotFound           = NewDomainError(CodeUserNotFound, "User not found")
	ErrOrderNotFound          = NewDomainError(CodeOrderNotFound, "Order not found")
	ErrConcurrentModification = NewDomainError(CodeConcurrentModification, "Resource was modified by another process")
)

// NewValidationError creates a VALIDATION_ERROR with a specific message
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidation, message)
}

// IsCode reports whether err is a DomainError with the given code
func IsCode(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
