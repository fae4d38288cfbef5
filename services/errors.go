package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeRateLimit    ErrorType = "rate_limit"
	ErrorTypeInternal     ErrorType = "internal"
	ErrorTypeExternal     ErrorType = "external"
)

// DomainError represents a structured error with additional context.
// Message is safe to return to clients; Err is only logged.
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

var (
	ErrGitHubUserNotFound = NewDomainError(ErrorTypeNotFound, "GitHub user not found", nil)
	ErrInvalidUsername    = NewDomainError(ErrorTypeValidation, "invalid GitHub username", nil)
	ErrMissingCredential  = NewDomainError(ErrorTypeUnauthorized, "GitHub credential not available", nil)
	ErrCredentialRejected = NewDomainError(ErrorTypeUnauthorized, "GitHub rejected the credential", nil)
	ErrGitHubRateLimit    = NewDomainError(ErrorTypeRateLimit, "GitHub rate limit exceeded", nil)
	ErrGitHubUnavailable  = NewDomainError(ErrorTypeExternal, "GitHub API unavailable", nil)
	ErrInternal           = NewDomainError(ErrorTypeInternal, "internal server error", nil)
)

func isType(err error, t ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == t
	}
	return false
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool { return isType(err, ErrorTypeNotFound) }

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool { return isType(err, ErrorTypeValidation) }

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool { return isType(err, ErrorTypeUnauthorized) }

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool { return isType(err, ErrorTypeRateLimit) }

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool { return isType(err, ErrorTypeInternal) }

// IsExternalError checks if an error is an upstream error
func IsExternalError(err error) bool { return isType(err, ErrorTypeExternal) }

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorMessage returns the client-safe message of a domain error
func GetErrorMessage(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// Wrap returns a copy of template carrying err as its cause
func Wrap(template *DomainError, err error) *DomainError {
	return NewDomainError(template.Type, template.Message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// WrapExternal wraps an error as an upstream error
func WrapExternal(message string, err error) error {
	return NewDomainError(ErrorTypeExternal, message, err)
}
