package utils

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is the singleton validator instance
	validate *validator.Validate

	// GitHub logins are alphanumeric with hyphens and never start with one
	githubLoginRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]{0,38}$`)
)

func init() {
	validate = validator.New()

	// Report fields by their JSON names
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	_ = validate.RegisterValidation("github_login", func(fl validator.FieldLevel) bool {
		return githubLoginRegex.MatchString(fl.Field().String())
	})
}

// ValidateStruct validates a struct using go-playground/validator
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return NewValidationError(validationErrors)
		}
		return err
	}
	return nil
}

type loginParam struct {
	Username string `json:"username" validate:"required,github_login"`
}

// ValidateGitHubLogin checks a username taken from a request path. Failures
// are *ValidationError values keyed by "username".
func ValidateGitHubLogin(login string) error {
	return ValidateStruct(loginParam{Username: login})
}

// ValidationError wraps validation errors with structured details
type ValidationError struct {
	Message string
	Fields  map[string]string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for _, msg := range e.Fields {
		parts = append(parts, msg)
	}
	return e.Message + ": " + strings.Join(parts, "; ")
}

// NewValidationError creates a ValidationError from validator.ValidationErrors
func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	fields := make(map[string]string)
	for _, err := range errs {
		field := err.Field()

		switch err.Tag() {
		case "required":
			fields[field] = fmt.Sprintf("%s is required", field)
		case "url":
			fields[field] = fmt.Sprintf("%s must be a valid URL", field)
		case "github_login":
			fields[field] = fmt.Sprintf("%s must be a valid GitHub login", field)
		case "max":
			fields[field] = fmt.Sprintf("%s must be at most %s", field, err.Param())
		default:
			fields[field] = fmt.Sprintf("%s validation failed on '%s' tag", field, err.Tag())
		}
	}

	return &ValidationError{
		Message: "Validation failed",
		Fields:  fields,
	}
}

// IsValidationError checks if an error is a ValidationError
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// GetValidationFields extracts field errors from a ValidationError
func GetValidationFields(err error) map[string]string {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Fields
	}
	return nil
}
