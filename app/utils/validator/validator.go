package validator

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the go-playground validator with custom rules
type Validator struct {
	validator *validator.Validate
}

// New creates a new validator instance with custom rules
func New() *Validator {
	validate := validator.New()

	registerCustomValidators(validate)

	// Use JSON field names for validation error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{
		validator: validate,
	}
}

// Validate validates a struct and returns validation errors
func (v *Validator) Validate(i interface{}) error {
	if err := v.validator.Struct(i); err != nil {
		return NewValidationError(err.(validator.ValidationErrors))
	}
	return nil
}

// ValidateVar validates a single variable
func (v *Validator) ValidateVar(field interface{}, tag string) error {
	return v.validator.Var(field, tag)
}

// ValidationError represents a validation error with user-friendly messages
type ValidationError struct {
	Errors map[string]string `json:"errors"`
}

// Error implements the error interface
func (e ValidationError) Error() string {
	var messages []string
	for field, message := range e.Errors {
		messages = append(messages, fmt.Sprintf("%s: %s", field, message))
	}
	return strings.Join(messages, "; ")
}

// NewValidationError creates a ValidationError from validator.ValidationErrors
func NewValidationError(errs validator.ValidationErrors) ValidationError {
	errors := make(map[string]string)
	for _, err := range errs {
		errors[err.Field()] = messageForTag(err)
	}
	return ValidationError{Errors: errors}
}

func messageForTag(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "this field is required"
	case "langcode":
		return "must be a wiki language code"
	case "max":
		return fmt.Sprintf("must be at most %s characters", err.Param())
	default:
		return fmt.Sprintf("failed validation: %s", err.Tag())
	}
}

var langCodeRe = regexp.MustCompile(`^[a-z]{2,12}(-[a-z0-9]{2,12})?$`)

func registerCustomValidators(validate *validator.Validate) {
	// Wiki language subdomain, e.g. "ar", "zh-yue", "simple".
	_ = validate.RegisterValidation("langcode", func(fl validator.FieldLevel) bool {
		return langCodeRe.MatchString(fl.Field().String())
	})
}
