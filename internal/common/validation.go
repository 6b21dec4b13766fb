package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// DateLayout is the wire format for report dates.
const DateLayout = "2006-01-02"

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Validator provides validation utilities
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
	}
}

// Field validates a field and collects errors. Rules after the first failing one are skipped.
func (v *Validator) Field(fieldName string, value any, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
			break
		}
	}
	return v
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// Messages returns one human readable message per failed field.
func (v *Validator) Messages() []string {
	out := make([]string, 0, len(v.errors))
	for _, err := range v.errors {
		out = append(out, err.Error())
	}
	return out
}

// Error returns a combined error wrapping ErrValidation, or nil.
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrValidation, v.ErrorMessage())
}

// ErrorMessage returns a combined error message as string
func (v *Validator) ErrorMessage() string {
	return strings.Join(v.Messages(), "; ")
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value any) *ValidationError

func asString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case *string:
		if v == nil {
			return "", false
		}
		return *v, true
	}
	return "", false
}

// Required - Common validation rules
func Required(fieldName string, value any) *ValidationError {
	if value == nil {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}
	if str, ok := asString(value); ok && strings.TrimSpace(str) == "" {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}
	if p, ok := value.(*string); ok && p == nil {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}
	return nil
}

// MaxLength limits the rune count of a string field.
func MaxLength(max int) ValidationRule {
	return func(fieldName string, value any) *ValidationError {
		str, ok := asString(value)
		if !ok {
			return nil
		}
		if utf8.RuneCountInString(str) > max {
			return &ValidationError{
				Field:   fieldName,
				Value:   value,
				Message: fmt.Sprintf("must be at most %d characters", max),
			}
		}
		return nil
	}
}

// Numeric accepts decimal numbers, with either '.' or ',' as the separator.
func Numeric(fieldName string, value any) *ValidationError {
	str, ok := asString(value)
	if !ok {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a string"}
	}
	str = strings.ReplaceAll(strings.TrimSpace(str), ",", ".")
	if _, err := strconv.ParseFloat(str, 64); err != nil {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a number"}
	}
	return nil
}

// DateYMD requires a YYYY-MM-DD calendar date.
func DateYMD(fieldName string, value any) *ValidationError {
	str, ok := asString(value)
	if !ok {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a string"}
	}
	if _, err := time.Parse(DateLayout, strings.TrimSpace(str)); err != nil {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a date (YYYY-MM-DD)"}
	}
	return nil
}

// OneOf restricts a string field to a membership test.
func OneOf(contains func(string) bool) ValidationRule {
	return func(fieldName string, value any) *ValidationError {
		str, ok := asString(value)
		if !ok || !contains(strings.TrimSpace(str)) {
			return &ValidationError{Field: fieldName, Value: value, Message: "is not a known value"}
		}
		return nil
	}
}

// ValidateAndReturnError validates and returns InvalidArgumentError if validation fails
func ValidateAndReturnError(validator *Validator) error {
	if validator.HasErrors() {
		return InvalidArgumentError(validator.ErrorMessage())
	}
	return nil
}
