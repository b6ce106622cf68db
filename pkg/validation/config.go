package validation

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigValidator provides a fluent interface for validating
// configuration values. It collects all validation errors rather than
// failing on the first one.
type ConfigValidator struct {
	errors []error
	name   string // config struct name for error messages
}

// NewConfigValidator creates a new config validator with the given config name.
func NewConfigValidator(configName string) *ConfigValidator {
	return &ConfigValidator{
		name:   configName,
		errors: make([]error, 0),
	}
}

// Required validates that a string field is not empty.
func (cv *ConfigValidator) Required(field, value string) *ConfigValidator {
	if value == "" {
		cv.errors = append(cv.errors, fmt.Errorf("%s.%s: required field is empty", cv.name, field))
	}
	return cv
}

// MinInt validates that an int field is at least the minimum value.
func (cv *ConfigValidator) MinInt(field string, value, min int) *ConfigValidator {
	if value < min {
		cv.errors = append(cv.errors, fmt.Errorf("%s.%s: value %d is below minimum %d", cv.name, field, value, min))
	}
	return cv
}

// RangeInt validates that an int field is within the specified range.
func (cv *ConfigValidator) RangeInt(field string, value, min, max int) *ConfigValidator {
	if value < min || value > max {
		cv.errors = append(cv.errors, fmt.Errorf("%s.%s: value %d is outside range [%d, %d]", cv.name, field, value, min, max))
	}
	return cv
}

// MinLen validates that a string has at least min characters.
func (cv *ConfigValidator) MinLen(field, value string, min int) *ConfigValidator {
	if len(value) < min {
		cv.errors = append(cv.errors, fmt.Errorf("%s.%s: length %d is below minimum %d", cv.name, field, len(value), min))
	}
	return cv
}

// OneOf validates that a string is one of the allowed values.
func (cv *ConfigValidator) OneOf(field, value string, allowed ...string) *ConfigValidator {
	for _, a := range allowed {
		if value == a {
			return cv
		}
	}
	cv.errors = append(cv.errors, fmt.Errorf("%s.%s: %q is not one of [%s]", cv.name, field, value, strings.Join(allowed, ", ")))
	return cv
}

// NotContains validates that a string does not contain the given substring.
func (cv *ConfigValidator) NotContains(field, value, substring, why string) *ConfigValidator {
	if substring != "" && strings.Contains(value, substring) {
		cv.errors = append(cv.errors, fmt.Errorf("%s.%s: must not contain %q (%s)", cv.name, field, substring, why))
	}
	return cv
}

// Check runs an arbitrary predicate, recording msg when it fails.
func (cv *ConfigValidator) Check(field string, ok bool, msg string) *ConfigValidator {
	if !ok {
		cv.errors = append(cv.errors, fmt.Errorf("%s.%s: %s", cv.name, field, msg))
	}
	return cv
}

// Err returns all collected validation errors joined, or nil.
func (cv *ConfigValidator) Err() error {
	if len(cv.errors) == 0 {
		return nil
	}
	return errors.Join(cv.errors...)
}
