// Package config provides a small fluent validator for construction-time
// configuration checks. Backend packages call it from their Config.Validate
// methods before opening connections.
package config

import (
	"errors"
	"fmt"
)

// FieldError reports a single invalid configuration field.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

// Validator accumulates field errors so a whole config is checked in one
// pass instead of failing on the first bad field.
type Validator struct {
	errs []error
}

// New returns an empty validator.
func New() *Validator {
	return &Validator{}
}

func (v *Validator) fail(field, format string, args ...any) *Validator {
	v.errs = append(v.errs, FieldError{Field: field, Reason: fmt.Sprintf(format, args...)})
	return v
}

// NonEmpty requires a non-empty string.
func (v *Validator) NonEmpty(field, value string) *Validator {
	if value == "" {
		return v.fail(field, "must not be empty")
	}
	return v
}

// Positive requires an integer greater than zero.
func (v *Validator) Positive(field string, value int) *Validator {
	if value <= 0 {
		return v.fail(field, "must be positive, got %d", value)
	}
	return v
}

// IntRange requires lo <= value <= hi.
func (v *Validator) IntRange(field string, value, lo, hi int) *Validator {
	if value < lo || value > hi {
		return v.fail(field, "must be between %d and %d, got %d", lo, hi, value)
	}
	return v
}

// FloatRange requires lo <= value <= hi.
func (v *Validator) FloatRange(field string, value, lo, hi float64) *Validator {
	if value < lo || value > hi {
		return v.fail(field, "must be between %.2f and %.2f, got %.2f", lo, hi, value)
	}
	return v
}

// Port requires a valid TCP port number.
func (v *Validator) Port(field string, port int) *Validator {
	return v.IntRange(field, port, 1, 65535)
}

// OneOf requires the value to be one of the allowed options.
func (v *Validator) OneOf(field, value string, allowed ...string) *Validator {
	for _, a := range allowed {
		if a == value {
			return v
		}
	}
	return v.fail(field, "must be one of %v, got %q", allowed, value)
}

// Err returns all accumulated field errors joined, or nil when the config
// passed every check. Individual failures remain matchable with errors.As.
func (v *Validator) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid configuration: %w", errors.Join(v.errs...))
}
