package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers fulfild-specific validation rules.
// Must be called before validating Config.
func RegisterCustomValidators(v *validator.Validate) error {
	// storage_backend: validates "memory", "sqlite", or "redis"
	if err := v.RegisterValidation("storage_backend", validateStorageBackend); err != nil {
		return fmt.Errorf("failed to register storage_backend validator: %w", err)
	}
	return nil
}

func validateStorageBackend(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "memory", "sqlite", "redis":
		return true
	}
	return false
}

// Validate validates the Config using struct tags and custom cross-field rules.
// Returns an error if validation fails, with actionable error messages.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := RegisterCustomValidators(v); err != nil {
		return err
	}

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	// Duration fields are free-form strings in YAML; parse them here so a
	// typo fails at startup rather than when the value is first used.
	if err := c.validateDurations(); err != nil {
		return err
	}

	return nil
}

// validateDurations ensures duration-valued fields parse and are positive.
func (c *Config) validateDurations() error {
	fields := []struct {
		name  string
		value string
	}{
		{"session.ttl", c.Session.TTL},
		{"session.cleanup_interval", c.Session.CleanupInterval},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		d, err := time.ParseDuration(f.value)
		if err != nil {
			return fmt.Errorf("%s: invalid duration %q", f.name, f.value)
		}
		if d <= 0 {
			return fmt.Errorf("%s: duration must be positive, got %q", f.name, f.value)
		}
	}
	return nil
}

// SessionTTL returns the parsed session TTL.
// Call only after Validate has succeeded.
func (c *Config) SessionTTL() time.Duration {
	d, _ := time.ParseDuration(c.Session.TTL)
	return d
}

// SessionCleanupInterval returns the parsed cleanup interval.
// Call only after Validate has succeeded.
func (c *Config) SessionCleanupInterval() time.Duration {
	d, _ := time.ParseDuration(c.Session.CleanupInterval)
	return d
}

// formatValidationErrors converts validator.ValidationErrors to user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

// formatSingleValidationError creates a user-friendly message for a single validation error.
func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()
	tag := e.Tag()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "hostname_port":
		return fmt.Sprintf("%s must be a valid host:port", field)
	case "storage_backend":
		return fmt.Sprintf("%s must be one of: memory, sqlite, redis", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, tag)
	}
}
