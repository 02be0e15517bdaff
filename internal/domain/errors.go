package domain

import (
	"errors"
	"fmt"
)

// Fatal error conditions. Missing or unparseable individual values are never
// errors: they are skipped locally so that noisy records degrade the score
// instead of aborting the run.
var (
	// ErrInvalidConfig covers configuration that must be rejected at startup,
	// such as a weight table whose sum is zero.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrMissingPatientID is returned when the input table has no patient_id
	// column at all.
	ErrMissingPatientID = errors.New("input dataset is missing the patient_id column")

	// ErrNoEventColumns is returned when the input table has no *_date columns.
	ErrNoEventColumns = errors.New("input dataset has no *_date event columns")
)

// ConfigError wraps ErrInvalidConfig with the offending field.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Message)
}

// Unwrap makes ConfigError match errors.Is(err, ErrInvalidConfig).
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// NewConfigError creates a ConfigError for the given field.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}
