package utils

import "fmt"

// ValidationError represents an error occurring during customer record validation.
// It is recoverable: the caller fixes the input and resubmits.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns the error message string.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// NewValidationError creates a new ValidationError for a specific field.
//
// Parameters:
//   - field: The name of the field that failed validation.
//   - message: The validation error message.
//
// Returns:
//   - An error interface wrapping the ValidationError.
func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewValidationErrorf creates a new ValidationError with a formatted message.
func NewValidationErrorf(field, format string, args ...interface{}) error {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// ModelLoadError indicates the classifier artifact could not be loaded.
// This is the only error kind allowed to halt the whole system; it is fatal
// at startup and never retried per-request.
type ModelLoadError struct {
	Path string
	Err  error
}

// Error returns the error message string.
func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("failed to load model artifact %q: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ModelLoadError) Unwrap() error {
	return e.Err
}

// NewModelLoadError creates a new ModelLoadError.
func NewModelLoadError(path string, err error) error {
	return &ModelLoadError{Path: path, Err: err}
}

// EncodingError indicates a contract mismatch between the validator and the
// feature encoder. It is treated as a defect and surfaced loudly, never
// silently defaulted.
type EncodingError struct {
	Field   string
	Message string
}

// Error returns the error message string.
func (e *EncodingError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("encoding %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("encoding: %s", e.Message)
}

// NewEncodingError creates a new EncodingError.
func NewEncodingError(field, message string) error {
	return &EncodingError{Field: field, Message: message}
}

// ExplanationUnavailableError indicates the exact attribution path is not
// usable. Callers degrade to the approximate explanation instead of failing
// the request.
type ExplanationUnavailableError struct {
	Reason string
}

// Error returns the error message string.
func (e *ExplanationUnavailableError) Error() string {
	return fmt.Sprintf("explanation unavailable: %s", e.Reason)
}

// NewExplanationUnavailableError creates a new ExplanationUnavailableError.
func NewExplanationUnavailableError(reason string) error {
	return &ExplanationUnavailableError{Reason: reason}
}

// BatchRowError carries the originating row index of a per-record failure
// inside a batch. Batches collect these instead of aborting.
type BatchRowError struct {
	Row int
	Err error
}

// Error returns the error message string.
func (e *BatchRowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

// Unwrap returns the underlying error.
func (e *BatchRowError) Unwrap() error {
	return e.Err
}

// NewBatchRowError creates a new BatchRowError.
func NewBatchRowError(row int, err error) error {
	return &BatchRowError{Row: row, Err: err}
}
