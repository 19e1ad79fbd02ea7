package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrGenerationExhausted is returned when the reference generator runs
// out of redraw attempts. Under correct suffix entropy this never
// happens, but it is handled rather than assumed away.
var ErrGenerationExhausted = errors.New("reference generation exhausted")

// ErrTemplateNotFound is returned when the matrix has no entry for a
// (channel, tier, locale) key.
var ErrTemplateNotFound = errors.New("reminder template not found")

// ValidationError carries per-field messages for a rejected create or
// update. The request is never partially applied.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError builds a single-field validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// AsValidationError unwraps err into a *ValidationError if possible.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// TransientStorageError tags a storage failure as retryable contention
// (lock timeouts, serialization failures, deadlocks). The retry policy
// is a function of this type, never of the error message text.
type TransientStorageError struct {
	Err error
}

func (e *TransientStorageError) Error() string {
	return "transient storage error: " + e.Err.Error()
}

func (e *TransientStorageError) Unwrap() error {
	return e.Err
}

// IsTransientStorageError reports whether err is tagged as retryable
// storage contention.
func IsTransientStorageError(err error) bool {
	var te *TransientStorageError
	return errors.As(err, &te)
}
