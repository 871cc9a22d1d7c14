// Package errors provides the structured error types shared across pagecraft.
//
// Page generation is all-or-nothing: every failure inside the compiler is
// surfaced as a single *GenerationError that wraps the root cause and matches
// ErrGenerationFailed with errors.Is.
package errors

import (
	"errors"
	"fmt"
)

// ErrGenerationFailed is the sentinel matched by every compiler failure.
var ErrGenerationFailed = errors.New("generation failed")

// GenerationError reports the compiler stage that aborted a generation call.
type GenerationError struct {
	Stage  string
	PageID string
	Cause  error
}

// NewGenerationError wraps cause as a failure of the given stage.
func NewGenerationError(stage, pageID string, cause error) *GenerationError {
	return &GenerationError{Stage: stage, PageID: pageID, Cause: cause}
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", ErrGenerationFailed, e.Stage)
	}
	return fmt.Sprintf("%s: %s: %v", ErrGenerationFailed, e.Stage, e.Cause)
}

// Unwrap exposes both the sentinel and the root cause.
func (e *GenerationError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrGenerationFailed}
	}
	return []error{ErrGenerationFailed, e.Cause}
}
