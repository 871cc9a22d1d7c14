package errors

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeGeneration ErrorType = "generation"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// PagecraftError is a structured error type with context.
type PagecraftError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Section     string
	FilePath    string
	Recoverable bool
}

// Error implements the error interface.
func (e *PagecraftError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Section != "" {
		parts = append(parts, "section:"+e.Section)
	}

	if e.FilePath != "" {
		parts = append(parts, e.FilePath)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *PagecraftError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *PagecraftError) Is(target error) bool {
	var t *PagecraftError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *PagecraftError) WithContext(key string, value interface{}) *PagecraftError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithSection records the section the error relates to.
func (e *PagecraftError) WithSection(sectionID string) *PagecraftError {
	e.Section = sectionID

	return e
}

// WithFile records the file the error relates to.
func (e *PagecraftError) WithFile(filePath string) *PagecraftError {
	e.FilePath = filePath

	return e
}

// Error creation functions

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *PagecraftError {
	return &PagecraftError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *PagecraftError {
	return &PagecraftError{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *PagecraftError {
	return &PagecraftError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *PagecraftError {
	return &PagecraftError{
		Type:        ErrorTypeInternal,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var pe *PagecraftError
	if errors.As(err, &pe) {
		return pe.Recoverable
	}

	return false
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	var pe *PagecraftError
	if errors.As(err, &pe) {
		return pe.Type == ErrorTypeValidation
	}

	return false
}

// ErrorHandler provides centralized error reporting for the CLI.
type ErrorHandler struct {
	logger Logger
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs an error at a level matching its type.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var ge *GenerationError
	if errors.As(err, &ge) {
		h.logger.Error(ctx, err, "Page generation failed",
			"stage", ge.Stage,
			"page_id", ge.PageID)
		return
	}

	var pe *PagecraftError
	if !errors.As(err, &pe) {
		h.logger.Error(ctx, err, "Unhandled error occurred")
		return
	}

	errContext := GetErrorContext(err)
	keys := make([]string, 0, len(errContext))
	for k := range errContext {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]interface{}, 0, 2*len(keys)+2)
	for _, k := range keys {
		fields = append(fields, k, errContext[k])
	}
	fields = append(fields, "recoverable", IsRecoverable(err))

	if IsValidationError(err) {
		h.logger.Warn(ctx, err, "Validation error occurred", fields...)
		return
	}
	h.logger.Error(ctx, err, "Error occurred", fields...)
}

// Common error codes.
const (
	ErrCodeInvalidPath     = "ERR_INVALID_PATH"
	ErrCodeInvalidPage     = "ERR_INVALID_PAGE"
	ErrCodeUnpublishable   = "ERR_UNPUBLISHABLE"
	ErrCodeMissingAsset    = "ERR_MISSING_ASSET"
	ErrCodeConfigInvalid   = "ERR_CONFIG_INVALID"
	ErrCodeFileNotFound    = "ERR_FILE_NOT_FOUND"
	ErrCodeUnsupportedType = "ERR_UNSUPPORTED_TYPE"
	ErrCodePublishFailed   = "ERR_PUBLISH_FAILED"
	ErrCodeFormBackend     = "ERR_FORM_BACKEND"
)
