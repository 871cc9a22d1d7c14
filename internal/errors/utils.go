package errors

import (
	"errors"
	"fmt"
)

// Wrap wraps err as a PagecraftError. Context, section and file of an inner
// PagecraftError carry over to the new one.
func Wrap(err error, errType ErrorType, code, message string) *PagecraftError {
	if err == nil {
		return nil
	}

	wrapped := &PagecraftError{
		Type:        errType,
		Code:        code,
		Message:     message,
		Cause:       err,
		Recoverable: errType == ErrorTypeValidation,
	}

	var pe *PagecraftError
	if errors.As(err, &pe) {
		wrapped.Context = pe.Context
		wrapped.Section = pe.Section
		wrapped.FilePath = pe.FilePath
	}

	return wrapped
}

// WrapValidation wraps an error as a validation error.
func WrapValidation(err error, code, message string) *PagecraftError {
	return Wrap(err, ErrorTypeValidation, code, message)
}

// WrapIO wraps an error as an I/O error.
func WrapIO(err error, code, message string) *PagecraftError {
	return Wrap(err, ErrorTypeIO, code, message)
}

// WrapConfig wraps an error as a configuration error.
func WrapConfig(err error, code, message string) *PagecraftError {
	return Wrap(err, ErrorTypeConfig, code, message)
}

// HasErrorCode reports whether any PagecraftError in the chain carries code.
func HasErrorCode(err error, code string) bool {
	for err != nil {
		var pe *PagecraftError
		if !errors.As(err, &pe) {
			return false
		}
		if pe.Code == code {
			return true
		}
		err = pe.Cause
	}
	return false
}

// GetErrorContext flattens the context of a PagecraftError for logging.
func GetErrorContext(err error) map[string]interface{} {
	var pe *PagecraftError
	if !errors.As(err, &pe) {
		return map[string]interface{}{
			"message": err.Error(),
			"type":    "unknown",
		}
	}

	context := make(map[string]interface{}, len(pe.Context)+4)
	for k, v := range pe.Context {
		context[k] = v
	}
	if pe.Section != "" {
		context["section"] = pe.Section
	}
	if pe.FilePath != "" {
		context["file"] = pe.FilePath
	}
	context["type"] = string(pe.Type)
	context["code"] = pe.Code
	return context
}

// CombineErrors joins the non-nil errors. A single error is returned as is.
func CombineErrors(errs ...error) error {
	var collected []error
	for _, err := range errs {
		if err != nil {
			collected = append(collected, err)
		}
	}

	switch len(collected) {
	case 0:
		return nil
	case 1:
		return collected[0]
	default:
		return fmt.Errorf("%d errors occurred: %w", len(collected), errors.Join(collected...))
	}
}
