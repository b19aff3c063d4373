package errors

import (
	"errors"
	"fmt"
	"time"
)

/**
 * Custom error types for the OCR gateway worker
 *
 * Every failure is scoped to a single requested operation; no error kind is
 * allowed to take the process down.
 */

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// Input errors - raised before any network call, never retried
	ErrorValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrorUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"

	// External call errors - surfaced verbatim to the caller
	ErrorAPICallFailed     ErrorCode = "API_CALL_FAILED"
	ErrorProcessingTimeout ErrorCode = "PROCESSING_TIMEOUT"

	// Storage errors - credential or cache access failures
	ErrorStorageFailed ErrorCode = "STORAGE_FAILED"
	ErrorCacheFailed   ErrorCode = "CACHE_FAILED"
)

// GatewayError represents a structured operation error
type GatewayError struct {
	Code      ErrorCode
	Message   string
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *GatewayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// Factory functions for common errors

func NewValidationError(message string) *GatewayError {
	return &GatewayError{
		Code:      ErrorValidationFailed,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func NewUnsupportedFormatError(mimeType string) *GatewayError {
	return &GatewayError{
		Code:      ErrorUnsupportedFormat,
		Message:   fmt.Sprintf("Unsupported file format: %s", mimeType),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"mime_type": mimeType,
		},
	}
}

func NewAPICallError(operation string, cause error) *GatewayError {
	return &GatewayError{
		Code:      ErrorAPICallFailed,
		Message:   fmt.Sprintf("OCR API call failed: %s", operation),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"operation": operation,
		},
		Cause: cause,
	}
}

func NewProcessingTimeoutError(duration time.Duration, cause error) *GatewayError {
	return &GatewayError{
		Code:      ErrorProcessingTimeout,
		Message:   fmt.Sprintf("Processing timed out after %v", duration),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"timeout_duration": duration.String(),
		},
		Cause: cause,
	}
}

func NewStorageError(message string, cause error) *GatewayError {
	return &GatewayError{
		Code:      ErrorStorageFailed,
		Message:   message,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewCacheError(message string, cause error) *GatewayError {
	return &GatewayError{
		Code:      ErrorCacheFailed,
		Message:   message,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// IsValidation reports whether err is a pre-flight input error
// (validation or unsupported format).
func IsValidation(err error) bool {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Code == ErrorValidationFailed || ge.Code == ErrorUnsupportedFormat
	}
	return false
}

// IsAPICall reports whether err originated from the external OCR API.
func IsAPICall(err error) bool {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Code == ErrorAPICallFailed || ge.Code == ErrorProcessingTimeout
	}
	return false
}

// ToMap converts error to map for structured logging
func (e *GatewayError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
		"timestamp":  e.Timestamp,
	}

	for k, v := range e.Details {
		result[k] = v
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}
