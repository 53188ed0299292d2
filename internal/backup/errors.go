package backup

import (
	"context"
	"errors"
	"fmt"
)

// OpError represents a failure in one of the backup pipeline stages.
type OpError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

func (e *OpError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *OpError) Unwrap() error {
	return e.Cause
}

// ErrorKind classifies pipeline failures. Preflight and artifact-production
// kinds are fatal to the run; manifest probes never produce an OpError.
type ErrorKind string

const (
	ErrorKindPreflight     ErrorKind = "PREFLIGHT_ERROR"
	ErrorKindExport        ErrorKind = "EXPORT_ERROR"
	ErrorKindDump          ErrorKind = "DUMP_ERROR"
	ErrorKindCompression   ErrorKind = "COMPRESSION_ERROR"
	ErrorKindValidation    ErrorKind = "VALIDATION_ERROR"
	ErrorKindEncryption    ErrorKind = "ENCRYPTION_ERROR"
	ErrorKindStorage       ErrorKind = "STORAGE_ERROR"
	ErrorKindConfiguration ErrorKind = "CONFIGURATION_ERROR"
	ErrorKindNotFound      ErrorKind = "NOT_FOUND_ERROR"
	ErrorKindTimeout       ErrorKind = "TIMEOUT_ERROR"
	ErrorKindRestore       ErrorKind = "RESTORE_ERROR"
)

// NewOpError creates a new OpError.
func NewOpError(kind ErrorKind, message string, cause error) *OpError {
	return &OpError{Kind: kind, Message: message, Cause: cause}
}

func NewPreflightError(message string, cause error) *OpError {
	return NewOpError(ErrorKindPreflight, message, cause)
}

func NewExportError(message string, cause error) *OpError {
	return NewOpError(ErrorKindExport, message, cause)
}

func NewDumpError(message string, cause error) *OpError {
	return NewOpError(ErrorKindDump, message, cause)
}

func NewCompressionError(message string, cause error) *OpError {
	return NewOpError(ErrorKindCompression, message, cause)
}

func NewValidationError(message string, cause error) *OpError {
	return NewOpError(ErrorKindValidation, message, cause)
}

func NewEncryptionError(message string, cause error) *OpError {
	return NewOpError(ErrorKindEncryption, message, cause)
}

func NewStorageError(message string, cause error) *OpError {
	return NewOpError(ErrorKindStorage, message, cause)
}

func NewConfigurationError(message string, cause error) *OpError {
	return NewOpError(ErrorKindConfiguration, message, cause)
}

func NewNotFoundError(message string, cause error) *OpError {
	return NewOpError(ErrorKindNotFound, message, cause)
}

func NewTimeoutError(message string, cause error) *OpError {
	return NewOpError(ErrorKindTimeout, message, cause)
}

func NewRestoreError(message string, cause error) *OpError {
	return NewOpError(ErrorKindRestore, message, cause)
}

// WrapExternal classifies an error from an external invocation, surfacing
// deadline expiry as a distinct timeout kind.
func WrapExternal(kind ErrorKind, message string, err error) *OpError {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(message, err)
	}
	return NewOpError(kind, message, err)
}

// IsTimeout reports whether err is (or wraps) a timed-out external call.
func IsTimeout(err error) bool {
	var op *OpError
	if errors.As(err, &op) && op.Kind == ErrorKindTimeout {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// KindOf returns the error kind of err, or "" for untyped errors.
func KindOf(err error) ErrorKind {
	var op *OpError
	if errors.As(err, &op) {
		return op.Kind
	}
	return ""
}
