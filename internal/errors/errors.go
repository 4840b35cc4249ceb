package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a partbridge error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"    // 400
	ErrNotFound          ErrorCode = "NOT_FOUND"          // 404
	ErrFileNotFound      ErrorCode = "FILE_NOT_FOUND"     // 404
	ErrArchiveCorrupt    ErrorCode = "ARCHIVE_CORRUPT"    // 422
	ErrNoArtifacts       ErrorCode = "NO_ARTIFACTS"       // 422
	ErrMissingArtifact   ErrorCode = "MISSING_ARTIFACT"   // 422
	ErrEmptyLibrary      ErrorCode = "EMPTY_LIBRARY"      // 422
	ErrCancelled         ErrorCode = "CANCELLED"          // 499
	ErrInternal          ErrorCode = "INTERNAL"           // 500
	ErrLinkFailed        ErrorCode = "LINK_FAILED"        // 500
	ErrUnsupportedVendor ErrorCode = "UNSUPPORTED_VENDOR" // 501
	ErrConversionFailed  ErrorCode = "CONVERSION_FAILED"  // 502
	ErrToolUnavailable   ErrorCode = "TOOL_UNAVAILABLE"   // 503
)

// BridgeError represents a structured error with code, status, and details.
type BridgeError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *BridgeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *BridgeError {
	return &BridgeError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a component record cannot be found.
func NewNotFound(identifier string) *BridgeError {
	return &BridgeError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("component not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing input file.
func NewFileNotFound(path string) *BridgeError {
	return &BridgeError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewArchiveCorrupt creates a 422 error for an archive that cannot be read.
func NewArchiveCorrupt(path string, cause error) *BridgeError {
	msg := fmt.Sprintf("archive is not readable: %s", path)
	if cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, cause)
	}
	return &BridgeError{
		Code:    ErrArchiveCorrupt,
		Status:  422,
		Message: msg,
		Details: map[string]any{"path": path},
	}
}

// NewNoArtifacts creates a 422 error when an archive holds no recognizable design file.
func NewNoArtifacts(path string) *BridgeError {
	return &BridgeError{
		Code:    ErrNoArtifacts,
		Status:  422,
		Message: fmt.Sprintf("no symbol, footprint or 3D model found in %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewMissingArtifact creates a 422 error when a bundle lacks the artifact being normalized.
func NewMissingArtifact(kind string) *BridgeError {
	return &BridgeError{
		Code:    ErrMissingArtifact,
		Status:  422,
		Message: fmt.Sprintf("no %s file in component", kind),
		Details: map[string]any{"artifact": kind},
	}
}

// NewEmptyLibrary creates a 422 error for a symbol file without symbol entries.
func NewEmptyLibrary(path string) *BridgeError {
	return &BridgeError{
		Code:    ErrEmptyLibrary,
		Status:  422,
		Message: fmt.Sprintf("no symbols found in %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewCancelled creates a 499 error when an operation is cancelled via context.
func NewCancelled(operation string) *BridgeError {
	return &BridgeError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
	}
}

// NewLinkFailed creates a 500 error when the symbol to link is absent from the library.
func NewLinkFailed(symbol, library string) *BridgeError {
	return &BridgeError{
		Code:    ErrLinkFailed,
		Status:  500,
		Message: fmt.Sprintf("symbol %q not found in %s", symbol, library),
		Details: map[string]any{"symbol": symbol, "library": library},
	}
}

// NewUnsupportedVendor creates a 501 error for a vendor whose extraction is not implemented.
// The failure is permanent: retrying the same archive cannot succeed.
func NewUnsupportedVendor(vendor, converter string) *BridgeError {
	return &BridgeError{
		Code:    ErrUnsupportedVendor,
		Status:  501,
		Message: fmt.Sprintf("%s archives are not supported: conversion requires %s, which is not integrated", vendor, converter),
		Details: map[string]any{"vendor": vendor, "converter": converter},
	}
}

// NewConversionFailed creates a 502 error when the external format tool reports failure.
func NewConversionFailed(tool, stderr string) *BridgeError {
	return &BridgeError{
		Code:    ErrConversionFailed,
		Status:  502,
		Message: fmt.Sprintf("%s failed: %s", tool, stderr),
		Details: map[string]any{"tool": tool, "stderr": stderr},
	}
}

// NewToolUnavailable creates a 503 error when the external format tool cannot be found.
func NewToolUnavailable(tool string) *BridgeError {
	return &BridgeError{
		Code:    ErrToolUnavailable,
		Status:  503,
		Message: fmt.Sprintf("%s not found; install KiCad or set kicad_cli in config", tool),
		Details: map[string]any{"tool": tool},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *BridgeError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &BridgeError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if err (or anything it wraps) is a BridgeError with the given code.
func Is(err error, code ErrorCode) bool {
	var bErr *BridgeError
	if stderrors.As(err, &bErr) {
		return bErr.Code == code
	}
	return false
}

// CodeOf returns the code of a BridgeError, or ErrInternal for any other error.
func CodeOf(err error) ErrorCode {
	var bErr *BridgeError
	if stderrors.As(err, &bErr) {
		return bErr.Code
	}
	return ErrInternal
}

// Retryable reports whether repeating the failed operation could succeed.
// Only internal and cancellation failures qualify; an unsupported vendor never does.
func Retryable(err error) bool {
	switch CodeOf(err) {
	case ErrInternal, ErrCancelled:
		return true
	default:
		return false
	}
}

// MessageOf returns the message of a BridgeError without its code prefix,
// or err.Error() for any other error.
func MessageOf(err error) string {
	var bErr *BridgeError
	if stderrors.As(err, &bErr) {
		return bErr.Message
	}
	return err.Error()
}
