package recipe

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes request failures.
type ErrorCode string

const (
	// ErrCodeMalformedRequest indicates a payload no parser could decode.
	ErrCodeMalformedRequest ErrorCode = "MALFORMED_REQUEST"

	// ErrCodeIndexOutOfRange indicates a delete or pick target outside the collection.
	ErrCodeIndexOutOfRange ErrorCode = "INDEX_OUT_OF_RANGE"

	// ErrCodeEmptyCollection indicates a random pick against zero records.
	ErrCodeEmptyCollection ErrorCode = "EMPTY_COLLECTION"

	// ErrCodePersistenceFailure indicates a snapshot write failed.
	ErrCodePersistenceFailure ErrorCode = "PERSISTENCE_FAILURE"

	// ErrCodeTransportFailure indicates an unreadable raw body at the adapter boundary.
	ErrCodeTransportFailure ErrorCode = "TRANSPORT_FAILURE"
)

// Error is a typed failure carrying one of the codes above.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Index is the offending index for ErrCodeIndexOutOfRange, -1 otherwise.
	Index int

	// Len is the collection length observed for ErrCodeIndexOutOfRange.
	Len int

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Malformed returns a MALFORMED_REQUEST error.
func Malformed(message string, cause error) *Error {
	return &Error{Code: ErrCodeMalformedRequest, Message: message, Index: -1, Err: cause}
}

// OutOfRange returns an INDEX_OUT_OF_RANGE error for index against a collection of n records.
func OutOfRange(index, n int) *Error {
	return &Error{
		Code:    ErrCodeIndexOutOfRange,
		Message: fmt.Sprintf("invalid recipe index %d (have %d recipes)", index, n),
		Index:   index,
		Len:     n,
	}
}

// Empty returns an EMPTY_COLLECTION error.
func Empty() *Error {
	return &Error{Code: ErrCodeEmptyCollection, Message: "no recipes available", Index: -1}
}

// PersistenceFailure wraps a snapshot write failure.
func PersistenceFailure(cause error) *Error {
	return &Error{Code: ErrCodePersistenceFailure, Message: "snapshot write failed", Index: -1, Err: cause}
}

// TransportFailure wraps an unreadable or missing request body.
func TransportFailure(message string, cause error) *Error {
	return &Error{Code: ErrCodeTransportFailure, Message: message, Index: -1, Err: cause}
}

// CodeOf extracts the code from err. Uses errors.As to handle wrapped errors.
// Returns "" if err does not carry an *Error.
func CodeOf(err error) ErrorCode {
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// IsClientError reports whether err should be answered as a client error
// (HTTP 4xx) rather than an internal failure.
func IsClientError(err error) bool {
	switch CodeOf(err) {
	case ErrCodeMalformedRequest, ErrCodeIndexOutOfRange, ErrCodeTransportFailure:
		return true
	default:
		return false
	}
}
