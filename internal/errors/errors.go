// internal/errors/errors.go
package errors

import (
	stderrors "errors"
	"fmt"
)

// TransportKind classifies a failed request. The set is closed.
type TransportKind int

const (
	KindUnknown TransportKind = iota
	KindNoConnection
	KindTimeout
	KindServerError
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindRateLimited
	KindInvalidURL
	KindEncodingFailed
)

func (k TransportKind) String() string {
	switch k {
	case KindNoConnection:
		return "no_connection"
	case KindTimeout:
		return "timeout"
	case KindServerError:
		return "server_error"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindInvalidURL:
		return "invalid_url"
	case KindEncodingFailed:
		return "encoding_failed"
	default:
		return "unknown"
	}
}

// TransportError is a request failure classified before any caller sees it.
type TransportError struct {
	Kind       TransportKind
	StatusCode int
	Message    string
	Cause      error
}

// Error returns a description suitable for direct display.
func (e *TransportError) Error() string {
	switch e.Kind {
	case KindInvalidURL:
		return "Invalid URL"
	case KindNoConnection:
		return "No internet connection"
	case KindTimeout:
		return "Request timed out"
	case KindServerError:
		if e.Message != "" {
			return e.Message
		}
		return fmt.Sprintf("Server error (%d)", e.StatusCode)
	case KindEncodingFailed:
		return "Failed to encode request"
	case KindUnauthorized:
		return "Authentication required"
	case KindForbidden:
		return "Access denied"
	case KindNotFound:
		return "Resource not found"
	case KindRateLimited:
		return "Too many requests. Please try again later."
	default:
		if e.Cause != nil {
			return e.Cause.Error()
		}
		if e.Message != "" {
			return e.Message
		}
		return "Unknown error"
	}
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// IsRetryable is true for timeouts, lost connectivity and 5xx responses.
func (e *TransportError) IsRetryable() bool {
	switch e.Kind {
	case KindTimeout, KindNoConnection:
		return true
	case KindServerError:
		return e.StatusCode >= 500
	default:
		return false
	}
}

func NewTransport(kind TransportKind, cause error) *TransportError {
	return &TransportError{Kind: kind, Cause: cause}
}

func ServerError(statusCode int, message string) *TransportError {
	return &TransportError{Kind: KindServerError, StatusCode: statusCode, Message: message}
}

func InvalidURL(cause error) *TransportError {
	return &TransportError{Kind: KindInvalidURL, Cause: cause}
}

func Unknown(cause error) *TransportError {
	return &TransportError{Kind: KindUnknown, Cause: cause}
}

// DecodingError means the required top-level payload was missing or malformed.
type DecodingError struct {
	Details string
	Cause   error
}

func (e *DecodingError) Error() string {
	return "Failed to parse response: " + e.Details
}

func (e *DecodingError) Unwrap() error {
	return e.Cause
}

func (e *DecodingError) IsRetryable() bool { return false }

func Decoding(details string, cause error) *DecodingError {
	return &DecodingError{Details: details, Cause: cause}
}

type StorageKind int

const (
	StorageSaveFailed StorageKind = iota
	StorageLoadFailed
	StorageDeleteFailed
	StorageNotFound
	StorageCorrupted
)

// StorageError is a failure of local persistence.
type StorageError struct {
	Kind  StorageKind
	Item  string
	Cause error
}

func (e *StorageError) Error() string {
	switch e.Kind {
	case StorageSaveFailed:
		return "Failed to save " + e.Item
	case StorageLoadFailed:
		return "Failed to load " + e.Item
	case StorageDeleteFailed:
		return "Failed to delete " + e.Item
	case StorageNotFound:
		return "Data not found"
	default:
		return "Data is corrupted"
	}
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

func (e *StorageError) IsRetryable() bool { return false }

func Storage(kind StorageKind, item string, cause error) *StorageError {
	return &StorageError{Kind: kind, Item: item, Cause: cause}
}

type retryable interface {
	IsRetryable() bool
}

// IsRetryable reports whether err, or anything it wraps, is worth retrying.
func IsRetryable(err error) bool {
	var r retryable
	if stderrors.As(err, &r) {
		return r.IsRetryable()
	}
	return false
}

// TransportKindOf returns the transport classification of err, if any.
func TransportKindOf(err error) (TransportKind, bool) {
	var te *TransportError
	if stderrors.As(err, &te) {
		return te.Kind, true
	}
	return KindUnknown, false
}

// IsNotFound matches both a remote 404 and a missing local record.
func IsNotFound(err error) bool {
	if kind, ok := TransportKindOf(err); ok && kind == KindNotFound {
		return true
	}
	var se *StorageError
	return stderrors.As(err, &se) && se.Kind == StorageNotFound
}

// IsDecoding reports whether err is a DecodingError.
func IsDecoding(err error) bool {
	var de *DecodingError
	return stderrors.As(err, &de)
}

// Describe returns the display string for err, falling back to a generic message.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var te *TransportError
	if stderrors.As(err, &te) {
		return te.Error()
	}
	var de *DecodingError
	if stderrors.As(err, &de) {
		return de.Error()
	}
	var se *StorageError
	if stderrors.As(err, &se) {
		return se.Error()
	}
	return err.Error()
}
