package healthtrack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fivetwenty-io/healthtrack/internal/constants"
)

// UnknownStatusCode is the status carried by transport failures the pipeline
// could not attribute to a real HTTP status.
const UnknownStatusCode = constants.UnknownStatusCode

// ErrorKind identifies one of the three failure classes a call can end in.
type ErrorKind int

// Error kinds.
const (
	KindTransport ErrorKind = iota + 1
	KindDecoding
	KindBusiness
)

// String returns the lowercase name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindDecoding:
		return "decoding"
	case KindBusiness:
		return "business"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is checks against a classified *Error.
var (
	ErrTransport = errors.New("networking failed")
	ErrDecoding  = errors.New("data decoding failed")
	ErrBusiness  = errors.New("server error")
)

// ErrCancelled is returned when a call is abandoned before it produced a
// terminal event. It matches context.Canceled.
var ErrCancelled = fmt.Errorf("call cancelled: %w", context.Canceled)

// Error is the classified failure every pipeline call ends with.
type Error struct {
	Kind ErrorKind
	// StatusCode is set for transport failures. UnknownStatusCode when the
	// underlying fault had no HTTP status.
	StatusCode int
	// Code and Message are set for business failures.
	Code    int
	Message *string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var msg string

	switch e.Kind {
	case KindTransport:
		msg = fmt.Sprintf("networking failed (status: %d)", e.StatusCode)
	case KindDecoding:
		msg = "data decoding failed"
	case KindBusiness:
		msg = fmt.Sprintf("server error (code: %d)", e.Code)
		if e.Message != nil && *e.Message != "" {
			msg = fmt.Sprintf("server error (code: %d): %s", e.Code, *e.Message)
		}
	default:
		msg = "unknown error"
	}

	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}

	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	switch {
	case target == ErrTransport:
		return e.Kind == KindTransport
	case target == ErrDecoding:
		return e.Kind == KindDecoding
	case target == ErrBusiness:
		return e.Kind == KindBusiness
	default:
		return false
	}
}

// MessageText returns the business message or an empty string.
func (e *Error) MessageText() string {
	if e.Message == nil {
		return ""
	}

	return *e.Message
}

// TransportFailure builds a transport failure for the given HTTP status.
func TransportFailure(status int, cause error) *Error {
	return &Error{Kind: KindTransport, StatusCode: status, Cause: cause}
}

// DecodingFailure builds a decoding failure.
func DecodingFailure(cause error) *Error {
	return &Error{Kind: KindDecoding, Cause: cause}
}

// BusinessFailure builds a business failure from an envelope's code and message.
func BusinessFailure(code int, message *string) *Error {
	return &Error{Kind: KindBusiness, Code: code, Message: message}
}

// Classify maps any error into the taxonomy. Already classified errors and
// cancellations are returned unchanged, so calling it twice is harmless.
// Context deadlines are transport timeouts; JSON syntax and type errors are
// decoding failures; anything else is a transport failure with
// UnknownStatusCode.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	if errors.Is(err, context.Canceled) {
		return ErrCancelled
	}

	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)

	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return DecodingFailure(err)
	}

	return TransportFailure(UnknownStatusCode, err)
}

// KindOf returns the kind of a classified error, or zero when err is not one.
func KindOf(err error) ErrorKind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}

	return 0
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool {
	return KindOf(err) == KindTransport
}

// IsDecoding reports whether err is a decoding failure.
func IsDecoding(err error) bool {
	return KindOf(err) == KindDecoding
}

// IsBusiness reports whether err is a business failure.
func IsBusiness(err error) bool {
	return KindOf(err) == KindBusiness
}

// IsUnauthorized reports whether err is a transport failure with status 401.
// Callers use it to trigger re-authentication; the pipeline never retries it.
func IsUnauthorized(err error) bool {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind == KindTransport && classified.StatusCode == constants.HTTPStatusUnauthorized
	}

	return false
}

// IsCancelled reports whether err is the cancellation outcome.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// StatusCode returns the HTTP status of a transport failure, or zero.
func StatusCode(err error) int {
	var classified *Error
	if errors.As(err, &classified) && classified.Kind == KindTransport {
		return classified.StatusCode
	}

	return 0
}
