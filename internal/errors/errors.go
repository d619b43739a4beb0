package errors

import (
	"errors"
	"fmt"
)

var (
	ErrRunNotFound = errors.New("run not found")
)

// Kind classifies a task failure into one of the engine's error categories.
type Kind int

const (
	KindUnknown Kind = iota

	// KindTransient marks an error the retrying transport is allowed to
	// absorb: connection failures, mid-stream read errors, retryable
	// HTTP statuses. It never appears in a terminal task outcome.
	KindTransient

	// KindTransportExhausted means the retry budget ran out; the wrapped
	// error is the last underlying cause.
	KindTransportExhausted

	// KindHTTP is a permanent HTTP failure (4xx other than 429). Never
	// retried.
	KindHTTP

	// KindChecksumMismatch means the computed digest differs from the
	// expected one. Never retried.
	KindChecksumMismatch

	KindUnsupportedFormat
	KindUnsafeArchiveEntry
	KindTimeout
	KindIO

	// KindCancelled marks a task skipped before it started, either under
	// fail-fast abort or run-context cancellation.
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindTransportExhausted:
		return "transport_exhausted"
	case KindHTTP:
		return "http"
	case KindChecksumMismatch:
		return "checksum_mismatch"
	case KindUnsupportedFormat:
		return "unsupported_format"
	case KindUnsafeArchiveEntry:
		return "unsafe_archive_entry"
	case KindTimeout:
		return "timeout"
	case KindIO:
		return "io_failure"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with its classification.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap classifies err. A nil err yields nil.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Errorf builds a classified error from a format string.
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf reports the classification of err, or KindUnknown if err carries
// none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsTransient reports whether the retrying transport may absorb err and
// try again.
func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}
