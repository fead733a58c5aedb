// Package errs defines the sentinel error kinds of spec §7. Components wrap
// one of these with fmt.Errorf("%w: ...") so callers can classify failures
// with errors.Is regardless of the underlying cause.
package errs

import "errors"

var (
	// ErrTransport marks a network/IO failure, retryable with backoff.
	ErrTransport = errors.New("transport error")
	// ErrNotFound marks a lookup miss; usually fatal for the current operation.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a write conflict (e.g. duplicate key) in a persistence backend.
	ErrConflict = errors.New("conflict")
	// ErrValidation marks a malformed input; the caller drops and counts it.
	ErrValidation = errors.New("validation error")
	// ErrStateTransition marks an invalid order/service state change; ignored with a warning.
	ErrStateTransition = errors.New("invalid state transition")
	// ErrNumeric marks a NaN/Inf result in a feature computation; output suppressed.
	ErrNumeric = errors.New("numeric error")
	// ErrFatal marks an invariant violation (e.g. an unbalanced transfer group).
	// No component returns it, and no service changes state on it.
	ErrFatal = errors.New("fatal invariant violation")
)

// IsRetryable reports whether err (or anything it wraps) is ErrTransport,
// the only class spec §7 designates as retryable with backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransport)
}
