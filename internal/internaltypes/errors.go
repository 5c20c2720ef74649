package internaltypes

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")

	// ErrConflict means a concurrent writer changed the booking between the
	// read and the guarded update. Callers may retry the whole operation.
	ErrConflict = errors.New("conflict")

	// ErrTransient covers store timeouts and connection failures.
	ErrTransient = errors.New("transient store failure")
)

// Retryable reports whether err is safe for the caller to retry.
func Retryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrTransient)
}
