// Package storeerr defines the store's error taxonomy: NotFound,
// InvalidState, and Unavailable, wrapped so callers can compare with
// errors.Is regardless of which backend produced the error.
package storeerr

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup id is absent. Callers treat
// this as a normal signal, not a fault.
var ErrNotFound = errors.New("store: not found")

// ErrInvalidState is returned when a compound operation's
// preconditions are violated (e.g. assigning a job to an offline
// worker, retrying a job at its retry cap).
var ErrInvalidState = errors.New("store: invalid state")

// ErrUnavailable is returned when the backend cannot be reached. At
// startup the caller may fall back to the local backend; during
// operation it propagates as an internal failure.
var ErrUnavailable = errors.New("store: unavailable")

// NotFound wraps ErrNotFound with a descriptive message.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// InvalidState wraps ErrInvalidState with a descriptive message.
func InvalidState(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidState)
}

// Unavailable wraps ErrUnavailable with a descriptive message.
func Unavailable(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrUnavailable)
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsInvalidState reports whether err wraps ErrInvalidState.
func IsInvalidState(err error) bool { return errors.Is(err, ErrInvalidState) }

// IsUnavailable reports whether err wraps ErrUnavailable.
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }
