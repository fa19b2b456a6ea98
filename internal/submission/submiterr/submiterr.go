// Package submiterr defines the submission front-end's own error kind
// for malformed requests, distinct from the store's taxonomy per
// spec.md §7's ValidationError.
package submiterr

import (
	"errors"
	"fmt"
)

// ErrValidation marks a malformed or incomplete submission.
var ErrValidation = errors.New("submission: validation failed")

// Validation wraps ErrValidation with a descriptive message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

// IsValidation reports whether err wraps ErrValidation.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
