package core

import (
	"errors"

	goerrors "gopkg.in/src-d/go-errors.v1"
)

var (
	// ErrValidation is returned for malformed or contradictory client input.
	ErrValidation = goerrors.NewKind("invalid request: %s")

	ErrNotFound = goerrors.NewKind("%s")

	// ErrConflict is returned when the request is valid but the current state
	// of a resource forbids it.
	ErrConflict = goerrors.NewKind("%s")
)

// Is reports whether any error in err's chain is of kind k.
func Is(err error, k *goerrors.Kind) bool {
	for ; err != nil; err = errors.Unwrap(err) {
		if k.Is(err) {
			return true
		}
	}
	return false
}
