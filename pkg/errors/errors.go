package errors

import (
	"errors"
	"fmt"
)

// Standard errors
var (
	// ErrNotFound is returned when a requested resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrStoreUnavailable is returned when the record store backend is unavailable
	ErrStoreUnavailable = errors.New("record store unavailable")

	// ErrDimensionMismatch is returned when an embedding does not match the
	// store's fixed vector dimension
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmbeddingFailed is returned when the embedding adapter fails; this is
	// fatal for the operation that needed the vector
	ErrEmbeddingFailed = errors.New("embedding generation failed")

	// ErrAdapterFailure is returned when an enrichment adapter (entity/keyword
	// extraction or emotion classification) fails
	ErrAdapterFailure = errors.New("analysis adapter failure")
)

// Wrap wraps an error with additional context
func Wrap(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's tree matches target.
// This is a convenience function that wraps errors.Is
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target, and if so, sets
// target to that error value and returns true. Otherwise, it returns false.
// This is a convenience function that wraps errors.As
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
