package search

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrOperationCanceled is returned when a cancellation checkpoint
	// observes a done context. Matches already reported stay valid.
	ErrOperationCanceled = fmt.Errorf("operation canceled: %w", context.Canceled)

	// ErrNotReady is returned by CancelIfNotReady searches while background
	// indexing jobs are queued.
	ErrNotReady = errors.New("indexes not ready")

	// ErrJobFailed is returned when every index of a search failed.
	ErrJobFailed = errors.New("search job failed")

	// ErrUnknownContainer is returned when a scope names a path outside
	// every open container.
	ErrUnknownContainer = errors.New("path is not inside an indexed container")

	// ErrTypeNotFound is returned when a hierarchy focus cannot be resolved.
	ErrTypeNotFound = errors.New("type not found")

	// ErrNilPattern is returned when a search is started without a pattern.
	ErrNilPattern = errors.New("nil search pattern")
)

// checkCanceled is the cancellation checkpoint of search operations.
func checkCanceled(ctx context.Context) error {
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrOperationCanceled, err)
	default:
		return ErrOperationCanceled
	}
}

// canceled reports whether err came from a cancellation checkpoint or a
// done context.
func canceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
