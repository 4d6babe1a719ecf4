package engramgo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/engramgo/blobstore"
	"github.com/hupe1980/engramgo/codebook"
	"github.com/hupe1980/engramgo/ternary"
)

var (
	// ErrNotFound is returned when a content id is unknown or forgotten.
	ErrNotFound = errors.New("content not found")

	// ErrClosed is returned for operations on a closed database.
	ErrClosed = errors.New("database is closed")

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrContentConflict is returned when an ingest collides with an
	// existing id bound to different content.
	ErrContentConflict = errors.New("content id conflict")
)

// ErrDimensionMismatch indicates a query/engine dimensionality mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// translateError normalizes inner-package errors to the root surface.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, blobstore.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if errors.Is(err, codebook.ErrEntryExists) {
		return fmt.Errorf("%w: %w", ErrContentConflict, err)
	}

	var dm *ternary.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}

	return err
}
