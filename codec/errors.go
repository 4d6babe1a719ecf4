package codec

import "errors"

var (
	// ErrInvalidBlockSize is returned for a negative block size.
	ErrInvalidBlockSize = errors.New("block size must be positive")

	// ErrInvalidLength is returned when a decode is requested with a
	// negative expected length.
	ErrInvalidLength = errors.New("expected length must be non-negative")
)
