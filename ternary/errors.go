package ternary

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDimension is returned when a dimension is not positive or
	// exceeds the addressable position range.
	ErrInvalidDimension = errors.New("dimension must be in [1, 2^32]")

	// ErrPositionOutOfRange is returned when a position list contains an
	// index outside [0, dimension).
	ErrPositionOutOfRange = errors.New("position out of range")

	// ErrPositionOverlap is returned when the positive and negative position
	// lists are not disjoint.
	ErrPositionOverlap = errors.New("positive and negative positions overlap")

	// ErrUnsortedPositions is returned when a position list is not strictly
	// increasing.
	ErrUnsortedPositions = errors.New("positions must be strictly increasing")
)

// ErrDimensionMismatch indicates that two operands do not share a dimension.
//
// The operands are not truncated or padded; the operation is rejected.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}
