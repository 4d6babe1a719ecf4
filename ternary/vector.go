package ternary

import (
	"math"
	"slices"
	"sort"

	"github.com/hupe1980/engramgo/trit"
)

// Vector is an immutable sparse ternary vector of fixed dimension.
// Only the non-zero support is stored: pos holds the indices carrying +1,
// neg the indices carrying -1. Both lists are strictly increasing and
// disjoint. The zero value is an empty vector of dimension 0 and is not
// usable; construct vectors with New or FromPositions.
type Vector struct {
	dim int
	pos []uint32
	neg []uint32
}

// New returns an empty vector of the given dimension.
func New(dim int) (Vector, error) {
	if dim <= 0 || int64(dim) > int64(math.MaxUint32)+1 {
		return Vector{}, ErrInvalidDimension
	}
	return Vector{dim: dim}, nil
}

// MustNew is New for dimensions known to be valid, typically package-level
// defaults. It panics on an invalid dimension.
func MustNew(dim int) Vector {
	v, err := New(dim)
	if err != nil {
		panic(err)
	}
	return v
}

// FromPositions builds a vector from explicit position lists. Both lists
// must be strictly increasing, within [0, dim), and disjoint. The slices
// are copied; callers keep ownership of their arguments.
func FromPositions(dim int, pos, neg []uint32) (Vector, error) {
	if dim <= 0 || int64(dim) > int64(math.MaxUint32)+1 {
		return Vector{}, ErrInvalidDimension
	}
	if err := validatePositions(dim, pos); err != nil {
		return Vector{}, err
	}
	if err := validatePositions(dim, neg); err != nil {
		return Vector{}, err
	}
	if intersects(pos, neg) {
		return Vector{}, ErrPositionOverlap
	}
	return Vector{
		dim: dim,
		pos: slices.Clone(pos),
		neg: slices.Clone(neg),
	}, nil
}

func validatePositions(dim int, positions []uint32) error {
	for i, p := range positions {
		if uint64(p) >= uint64(dim) {
			return ErrPositionOutOfRange
		}
		if i > 0 && positions[i-1] >= p {
			return ErrUnsortedPositions
		}
	}
	return nil
}

// intersects reports whether two sorted lists share an element.
func intersects(a, b []uint32) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			return true
		}
	}
	return false
}

// Dim returns the vector's dimension.
func (v Vector) Dim() int { return v.dim }

// NNZ returns the number of non-zero positions.
func (v Vector) NNZ() int { return len(v.pos) + len(v.neg) }

// IsEmpty reports whether the vector has no non-zero positions.
func (v Vector) IsEmpty() bool { return v.NNZ() == 0 }

// Positive returns a copy of the +1 position list.
func (v Vector) Positive() []uint32 { return slices.Clone(v.pos) }

// Negative returns a copy of the -1 position list.
func (v Vector) Negative() []uint32 { return slices.Clone(v.neg) }

// At returns the trit at position i. Positions outside the support are Zero.
func (v Vector) At(i uint32) trit.Trit {
	if containsSorted(v.pos, i) {
		return trit.Positive
	}
	if containsSorted(v.neg, i) {
		return trit.Negative
	}
	return trit.Zero
}

func containsSorted(s []uint32, x uint32) bool {
	i := sort.Search(len(s), func(j int) bool { return s[j] >= x })
	return i < len(s) && s[i] == x
}

// Equal reports whether two vectors have identical dimension and support.
func (v Vector) Equal(o Vector) bool {
	return v.dim == o.dim && slices.Equal(v.pos, o.pos) && slices.Equal(v.neg, o.neg)
}

// checkDim verifies that o shares v's dimension.
func (v Vector) checkDim(o Vector) error {
	if v.dim != o.dim {
		return &ErrDimensionMismatch{Expected: v.dim, Actual: o.dim}
	}
	return nil
}
