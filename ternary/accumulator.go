package ternary

import (
	"slices"
)

// Accumulator combines any number of vectors into one superposition by
// summing signed votes per position and applying sign-thresholding once, at
// the end. Unlike repeated pairwise Bundle, the result is independent of the
// order in which inputs are added, which makes it the right tool whenever
// N > 2 vectors are combined in one logical step (all blocks of a file, all
// children of a tree node).
//
// An Accumulator is not safe for concurrent use; accumulate per goroutine
// and merge, or guard externally.
type Accumulator struct {
	dim   int
	votes map[uint32]int
}

// NewAccumulator returns an empty accumulator for vectors of the given
// dimension.
func NewAccumulator(dim int) (*Accumulator, error) {
	if dim <= 0 {
		return nil, ErrInvalidDimension
	}
	return &Accumulator{dim: dim, votes: make(map[uint32]int)}, nil
}

// Add records one vector's votes. The vector must match the accumulator's
// dimension.
func (ac *Accumulator) Add(v Vector) error {
	if v.dim != ac.dim {
		return &ErrDimensionMismatch{Expected: ac.dim, Actual: v.dim}
	}
	for _, p := range v.pos {
		ac.votes[p]++
	}
	for _, p := range v.neg {
		ac.votes[p]--
	}
	return nil
}

// Merge folds another accumulator's votes into this one. Both must share a
// dimension. Used to combine per-worker accumulators after parallel encoding.
func (ac *Accumulator) Merge(other *Accumulator) error {
	if other.dim != ac.dim {
		return &ErrDimensionMismatch{Expected: ac.dim, Actual: other.dim}
	}
	for p, n := range other.votes {
		ac.votes[p] += n
	}
	return nil
}

// Vector thresholds the accumulated votes into a sparse ternary vector:
// positions with a positive net vote become +1, negative become -1, ties
// cancel to absent. The accumulator remains usable afterwards.
func (ac *Accumulator) Vector() Vector {
	var pos, neg []uint32
	for p, n := range ac.votes {
		switch {
		case n > 0:
			pos = append(pos, p)
		case n < 0:
			neg = append(neg, p)
		}
	}
	slices.Sort(pos)
	slices.Sort(neg)
	return Vector{dim: ac.dim, pos: pos, neg: neg}
}

// Reset clears all accumulated votes.
func (ac *Accumulator) Reset() {
	clear(ac.votes)
}
