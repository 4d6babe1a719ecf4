package ternary

import (
	"math"
)

// Bundle superposes two vectors. Positions carrying the same sign in both
// inputs keep that sign; positions carrying opposite signs cancel to absent;
// positions present in only one input pass through.
//
// Bundle is commutative, and nnz(Bundle(a,b)) <= nnz(a) + nnz(b). It is not
// associative for three or more inputs because cancellation order matters;
// combine N > 2 vectors with an Accumulator instead.
func Bundle(a, b Vector) (Vector, error) {
	if err := a.checkDim(b); err != nil {
		return Vector{}, err
	}

	out := Vector{
		dim: a.dim,
		pos: make([]uint32, 0, len(a.pos)+len(b.pos)),
		neg: make([]uint32, 0, len(a.neg)+len(b.neg)),
	}

	ea := newSignedCursor(a)
	eb := newSignedCursor(b)
	for ea.valid() || eb.valid() {
		switch {
		case !eb.valid() || (ea.valid() && ea.index() < eb.index()):
			out.append(ea.index(), ea.sign())
			ea.next()
		case !ea.valid() || eb.index() < ea.index():
			out.append(eb.index(), eb.sign())
			eb.next()
		default:
			// Same position in both: equal signs keep, opposite cancel.
			if ea.sign() == eb.sign() {
				out.append(ea.index(), ea.sign())
			}
			ea.next()
			eb.next()
		}
	}

	return out, nil
}

// Bind associates two vectors: the result's support is the intersection of
// the inputs' supports, and each surviving position carries the product of
// the two signs.
//
// Bind is commutative and nnz(Bind(a,b)) <= min(nnz(a), nnz(b)).
// Bind(a, a) yields +1 at every position of a's support, which makes
// self-binding usable as an identity check. Bind is not invertible outside
// self-binding: Bind(Bind(a,b), b) does not reliably recover a when b is
// very sparse, because everything outside the intersection is discarded.
// This is a documented limitation of the operation, not a defect.
func Bind(a, b Vector) (Vector, error) {
	if err := a.checkDim(b); err != nil {
		return Vector{}, err
	}

	out := Vector{dim: a.dim}

	ea := newSignedCursor(a)
	eb := newSignedCursor(b)
	for ea.valid() && eb.valid() {
		switch {
		case ea.index() < eb.index():
			ea.next()
		case eb.index() < ea.index():
			eb.next()
		default:
			out.append(ea.index(), ea.sign()*eb.sign())
			ea.next()
			eb.next()
		}
	}

	return out, nil
}

// Cosine returns the cosine similarity of two vectors, in [-1, 1].
// It is the signed agreement count over the support union, normalized by
// sqrt(nnz(a) * nnz(b)). Similarity with an empty vector is 0.
func Cosine(a, b Vector) (float64, error) {
	if err := a.checkDim(b); err != nil {
		return 0, err
	}
	if a.IsEmpty() || b.IsEmpty() {
		return 0, nil
	}

	var dot int
	ea := newSignedCursor(a)
	eb := newSignedCursor(b)
	for ea.valid() && eb.valid() {
		switch {
		case ea.index() < eb.index():
			ea.next()
		case eb.index() < ea.index():
			eb.next()
		default:
			if ea.sign() == eb.sign() {
				dot++
			} else {
				dot--
			}
			ea.next()
			eb.next()
		}
	}

	return float64(dot) / math.Sqrt(float64(a.NNZ())*float64(b.NNZ())), nil
}

// Permute cyclically rotates every position by shift mod dim. Negative
// shifts rotate backwards, so Permute(Permute(v, s), -s) == v, and two
// permutations by s1 then s2 compose to one by s1+s2. nnz is preserved.
func Permute(v Vector, shift int) Vector {
	if v.dim == 0 {
		return v
	}
	s := uint32(((shift % v.dim) + v.dim) % v.dim)
	if s == 0 {
		return v
	}
	return Vector{
		dim: v.dim,
		pos: rotate(v.pos, s, uint32(v.dim)),
		neg: rotate(v.neg, s, uint32(v.dim)),
	}
}

// rotate shifts every index of a sorted list by s mod dim. Indices that wrap
// around become the smallest outputs, so the result is the wrapped suffix
// followed by the shifted prefix, both already in order.
func rotate(positions []uint32, s, dim uint32) []uint32 {
	if len(positions) == 0 {
		return nil
	}
	out := make([]uint32, 0, len(positions))
	split := dim - s
	for _, p := range positions {
		if p >= split {
			out = append(out, p-split)
		}
	}
	for _, p := range positions {
		if p < split {
			out = append(out, p+s)
		}
	}
	return out
}

// Negate returns the vector with every sign flipped.
func Negate(v Vector) Vector {
	return Vector{dim: v.dim, pos: v.neg, neg: v.pos}
}

// Thin reduces a vector's density to at most target non-zero positions.
// Vectors already at or below the target are returned unchanged. Surplus
// positions are dropped from the high-index end of each sign list, with the
// positive/negative ratio preserved as closely as integer rounding allows.
// The same input and target always produce the same output, on every
// platform.
func Thin(v Vector, target int) Vector {
	if target < 0 {
		target = 0
	}
	nnz := v.NNZ()
	if nnz <= target {
		return v
	}

	keepPos := target * len(v.pos) / nnz
	keepNeg := target - keepPos
	if keepNeg > len(v.neg) {
		keepPos += keepNeg - len(v.neg)
		keepNeg = len(v.neg)
	}
	if keepPos > len(v.pos) {
		keepNeg += keepPos - len(v.pos)
		keepPos = len(v.pos)
	}

	return Vector{
		dim: v.dim,
		pos: v.pos[:keepPos:keepPos],
		neg: v.neg[:keepNeg:keepNeg],
	}
}

// append adds a position with a non-zero sign to the vector under
// construction. Zero signs (cancellations) are skipped.
func (v *Vector) append(idx uint32, sign int8) {
	switch {
	case sign > 0:
		v.pos = append(v.pos, idx)
	case sign < 0:
		v.neg = append(v.neg, idx)
	}
}

// signedCursor walks a vector's support in index order, yielding each
// position with its sign. It merges the pos and neg lists on the fly.
type signedCursor struct {
	pos, neg []uint32
	i, j     int
}

func newSignedCursor(v Vector) signedCursor {
	return signedCursor{pos: v.pos, neg: v.neg}
}

func (c *signedCursor) valid() bool {
	return c.i < len(c.pos) || c.j < len(c.neg)
}

func (c *signedCursor) index() uint32 {
	if c.i < len(c.pos) && (c.j >= len(c.neg) || c.pos[c.i] < c.neg[c.j]) {
		return c.pos[c.i]
	}
	return c.neg[c.j]
}

func (c *signedCursor) sign() int8 {
	if c.i < len(c.pos) && (c.j >= len(c.neg) || c.pos[c.i] < c.neg[c.j]) {
		return 1
	}
	return -1
}

func (c *signedCursor) next() {
	if c.i < len(c.pos) && (c.j >= len(c.neg) || c.pos[c.i] < c.neg[c.j]) {
		c.i++
	} else {
		c.j++
	}
}
