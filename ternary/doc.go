// Package ternary implements fixed-dimension sparse ternary vectors and the
// algebra the engram layer is built on: bundling (superposition), binding
// (association), cosine similarity, cyclic permutation and thinning.
//
// A vector stores only its non-zero support: two sorted, disjoint position
// lists, one for +1 and one for -1. Vectors are immutable values; every
// operation returns a new vector. All binary operations require operands of
// equal dimension and report a mismatch instead of coercing.
//
// Pairwise Bundle is commutative but not associative for three or more
// inputs, because cancellation order matters. Use Accumulator to combine
// N > 2 vectors in one associative step.
package ternary
