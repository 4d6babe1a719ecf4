// Package trit implements the balanced-ternary scalar domain.
//
// A Trit is one of {-1, 0, +1}. Addition and multiplication are total over
// all nine input pairs. Every structure above this package (sparse vectors,
// bundling, binding) relies on these laws holding exactly:
//
//   - addition is commutative and associative with Zero as identity, and each
//     non-zero value is its own additive inverse: a + (-a) = Zero. The only
//     total operation satisfying all four at once is addition mod 3, so equal
//     non-zero digits wrap to the opposite sign rather than saturate
//   - multiplication is commutative and associative with Positive as identity,
//     Zero absorbing, and each non-zero value self-inverse: a * a = Positive
package trit

// Trit is a balanced-ternary digit.
// The zero value of the type is Zero, which is the additive identity.
type Trit int8

const (
	// Negative is the -1 digit.
	Negative Trit = -1
	// Zero is the 0 digit (additive identity, multiplicative absorber).
	Zero Trit = 0
	// Positive is the +1 digit (multiplicative identity).
	Positive Trit = 1
)

// Add returns the balanced-ternary sum of a and b, wrapping mod 3.
// Opposite signs cancel to Zero; equal non-zero signs wrap to the opposite
// sign (Positive + Positive = Negative, Negative + Negative = Positive).
// Wrapping is what makes addition associative over the whole domain; the
// saturating majority rule lives in vector bundling, not here.
func Add(a, b Trit) Trit {
	switch s := int8(a) + int8(b); s {
	case 2:
		return Negative
	case -2:
		return Positive
	default:
		return Trit(s)
	}
}

// Mul returns the balanced-ternary product of a and b.
func Mul(a, b Trit) Trit {
	return Trit(int8(a) * int8(b))
}

// Neg returns the additive inverse of t.
func Neg(t Trit) Trit {
	return -t
}

// FromSign converts an integer sign to a Trit: negative values map to
// Negative, positive to Positive, zero to Zero.
func FromSign(v int) Trit {
	switch {
	case v > 0:
		return Positive
	case v < 0:
		return Negative
	default:
		return Zero
	}
}

// IsZero reports whether t is the Zero digit.
func (t Trit) IsZero() bool { return t == Zero }

// String returns a compact representation: "-", "0" or "+".
func (t Trit) String() string {
	switch t {
	case Negative:
		return "-"
	case Positive:
		return "+"
	default:
		return "0"
	}
}
