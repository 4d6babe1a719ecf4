package trit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var all = []Trit{Negative, Zero, Positive}

func TestAddTable(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Trit
		expected Trit
	}{
		{"NegNeg", Negative, Negative, Positive},
		{"NegZero", Negative, Zero, Negative},
		{"NegPos", Negative, Positive, Zero},
		{"ZeroNeg", Zero, Negative, Negative},
		{"ZeroZero", Zero, Zero, Zero},
		{"ZeroPos", Zero, Positive, Positive},
		{"PosNeg", Positive, Negative, Zero},
		{"PosZero", Positive, Zero, Positive},
		{"PosPos", Positive, Positive, Negative},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Add(tt.a, tt.b))
		})
	}
}

func TestMulTable(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Trit
		expected Trit
	}{
		{"NegNeg", Negative, Negative, Positive},
		{"NegZero", Negative, Zero, Zero},
		{"NegPos", Negative, Positive, Negative},
		{"ZeroNeg", Zero, Negative, Zero},
		{"ZeroZero", Zero, Zero, Zero},
		{"ZeroPos", Zero, Positive, Zero},
		{"PosNeg", Positive, Negative, Negative},
		{"PosZero", Positive, Zero, Zero},
		{"PosPos", Positive, Positive, Positive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Mul(tt.a, tt.b))
		})
	}
}

// TestAdditionLaws checks commutativity, associativity, identity and
// self-inverse exhaustively over the full domain.
func TestAdditionLaws(t *testing.T) {
	for _, a := range all {
		for _, b := range all {
			assert.Equal(t, Add(a, b), Add(b, a), "commutativity %v %v", a, b)
			for _, c := range all {
				assert.Equal(t, Add(Add(a, b), c), Add(a, Add(b, c)), "associativity %v %v %v", a, b, c)
			}
		}
		assert.Equal(t, a, Add(a, Zero), "identity %v", a)
		assert.Equal(t, Zero, Add(a, Neg(a)), "self-inverse %v", a)
	}
}

func TestMultiplicationLaws(t *testing.T) {
	for _, a := range all {
		for _, b := range all {
			assert.Equal(t, Mul(a, b), Mul(b, a), "commutativity %v %v", a, b)
			for _, c := range all {
				assert.Equal(t, Mul(Mul(a, b), c), Mul(a, Mul(b, c)), "associativity %v %v %v", a, b, c)
			}
		}
		assert.Equal(t, a, Mul(a, Positive), "identity %v", a)
		assert.Equal(t, Zero, Mul(a, Zero), "absorption %v", a)
		if a != Zero {
			assert.Equal(t, Positive, Mul(a, a), "self-inverse %v", a)
		}
	}
}

func TestFromSign(t *testing.T) {
	assert.Equal(t, Negative, FromSign(-42))
	assert.Equal(t, Zero, FromSign(0))
	assert.Equal(t, Positive, FromSign(7))
}

func TestString(t *testing.T) {
	assert.Equal(t, "-", Negative.String())
	assert.Equal(t, "0", Zero.String())
	assert.Equal(t, "+", Positive.String())
}
