package ternary

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/engramgo/trit"
)

func mustVec(t *testing.T, dim int, pos, neg []uint32) Vector {
	t.Helper()
	v, err := FromPositions(dim, pos, neg)
	require.NoError(t, err)
	return v
}

// randomVec builds a reproducible sparse vector for property checks.
func randomVec(t *testing.T, rng *rand.Rand, dim, nnz int) Vector {
	t.Helper()
	seen := make(map[uint32]bool, nnz)
	var pos, neg []uint32
	for len(seen) < nnz {
		p := uint32(rng.Intn(dim))
		if seen[p] {
			continue
		}
		seen[p] = true
		if rng.Intn(2) == 0 {
			pos = append(pos, p)
		} else {
			neg = append(neg, p)
		}
	}
	ac, err := NewAccumulator(dim)
	require.NoError(t, err)
	for _, p := range pos {
		v := mustVec(t, dim, []uint32{p}, nil)
		require.NoError(t, ac.Add(v))
	}
	for _, p := range neg {
		v := mustVec(t, dim, nil, []uint32{p})
		require.NoError(t, ac.Add(v))
	}
	return ac.Vector()
}

func TestFromPositionsValidation(t *testing.T) {
	tests := []struct {
		name     string
		dim      int
		pos, neg []uint32
		wantErr  error
	}{
		{"Valid", 16, []uint32{1, 5}, []uint32{2, 9}, nil},
		{"ZeroDim", 0, nil, nil, ErrInvalidDimension},
		{"NegativeDim", -4, nil, nil, ErrInvalidDimension},
		{"OutOfRange", 8, []uint32{8}, nil, ErrPositionOutOfRange},
		{"Unsorted", 16, []uint32{5, 1}, nil, ErrUnsortedPositions},
		{"Duplicate", 16, []uint32{5, 5}, nil, ErrUnsortedPositions},
		{"Overlap", 16, []uint32{3}, []uint32{3}, ErrPositionOverlap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromPositions(tt.dim, tt.pos, tt.neg)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestAt(t *testing.T) {
	v := mustVec(t, 16, []uint32{1, 7}, []uint32{3})
	assert.Equal(t, trit.Positive, v.At(1))
	assert.Equal(t, trit.Positive, v.At(7))
	assert.Equal(t, trit.Negative, v.At(3))
	assert.Equal(t, trit.Zero, v.At(0))
	assert.Equal(t, trit.Zero, v.At(15))
}

func TestBundle(t *testing.T) {
	dim := 32

	t.Run("ConflictCancel", func(t *testing.T) {
		a := mustVec(t, dim, []uint32{1, 4}, []uint32{9})
		b := mustVec(t, dim, []uint32{4, 9}, []uint32{1})
		c, err := Bundle(a, b)
		require.NoError(t, err)
		// 1 and 9 cancel, 4 agrees.
		assert.Equal(t, []uint32{4}, c.Positive())
		assert.Empty(t, c.Negative())
	})

	t.Run("EmptyIdentity", func(t *testing.T) {
		a := mustVec(t, dim, []uint32{2, 5}, []uint32{7})
		empty := MustNew(dim)
		c, err := Bundle(a, empty)
		require.NoError(t, err)
		assert.True(t, c.Equal(a))
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		a := MustNew(16)
		b := MustNew(32)
		_, err := Bundle(a, b)
		var dm *ErrDimensionMismatch
		require.ErrorAs(t, err, &dm)
		assert.Equal(t, 16, dm.Expected)
		assert.Equal(t, 32, dm.Actual)
	})

	t.Run("Properties", func(t *testing.T) {
		rng := rand.New(rand.NewSource(7))
		for range 50 {
			a := randomVec(t, rng, 256, 24)
			b := randomVec(t, rng, 256, 24)
			ab, err := Bundle(a, b)
			require.NoError(t, err)
			ba, err := Bundle(b, a)
			require.NoError(t, err)
			assert.True(t, ab.Equal(ba), "commutativity")
			assert.LessOrEqual(t, ab.NNZ(), a.NNZ()+b.NNZ(), "nnz bound")
		}
	})
}

func TestBind(t *testing.T) {
	dim := 32

	t.Run("SupportIntersection", func(t *testing.T) {
		a := mustVec(t, dim, []uint32{1, 4}, []uint32{9})
		b := mustVec(t, dim, []uint32{9, 20}, []uint32{4})
		c, err := Bind(a, b)
		require.NoError(t, err)
		// 4: +*- = -, 9: -*+ = -, 1 and 20 fall outside the intersection.
		assert.Empty(t, c.Positive())
		assert.Equal(t, []uint32{4, 9}, c.Negative())
	})

	t.Run("EmptyAnnihilates", func(t *testing.T) {
		a := mustVec(t, dim, []uint32{2, 5}, []uint32{7})
		empty := MustNew(dim)
		c, err := Bind(a, empty)
		require.NoError(t, err)
		assert.True(t, c.IsEmpty())
	})

	t.Run("SelfBindAllPositive", func(t *testing.T) {
		rng := rand.New(rand.NewSource(3))
		a := randomVec(t, rng, 256, 40)
		c, err := Bind(a, a)
		require.NoError(t, err)
		assert.Equal(t, a.NNZ(), c.NNZ())
		assert.Empty(t, c.Negative())
	})

	t.Run("NNZBound", func(t *testing.T) {
		rng := rand.New(rand.NewSource(11))
		for range 50 {
			a := randomVec(t, rng, 256, 30)
			b := randomVec(t, rng, 256, 10)
			c, err := Bind(a, b)
			require.NoError(t, err)
			assert.LessOrEqual(t, c.NNZ(), min(a.NNZ(), b.NNZ()))
		}
	})
}

func TestCosine(t *testing.T) {
	dim := 64

	t.Run("SelfSimilarity", func(t *testing.T) {
		rng := rand.New(rand.NewSource(5))
		a := randomVec(t, rng, dim, 16)
		got, err := Cosine(a, a)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, got, 1e-12)
	})

	t.Run("Opposite", func(t *testing.T) {
		a := mustVec(t, dim, []uint32{1, 2}, []uint32{3})
		got, err := Cosine(a, Negate(a))
		require.NoError(t, err)
		assert.InDelta(t, -1.0, got, 1e-12)
	})

	t.Run("DisjointSupport", func(t *testing.T) {
		a := mustVec(t, dim, []uint32{1, 2}, nil)
		b := mustVec(t, dim, []uint32{10, 11}, nil)
		got, err := Cosine(a, b)
		require.NoError(t, err)
		assert.Zero(t, got)
	})

	t.Run("Empty", func(t *testing.T) {
		a := mustVec(t, dim, []uint32{1}, nil)
		got, err := Cosine(a, MustNew(dim))
		require.NoError(t, err)
		assert.Zero(t, got)
	})

	t.Run("Bounds", func(t *testing.T) {
		rng := rand.New(rand.NewSource(13))
		for range 100 {
			a := randomVec(t, rng, dim, 12)
			b := randomVec(t, rng, dim, 12)
			got, err := Cosine(a, b)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, got, -1.0)
			assert.LessOrEqual(t, got, 1.0)
		}
	})
}

func TestPermute(t *testing.T) {
	rng := rand.New(rand.NewSource(17))

	t.Run("Invertibility", func(t *testing.T) {
		for _, shift := range []int{0, 1, 7, 255, 256, -3, -1000, 100000} {
			a := randomVec(t, rng, 256, 32)
			back := Permute(Permute(a, shift), -shift)
			assert.True(t, back.Equal(a), "shift %d", shift)
		}
	})

	t.Run("ZeroShift", func(t *testing.T) {
		a := randomVec(t, rng, 256, 32)
		assert.True(t, Permute(a, 0).Equal(a))
	})

	t.Run("Composition", func(t *testing.T) {
		a := randomVec(t, rng, 256, 32)
		s1, s2 := 19, 200
		lhs := Permute(Permute(a, s1), s2)
		rhs := Permute(a, s1+s2)
		assert.True(t, lhs.Equal(rhs))
	})

	t.Run("PreservesNNZ", func(t *testing.T) {
		a := randomVec(t, rng, 256, 32)
		assert.Equal(t, a.NNZ(), Permute(a, 123).NNZ())
	})

	t.Run("SortedOutput", func(t *testing.T) {
		a := randomVec(t, rng, 256, 64)
		p := Permute(a, 131)
		pos := p.Positive()
		for i := 1; i < len(pos); i++ {
			assert.Less(t, pos[i-1], pos[i])
		}
	})
}

func TestThin(t *testing.T) {
	rng := rand.New(rand.NewSource(23))

	t.Run("NoopBelowTarget", func(t *testing.T) {
		a := randomVec(t, rng, 256, 10)
		assert.True(t, Thin(a, 10).Equal(a))
		assert.True(t, Thin(a, 100).Equal(a))
	})

	t.Run("Bound", func(t *testing.T) {
		for range 20 {
			a := randomVec(t, rng, 512, 100)
			for _, target := range []int{0, 1, 13, 50, 99} {
				assert.LessOrEqual(t, Thin(a, target).NNZ(), target)
			}
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		a := randomVec(t, rng, 512, 100)
		assert.True(t, Thin(a, 37).Equal(Thin(a, 37)))
	})

	t.Run("RatioPreserved", func(t *testing.T) {
		a := mustVec(t, 256, []uint32{0, 1, 2, 3, 4, 5, 6, 7}, []uint32{10, 11, 12, 13})
		c := Thin(a, 6)
		// 8:4 thins to 4:2.
		assert.Len(t, c.Positive(), 4)
		assert.Len(t, c.Negative(), 2)
	})
}

func TestAccumulator(t *testing.T) {
	dim := 128

	t.Run("OrderIndependent", func(t *testing.T) {
		rng := rand.New(rand.NewSource(29))
		vs := make([]Vector, 5)
		for i := range vs {
			vs[i] = randomVec(t, rng, dim, 20)
		}

		forward, err := NewAccumulator(dim)
		require.NoError(t, err)
		for _, v := range vs {
			require.NoError(t, forward.Add(v))
		}

		backward, err := NewAccumulator(dim)
		require.NoError(t, err)
		for i := len(vs) - 1; i >= 0; i-- {
			require.NoError(t, backward.Add(vs[i]))
		}

		assert.True(t, forward.Vector().Equal(backward.Vector()))
	})

	t.Run("MatchesPairwiseForTwo", func(t *testing.T) {
		rng := rand.New(rand.NewSource(31))
		a := randomVec(t, rng, dim, 20)
		b := randomVec(t, rng, dim, 20)

		ac, err := NewAccumulator(dim)
		require.NoError(t, err)
		require.NoError(t, ac.Add(a))
		require.NoError(t, ac.Add(b))

		pair, err := Bundle(a, b)
		require.NoError(t, err)
		assert.True(t, ac.Vector().Equal(pair))
	})

	t.Run("Merge", func(t *testing.T) {
		rng := rand.New(rand.NewSource(37))
		vs := make([]Vector, 4)
		for i := range vs {
			vs[i] = randomVec(t, rng, dim, 15)
		}

		whole, err := NewAccumulator(dim)
		require.NoError(t, err)
		for _, v := range vs {
			require.NoError(t, whole.Add(v))
		}

		left, err := NewAccumulator(dim)
		require.NoError(t, err)
		right, err := NewAccumulator(dim)
		require.NoError(t, err)
		require.NoError(t, left.Add(vs[0]))
		require.NoError(t, left.Add(vs[1]))
		require.NoError(t, right.Add(vs[2]))
		require.NoError(t, right.Add(vs[3]))
		require.NoError(t, left.Merge(right))

		assert.True(t, whole.Vector().Equal(left.Vector()))
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		ac, err := NewAccumulator(dim)
		require.NoError(t, err)
		var dm *ErrDimensionMismatch
		assert.ErrorAs(t, ac.Add(MustNew(dim*2)), &dm)
	})
}
