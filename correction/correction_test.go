package correction

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeExact(t *testing.T) {
	data := []byte("identical")
	rec, err := Compute(DefaultConfig(), data, bytes.Clone(data))
	require.NoError(t, err)
	assert.Equal(t, KindExact, rec.Kind)
	assert.Zero(t, rec.Overhead())

	out, err := Apply(data, rec)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestComputeBitPatch(t *testing.T) {
	original := []byte("abcdefgh")
	decoded := []byte("aXcdeYgh")

	rec, err := Compute(DefaultConfig(), original, decoded)
	require.NoError(t, err)
	assert.Equal(t, KindBitPatch, rec.Kind)
	assert.Len(t, rec.Patches, 2)

	out, err := Apply(decoded, rec)
	require.NoError(t, err)
	assert.Equal(t, original, out)

	// decoded must not be mutated by Apply.
	assert.Equal(t, []byte("aXcdeYgh"), decoded)
}

func TestComputeBlockReplace(t *testing.T) {
	original := bytes.Repeat([]byte{0xAA}, 32)
	decoded := bytes.Clone(original)
	for i := 8; i < 16; i++ {
		decoded[i] = 0x00
	}

	rec, err := Compute(DefaultConfig(), original, decoded)
	require.NoError(t, err)
	assert.Equal(t, KindBlockReplace, rec.Kind)
	assert.Equal(t, uint32(8), rec.Offset)
	assert.Len(t, rec.Literal, 8)

	out, err := Apply(decoded, rec)
	require.NoError(t, err)
	assert.Equal(t, original, out)
}

func TestComputeVerbatimHighEntropy(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	original := make([]byte, 4096)
	_, _ = rng.Read(original)
	decoded := make([]byte, 4096) // decode missed everything

	rec, err := Compute(DefaultConfig(), original, decoded)
	require.NoError(t, err)
	assert.Equal(t, KindVerbatim, rec.Kind)
	// Pseudo-random bytes do not compress.
	assert.False(t, rec.Compressed)

	out, err := Apply(decoded, rec)
	require.NoError(t, err)
	assert.Equal(t, original, out)
}

func TestComputeVerbatimCompressible(t *testing.T) {
	original := bytes.Repeat([]byte("abcd"), 1024)
	decoded := make([]byte, len(original))

	rec, err := Compute(DefaultConfig(), original, decoded)
	require.NoError(t, err)
	assert.Equal(t, KindVerbatim, rec.Kind)
	assert.True(t, rec.Compressed)
	assert.Less(t, len(rec.Payload), len(original))

	out, err := Apply(decoded, rec)
	require.NoError(t, err)
	assert.Equal(t, original, out)
}

func TestShortBlocksNeverVerbatim(t *testing.T) {
	// Below VerbatimMinLength the fraction rule does not apply; a mostly
	// wrong short decode still gets a sparse patch.
	original := []byte("hello engrams!")
	decoded := bytes.Clone(original)
	for i := range decoded {
		if i != 5 {
			decoded[i] ^= 0x55
		}
	}

	rec, err := Compute(DefaultConfig(), original, decoded)
	require.NoError(t, err)
	assert.Equal(t, KindBitPatch, rec.Kind)

	out, err := Apply(decoded, rec)
	require.NoError(t, err)
	assert.Equal(t, original, out)
}

func TestComputeLengthMismatch(t *testing.T) {
	_, err := Compute(DefaultConfig(), []byte("abc"), []byte("ab"))
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestApplyCorruptRecords(t *testing.T) {
	tests := []struct {
		name string
		rec  *Record
	}{
		{"PatchOutOfRange", &Record{Kind: KindBitPatch, Patches: []Patch{{Offset: 99, Mask: 1}}}},
		{"RunOutOfRange", &Record{Kind: KindBlockReplace, Offset: 2, Literal: []byte("xyz")}},
		{"UnknownKind", &Record{Kind: Kind(42)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Apply([]byte("abcd"), tt.rec)
			assert.ErrorIs(t, err, ErrCorruptRecord)
		})
	}
}

func TestRoundTripProperty(t *testing.T) {
	cfg := DefaultConfig()
	rng := rand.New(rand.NewSource(7))

	corrupt := func(data []byte, rate float64) []byte {
		out := bytes.Clone(data)
		for i := range out {
			if rng.Float64() < rate {
				out[i] ^= byte(1 + rng.Intn(255))
			}
		}
		return out
	}

	inputs := map[string][]byte{
		"empty":    {},
		"single":   {0x42},
		"allZero":  make([]byte, 512),
		"allOnes":  bytes.Repeat([]byte{0xFF}, 512),
		"text":     bytes.Repeat([]byte("the quick brown fox "), 20),
		"random4k": func() []byte { b := make([]byte, 4096); _, _ = rng.Read(b); return b }(),
	}

	for name, original := range inputs {
		for _, rate := range []float64{0, 0.01, 0.2, 0.9} {
			decoded := corrupt(original, rate)
			rec, err := Compute(cfg, original, decoded)
			require.NoError(t, err, "%s rate %v", name, rate)
			out, err := Apply(decoded, rec)
			require.NoError(t, err, "%s rate %v", name, rate)
			assert.Equal(t, original, out, "%s rate %v kind %s", name, rate, rec.Kind)
		}
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "exact", KindExact.String())
	assert.Equal(t, "bit-patch", KindBitPatch.String())
	assert.Equal(t, "block-replace", KindBlockReplace.String())
	assert.Equal(t, "verbatim", KindVerbatim.String())
}
