// Package codec maps byte blocks to sparse ternary vectors and back.
//
// Encoding is deterministic and path-salted: the same bytes under the same
// path always produce the same vector. Decoding is the approximate inverse;
// it probes the vector's support and reconstructs a candidate byte per
// position. Index collisions between bytes cancel under the algebra's
// conflict rule, so decode output is a near-miss for most inputs and is
// never assumed exact. The correction package turns it into an exact one.
package codec

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/hupe1980/engramgo/ternary"
)

const (
	// DefaultDimension is the default vector dimension.
	DefaultDimension = 16384

	// DefaultBlockSize is the default encoding block size in bytes. It is
	// independent of any chunking the caller performs above this layer.
	DefaultBlockSize = 256

	// valueBits is the number of low bits of a byte spread across index
	// offsets; the remaining high bit selects the sign.
	valueBits = 7
	valueMask = 1<<valueBits - 1 // 0x7F
)

// Codec encodes byte streams at a fixed dimension and block size.
// A Codec is stateless and safe for concurrent use.
type Codec struct {
	dim       int
	blockSize int
}

// New creates a Codec. dim must admit the full probe range (one base plus
// 128 offsets); blockSize must be positive. Zero values select the defaults.
func New(dim, blockSize int) (*Codec, error) {
	if dim == 0 {
		dim = DefaultDimension
	}
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}
	if dim <= valueMask+1 {
		return nil, ternary.ErrInvalidDimension
	}
	if blockSize < 0 {
		return nil, ErrInvalidBlockSize
	}
	return &Codec{dim: dim, blockSize: blockSize}, nil
}

// Dimension returns the codec's vector dimension.
func (c *Codec) Dimension() int { return c.dim }

// BlockSize returns the codec's block size in bytes.
func (c *Codec) BlockSize() int { return c.blockSize }

// Shift derives the deterministic per-path rotation from a collision
// resistant hash of path, reduced mod dimension. The empty path maps to 0.
func (c *Codec) Shift(path string) int {
	if path == "" {
		return 0
	}
	sum := sha256.Sum256([]byte(path))
	return int(binary.BigEndian.Uint64(sum[:8]) % uint64(c.dim))
}

// Encode maps data to a single sparse ternary vector. The input is split
// into blocks of the codec's block size; each block is encoded on its own
// and all block vectors are combined with one associative accumulation pass,
// so the result does not depend on any pairwise combination order.
//
// Empty input encodes to the empty vector.
func (c *Codec) Encode(data []byte, path string) (ternary.Vector, error) {
	shift := c.Shift(path)

	ac, err := ternary.NewAccumulator(c.dim)
	if err != nil {
		return ternary.Vector{}, err
	}

	for off := 0; off < len(data); off += c.blockSize {
		end := min(off+c.blockSize, len(data))
		bv, err := c.encodeBlock(data[off:end], shift)
		if err != nil {
			return ternary.Vector{}, err
		}
		if err := ac.Add(bv); err != nil {
			return ternary.Vector{}, err
		}
	}

	return ac.Vector(), nil
}

// encodeBlock encodes one block. Each byte at block-relative position p with
// value v contributes one signed vote: the high bit of v selects the sign,
// the low seven bits offset the position's salted base index. Colliding
// votes cancel, which is the (intended) source of lossiness.
func (c *Codec) encodeBlock(block []byte, shift int) (ternary.Vector, error) {
	ac, err := ternary.NewAccumulator(c.dim)
	if err != nil {
		return ternary.Vector{}, err
	}

	for p, v := range block {
		base := (p + shift) % c.dim
		idx := uint32((base + int(v&valueMask)) % c.dim)

		var single ternary.Vector
		if v&0x80 != 0 {
			single, err = ternary.FromPositions(c.dim, nil, []uint32{idx})
		} else {
			single, err = ternary.FromPositions(c.dim, []uint32{idx}, nil)
		}
		if err != nil {
			return ternary.Vector{}, err
		}
		if err := ac.Add(single); err != nil {
			return ternary.Vector{}, err
		}
	}

	return ac.Vector(), nil
}

// Decode reconstructs a byte-approximation of length bytes from v under the
// same path salt used at encode time. For each target position it probes the
// 128 candidate offsets against the vector's support; the first hit and its
// sign reconstruct a candidate byte. Positions with no hit emit 0x00, an
// expected outcome that the correction layer patches.
//
// The vector's dimension must match the codec's.
func (c *Codec) Decode(v ternary.Vector, path string, length int) ([]byte, error) {
	if v.Dim() != c.dim {
		return nil, &ternary.ErrDimensionMismatch{Expected: c.dim, Actual: v.Dim()}
	}
	if length < 0 {
		return nil, ErrInvalidLength
	}

	shift := c.Shift(path)
	out := make([]byte, length)

	for i := range out {
		p := i % c.blockSize
		base := (p + shift) % c.dim

		for off := 0; off <= valueMask; off++ {
			idx := uint32((base + off) % c.dim)
			switch t := v.At(idx); {
			case t > 0:
				out[i] = byte(off)
			case t < 0:
				out[i] = byte(off) | 0x80
			default:
				continue
			}
			break
		}
	}

	return out, nil
}
