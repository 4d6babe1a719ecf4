// Package correction turns the codec's approximate decode into a bit-exact
// one. For every ingested block it records the minimal patch between the
// original bytes and the decoded approximation; applying the patch to a
// fresh decode reproduces the original exactly.
//
// The two-pass design is deliberate: the approximate encoder is what gives
// vectors their algebraic, compositional properties, and exactness is bolted
// on as an independent layer rather than folded into the encoder.
package correction

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Kind discriminates the patch representation stored in a Record.
type Kind uint8

const (
	// KindExact means the decode matched the original; no patch is needed.
	KindExact Kind = iota
	// KindBitPatch stores a sparse list of byte offsets with XOR masks.
	KindBitPatch
	// KindBlockReplace stores one literal replacement run.
	KindBlockReplace
	// KindVerbatim stores the whole original, bypassing the vector
	// encoding's benefit for that block but preserving correctness. Chosen
	// for high-entropy content where patch overhead would exceed the
	// literal size.
	KindVerbatim
)

// String returns the kind's name.
func (k Kind) String() string {
	switch k {
	case KindExact:
		return "exact"
	case KindBitPatch:
		return "bit-patch"
	case KindBlockReplace:
		return "block-replace"
	case KindVerbatim:
		return "verbatim"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

var (
	// ErrLengthMismatch is returned when Compute is called with buffers of
	// different length. Decode output always matches the expected length,
	// so this indicates a caller bug.
	ErrLengthMismatch = errors.New("original and decoded lengths differ")

	// ErrCorruptRecord is returned when Apply is given a record that does
	// not fit the buffer it is applied to. Records produced by Compute
	// always fit; this indicates stored-data corruption.
	ErrCorruptRecord = errors.New("correction record does not fit buffer")
)

// Patch is a single-byte correction: XOR Mask into the byte at Offset.
type Patch struct {
	Offset uint32
	Mask   byte
}

// Record is the correction associated with one content identifier.
// Exactly the fields for its Kind are populated.
type Record struct {
	Kind Kind

	// Patches is the sparse XOR list for KindBitPatch, ordered by offset.
	Patches []Patch

	// Offset and Literal describe the replacement run for KindBlockReplace.
	Offset  uint32
	Literal []byte

	// Payload holds the original bytes for KindVerbatim, zstd-compressed
	// when that is smaller. Compressed tells the two apart.
	Payload    []byte
	Compressed bool
	// RawLen is the uncompressed verbatim length.
	RawLen uint32
}

// Config tunes representation selection.
type Config struct {
	// VerbatimFraction is the differing-byte fraction above which verbatim
	// storage is chosen. Default 0.30.
	VerbatimFraction float64

	// VerbatimMinLength exempts short blocks from the fraction rule; their
	// overhead is noise either way and sparse patches keep them
	// introspectable. Default 64.
	VerbatimMinLength int
}

// DefaultConfig returns the default selection thresholds.
func DefaultConfig() Config {
	return Config{
		VerbatimFraction:  0.30,
		VerbatimMinLength: 64,
	}
}

func (c Config) withDefaults() Config {
	if c.VerbatimFraction <= 0 {
		c.VerbatimFraction = 0.30
	}
	if c.VerbatimMinLength <= 0 {
		c.VerbatimMinLength = 64
	}
	return c
}

// Compute diffs original against decoded and returns the smallest-overhead
// record that turns decoded back into original:
//
//   - no differences: exact
//   - differences exceeding the configured fraction of a non-trivial block:
//     verbatim (measured, not assumed: high-entropy content routinely lands
//     here and that is an observable degradation, not an error)
//   - one gap-free contiguous run of differences: block-replace
//   - otherwise: bit-patch
func Compute(cfg Config, original, decoded []byte) (*Record, error) {
	if len(original) != len(decoded) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(original), len(decoded))
	}
	cfg = cfg.withDefaults()

	diffs := diffOffsets(original, decoded)
	if len(diffs) == 0 {
		return &Record{Kind: KindExact}, nil
	}

	if len(original) >= cfg.VerbatimMinLength &&
		float64(len(diffs)) > cfg.VerbatimFraction*float64(len(original)) {
		return newVerbatim(original), nil
	}

	first, last := diffs[0], diffs[len(diffs)-1]
	if int(last-first)+1 == len(diffs) {
		return &Record{
			Kind:    KindBlockReplace,
			Offset:  first,
			Literal: bytes.Clone(original[first : last+1]),
		}, nil
	}

	patches := make([]Patch, len(diffs))
	for i, off := range diffs {
		patches[i] = Patch{Offset: off, Mask: original[off] ^ decoded[off]}
	}
	return &Record{Kind: KindBitPatch, Patches: patches}, nil
}

// Apply inverts Compute: given the decoded approximation and the record
// computed for it, it returns the exact original bytes. decoded is not
// modified. Apply never fails for a record produced by Compute on the same
// decode; a failure means the record was corrupted in storage.
func Apply(decoded []byte, rec *Record) ([]byte, error) {
	switch rec.Kind {
	case KindExact:
		return bytes.Clone(decoded), nil

	case KindBitPatch:
		out := bytes.Clone(decoded)
		for _, p := range rec.Patches {
			if int(p.Offset) >= len(out) {
				return nil, fmt.Errorf("%w: patch offset %d, length %d", ErrCorruptRecord, p.Offset, len(out))
			}
			out[p.Offset] ^= p.Mask
		}
		return out, nil

	case KindBlockReplace:
		if int(rec.Offset)+len(rec.Literal) > len(decoded) {
			return nil, fmt.Errorf("%w: run [%d, %d), length %d", ErrCorruptRecord, rec.Offset, int(rec.Offset)+len(rec.Literal), len(decoded))
		}
		out := bytes.Clone(decoded)
		copy(out[rec.Offset:], rec.Literal)
		return out, nil

	case KindVerbatim:
		return rec.Original()
	default:
		return nil, fmt.Errorf("%w: unknown kind %d", ErrCorruptRecord, rec.Kind)
	}
}

// Original returns the verbatim payload, decompressing if needed.
func (r *Record) Original() ([]byte, error) {
	if r.Kind != KindVerbatim {
		return nil, fmt.Errorf("%w: not a verbatim record", ErrCorruptRecord)
	}
	if !r.Compressed {
		return bytes.Clone(r.Payload), nil
	}
	dec := getDecoder()
	defer putDecoder(dec)
	out, err := dec.DecodeAll(r.Payload, make([]byte, 0, r.RawLen))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	return out, nil
}

// Overhead returns the record's storage cost in bytes, excluding framing.
// The aggregate across a store is a measured property to monitor, not a
// bound to rely on.
func (r *Record) Overhead() int {
	switch r.Kind {
	case KindBitPatch:
		return 5 * len(r.Patches)
	case KindBlockReplace:
		return 4 + len(r.Literal)
	case KindVerbatim:
		return 5 + len(r.Payload)
	default:
		return 0
	}
}

func newVerbatim(original []byte) *Record {
	rec := &Record{
		Kind:   KindVerbatim,
		RawLen: uint32(len(original)),
	}

	enc := getEncoder()
	compressed := enc.EncodeAll(original, make([]byte, 0, len(original)))
	putEncoder(enc)

	if len(compressed) < len(original) {
		rec.Payload = compressed
		rec.Compressed = true
	} else {
		rec.Payload = bytes.Clone(original)
	}
	return rec
}

func diffOffsets(a, b []byte) []uint32 {
	var diffs []uint32
	for i := range a {
		if a[i] != b[i] {
			diffs = append(diffs, uint32(i))
		}
	}
	return diffs
}

// zstd encoder/decoder pools, shared across goroutines.
var (
	encoderPool sync.Pool
	decoderPool sync.Pool
)

func getEncoder() *zstd.Encoder {
	if v := encoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putEncoder(enc *zstd.Encoder) { encoderPool.Put(enc) }

func getDecoder() *zstd.Decoder {
	if v := decoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putDecoder(dec *zstd.Decoder) { decoderPool.Put(dec) }
