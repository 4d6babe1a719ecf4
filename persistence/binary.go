package persistence

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/engramgo/codebook"
	"github.com/hupe1980/engramgo/correction"
	"github.com/hupe1980/engramgo/hierarchy"
	"github.com/hupe1980/engramgo/ternary"
)

// All artifacts are little-endian, the native order on x86 and ARM.
var byteOrder = binary.LittleEndian

// EncodeEngram serializes a root vector and its codebook.
func EncodeEngram(root ternary.Vector, book *codebook.Book) ([]byte, error) {
	w := newWriter(KindEngram)
	w.vector(root)

	entries := book.Entries()
	w.u32(uint32(len(entries)))
	for _, e := range entries {
		w.u64(e.ID)
		if e.Active {
			w.u8(1)
		} else {
			w.u8(0)
		}
		w.vector(e.Vector)
	}

	return w.finish()
}

// DecodeEngram parses an engram record, verifying checksum and version.
func DecodeEngram(data []byte) (ternary.Vector, *codebook.Book, error) {
	r, err := newReader(data, KindEngram)
	if err != nil {
		return ternary.Vector{}, nil, err
	}

	root, err := r.vector()
	if err != nil {
		return ternary.Vector{}, nil, err
	}

	count, err := r.u32()
	if err != nil {
		return ternary.Vector{}, nil, err
	}
	entries := make([]codebook.Entry, 0, count)
	for range count {
		id, err := r.u64()
		if err != nil {
			return ternary.Vector{}, nil, err
		}
		active, err := r.u8()
		if err != nil {
			return ternary.Vector{}, nil, err
		}
		v, err := r.vector()
		if err != nil {
			return ternary.Vector{}, nil, err
		}
		entries = append(entries, codebook.Entry{ID: id, Vector: v, Active: active == 1})
	}

	book, err := codebook.FromEntries(root.Dim(), entries)
	if err != nil {
		return ternary.Vector{}, nil, err
	}
	return root, book, nil
}

// EncodeCorrection serializes one correction record.
func EncodeCorrection(rec *correction.Record) ([]byte, error) {
	w := newWriter(KindCorrection)
	w.u8(uint8(rec.Kind))

	switch rec.Kind {
	case correction.KindExact:
		// Kind tag only.

	case correction.KindBitPatch:
		w.uvarint(uint64(len(rec.Patches)))
		prev := uint32(0)
		for _, p := range rec.Patches {
			// Offsets are ascending; deltas keep varints short.
			w.uvarint(uint64(p.Offset - prev))
			w.u8(p.Mask)
			prev = p.Offset
		}

	case correction.KindBlockReplace:
		w.u32(rec.Offset)
		w.block(rec.Literal)

	case correction.KindVerbatim:
		w.u32(rec.RawLen)
		if rec.Compressed {
			w.u8(1)
		} else {
			w.u8(0)
		}
		// Verbatim payloads are already zstd-compressed when worthwhile;
		// no second compression pass.
		w.u32(uint32(len(rec.Payload)))
		w.raw(rec.Payload)

	default:
		return nil, fmt.Errorf("%w: correction kind %d", ErrWrongKind, rec.Kind)
	}

	return w.finish()
}

// DecodeCorrection parses a correction record.
func DecodeCorrection(data []byte) (*correction.Record, error) {
	r, err := newReader(data, KindCorrection)
	if err != nil {
		return nil, err
	}

	kind, err := r.u8()
	if err != nil {
		return nil, err
	}

	rec := &correction.Record{Kind: correction.Kind(kind)}
	switch rec.Kind {
	case correction.KindExact:

	case correction.KindBitPatch:
		count, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		rec.Patches = make([]correction.Patch, 0, count)
		prev := uint32(0)
		for range count {
			delta, err := r.uvarint()
			if err != nil {
				return nil, err
			}
			mask, err := r.u8()
			if err != nil {
				return nil, err
			}
			prev += uint32(delta)
			rec.Patches = append(rec.Patches, correction.Patch{Offset: prev, Mask: mask})
		}

	case correction.KindBlockReplace:
		if rec.Offset, err = r.u32(); err != nil {
			return nil, err
		}
		if rec.Literal, err = r.block(); err != nil {
			return nil, err
		}

	case correction.KindVerbatim:
		if rec.RawLen, err = r.u32(); err != nil {
			return nil, err
		}
		compressed, err := r.u8()
		if err != nil {
			return nil, err
		}
		rec.Compressed = compressed == 1
		n, err := r.u32()
		if err != nil {
			return nil, err
		}
		if rec.Payload, err = r.raw(int(n)); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("%w: correction kind %d", ErrWrongKind, kind)
	}

	return rec, nil
}

// EncodeNode serializes a sub-engram tree node.
func EncodeNode(node *hierarchy.Node) ([]byte, error) {
	w := newWriter(KindNode)
	w.u64(uint64(node.ID))
	w.vector(node.Vector)

	w.u32(uint32(len(node.Children)))
	for _, c := range node.Children {
		w.u64(uint64(c))
	}
	w.u32(uint32(len(node.Leaves)))
	for _, l := range node.Leaves {
		w.u64(l)
	}

	return w.finish()
}

// DecodeNode parses a sub-engram tree node.
func DecodeNode(data []byte) (*hierarchy.Node, error) {
	r, err := newReader(data, KindNode)
	if err != nil {
		return nil, err
	}

	id, err := r.u64()
	if err != nil {
		return nil, err
	}
	v, err := r.vector()
	if err != nil {
		return nil, err
	}

	node := &hierarchy.Node{ID: hierarchy.NodeID(id), Vector: v}

	childCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	for range childCount {
		c, err := r.u64()
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, hierarchy.NodeID(c))
	}

	leafCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	for range leafCount {
		l, err := r.u64()
		if err != nil {
			return nil, err
		}
		node.Leaves = append(node.Leaves, l)
	}

	return node, nil
}

// headerSize is magic(4) + version(2) + kind(1).
const headerSize = 7

// writer accumulates an artifact and appends the CRC32 trailer on finish.
type writer struct {
	buf bytes.Buffer
}

func newWriter(kind ArtifactKind) *writer {
	w := &writer{}
	w.u32(MagicNumber)
	w.u16(Version)
	w.u8(uint8(kind))
	return w
}

func (w *writer) u8(v uint8)   { w.buf.WriteByte(v) }
func (w *writer) u16(v uint16) { w.buf.Write(byteOrder.AppendUint16(nil, v)) }
func (w *writer) u32(v uint32) { w.buf.Write(byteOrder.AppendUint32(nil, v)) }
func (w *writer) u64(v uint64) { w.buf.Write(byteOrder.AppendUint64(nil, v)) }

func (w *writer) uvarint(v uint64) {
	w.buf.Write(binary.AppendUvarint(nil, v))
}

func (w *writer) raw(data []byte) { w.buf.Write(data) }

// block writes a length-prefixed byte run, lz4 block compressed when that
// is smaller: [rawLen u32][compLen u32][bytes]. compLen 0 means raw.
func (w *writer) block(data []byte) {
	w.u32(uint32(len(data)))
	if len(data) == 0 {
		w.u32(0)
		return
	}

	comp := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, comp, nil)
	if err == nil && n > 0 && n < len(data) {
		w.u32(uint32(n))
		w.raw(comp[:n])
		return
	}
	w.u32(0)
	w.raw(data)
}

// positions writes a sorted position list as varint gaps from the previous
// position, lz4 block compressed when that is smaller. Gaps on a sorted list
// stay small, so the varints shrink the run and the lz4 pass has repetition
// to work with; raw fixed-width uint32s barely compress at all.
func (w *writer) positions(ps []uint32) {
	raw := make([]byte, 0, len(ps))
	prev := uint32(0)
	for _, p := range ps {
		raw = binary.AppendUvarint(raw, uint64(p-prev))
		prev = p
	}
	w.block(raw)
}

// vector writes dimension plus both position lists.
func (w *writer) vector(v ternary.Vector) {
	w.u32(uint32(v.Dim()))
	w.positions(v.Positive())
	w.positions(v.Negative())
}

func (w *writer) finish() ([]byte, error) {
	body := w.buf.Bytes()
	out := make([]byte, 0, len(body)+4)
	out = append(out, body...)
	out = byteOrder.AppendUint32(out, Checksum(body))
	return out, nil
}

// reader parses an artifact after verifying frame, version and checksum.
type reader struct {
	data []byte
	off  int
}

func newReader(data []byte, want ArtifactKind) (*reader, error) {
	if len(data) < headerSize+4 {
		return nil, ErrTruncated
	}

	body, trailer := data[:len(data)-4], data[len(data)-4:]
	if err := VerifyChecksum(body, byteOrder.Uint32(trailer)); err != nil {
		return nil, err
	}

	r := &reader{data: body}
	magic, _ := r.u32()
	if magic != MagicNumber {
		return nil, ErrBadMagic
	}
	version, _ := r.u16()
	if version > Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	kind, _ := r.u8()
	if ArtifactKind(kind) != want {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrWrongKind, kind, want)
	}
	return r, nil
}

func (r *reader) raw(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.data) {
		return nil, ErrTruncated
	}
	out := r.data[r.off : r.off+n : r.off+n]
	r.off += n
	return out, nil
}

func (r *reader) u8() (uint8, error) {
	b, err := r.raw(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u16() (uint16, error) {
	b, err := r.raw(2)
	if err != nil {
		return 0, err
	}
	return byteOrder.Uint16(b), nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.raw(4)
	if err != nil {
		return 0, err
	}
	return byteOrder.Uint32(b), nil
}

func (r *reader) u64() (uint64, error) {
	b, err := r.raw(8)
	if err != nil {
		return 0, err
	}
	return byteOrder.Uint64(b), nil
}

func (r *reader) uvarint() (uint64, error) {
	v, n := binary.Uvarint(r.data[r.off:])
	if n <= 0 {
		return 0, ErrTruncated
	}
	r.off += n
	return v, nil
}

func (r *reader) block() ([]byte, error) {
	rawLen, err := r.u32()
	if err != nil {
		return nil, err
	}
	compLen, err := r.u32()
	if err != nil {
		return nil, err
	}
	if rawLen == 0 {
		return nil, nil
	}

	if compLen == 0 {
		b, err := r.raw(int(rawLen))
		if err != nil {
			return nil, err
		}
		return bytes.Clone(b), nil
	}

	comp, err := r.raw(int(compLen))
	if err != nil {
		return nil, err
	}
	out := make([]byte, rawLen)
	n, err := lz4.UncompressBlock(comp, out)
	if err != nil {
		return nil, fmt.Errorf("%w: lz4: %w", ErrTruncated, err)
	}
	if n != int(rawLen) {
		return nil, ErrTruncated
	}
	return out, nil
}

func (r *reader) positions() ([]uint32, error) {
	raw, err := r.block()
	if err != nil {
		return nil, err
	}

	var out []uint32
	prev := uint32(0)
	for off := 0; off < len(raw); {
		delta, n := binary.Uvarint(raw[off:])
		if n <= 0 || delta > uint64(^uint32(0)) {
			return nil, ErrTruncated
		}
		off += n
		prev += uint32(delta)
		out = append(out, prev)
	}
	return out, nil
}

func (r *reader) vector() (ternary.Vector, error) {
	dim, err := r.u32()
	if err != nil {
		return ternary.Vector{}, err
	}
	pos, err := r.positions()
	if err != nil {
		return ternary.Vector{}, err
	}
	neg, err := r.positions()
	if err != nil {
		return ternary.Vector{}, err
	}
	return ternary.FromPositions(int(dim), pos, neg)
}
