// Package persistence defines the binary artifact formats the core produces
// and consumes: engram records (root vector plus codebook), correction
// records, and sub-engram nodes.
//
// Every artifact is framed the same way: a header with magic, format
// version and artifact kind, the kind-specific payload, and a CRC32 trailer
// over header and payload. Position lists are stored as varint gaps between
// consecutive positions, lz4 block compressed when that is smaller.
package persistence

import (
	"errors"
	"fmt"
)

// MagicNumber identifies engramgo artifacts ("ENGM").
const MagicNumber uint32 = 0x454E474D

// Version is the current format version tag.
const Version uint16 = 1

// ArtifactKind tags what an artifact contains.
type ArtifactKind uint8

const (
	// KindEngram is a root vector plus its codebook.
	KindEngram ArtifactKind = 1
	// KindCorrection is a correction record for one content id.
	KindCorrection ArtifactKind = 2
	// KindNode is one sub-engram tree node.
	KindNode ArtifactKind = 3
)

var (
	// ErrBadMagic is returned when an artifact does not start with the
	// expected magic number.
	ErrBadMagic = errors.New("not an engramgo artifact")

	// ErrUnsupportedVersion is returned for artifacts written by a newer
	// format version.
	ErrUnsupportedVersion = errors.New("unsupported format version")

	// ErrWrongKind is returned when an artifact holds a different kind
	// than the caller asked to decode.
	ErrWrongKind = errors.New("unexpected artifact kind")

	// ErrTruncated is returned when an artifact ends before its payload
	// does.
	ErrTruncated = errors.New("truncated artifact")
)

// ChecksumMismatchError is returned when the CRC32 trailer does not match
// the artifact's contents, indicating storage corruption.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}
