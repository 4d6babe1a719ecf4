// Package store maps the engine's persistent artifacts onto a blob store:
// the engram record, per-content correction records, sub-engram nodes and
// the manifest. Key layout is stable and human-inspectable.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/engramgo/blobstore"
	"github.com/hupe1980/engramgo/codebook"
	"github.com/hupe1980/engramgo/correction"
	"github.com/hupe1980/engramgo/hierarchy"
	"github.com/hupe1980/engramgo/persistence"
	"github.com/hupe1980/engramgo/resource"
	"github.com/hupe1980/engramgo/ternary"
)

const (
	engramKey    = "engram"
	manifestKey  = "MANIFEST.json"
	nodePrefix   = "nodes/"
	recordPrefix = "corrections/"
)

func nodeKey(id hierarchy.NodeID) string {
	return fmt.Sprintf("%s%016x", nodePrefix, uint64(id))
}

func correctionKey(id uint64) string {
	return fmt.Sprintf("%s%016x", recordPrefix, id)
}

// Store persists engine artifacts in a BlobStore, throttled by an optional
// resource controller. It implements hierarchy.NodeStore.
type Store struct {
	blobs blobstore.BlobStore
	res   *resource.Controller
}

// New creates a Store over blobs. res may be nil.
func New(blobs blobstore.BlobStore, res *resource.Controller) *Store {
	return &Store{blobs: blobs, res: res}
}

func (s *Store) get(ctx context.Context, key string) ([]byte, error) {
	// Blob size is unknown before the transfer, so gate on outstanding IO
	// debt first, then charge the actual size once it is known. Writes
	// know their size up front and acquire directly.
	if err := s.res.AcquireIO(ctx, 1); err != nil {
		return nil, err
	}
	data, err := s.blobs.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	s.res.ChargeIO(len(data))
	return data, nil
}

func (s *Store) put(ctx context.Context, key string, data []byte) error {
	if err := s.res.AcquireIO(ctx, len(data)); err != nil {
		return err
	}
	return s.blobs.Put(ctx, key, data)
}

// SaveEngram persists the root vector and codebook.
func (s *Store) SaveEngram(ctx context.Context, root ternary.Vector, book *codebook.Book) error {
	data, err := persistence.EncodeEngram(root, book)
	if err != nil {
		return err
	}
	return s.put(ctx, engramKey, data)
}

// LoadEngram restores the root vector and codebook. Returns
// blobstore.ErrNotFound when nothing has been saved yet.
func (s *Store) LoadEngram(ctx context.Context) (ternary.Vector, *codebook.Book, error) {
	data, err := s.get(ctx, engramKey)
	if err != nil {
		return ternary.Vector{}, nil, err
	}
	return persistence.DecodeEngram(data)
}

// SaveCorrection persists the correction record for a content id.
func (s *Store) SaveCorrection(ctx context.Context, id uint64, rec *correction.Record) error {
	data, err := persistence.EncodeCorrection(rec)
	if err != nil {
		return err
	}
	return s.put(ctx, correctionKey(id), data)
}

// LoadCorrection fetches the correction record for a content id.
func (s *Store) LoadCorrection(ctx context.Context, id uint64) (*correction.Record, error) {
	data, err := s.get(ctx, correctionKey(id))
	if err != nil {
		return nil, err
	}
	return persistence.DecodeCorrection(data)
}

// DeleteCorrection removes a content id's correction record. Deleting a
// missing record is not an error.
func (s *Store) DeleteCorrection(ctx context.Context, id uint64) error {
	return s.blobs.Delete(ctx, correctionKey(id))
}

// Load implements hierarchy.NodeStore. Missing or unreadable nodes map to
// hierarchy.ErrUnavailable so queries degrade instead of failing.
func (s *Store) Load(ctx context.Context, id hierarchy.NodeID) (*hierarchy.Node, error) {
	data, err := s.get(ctx, nodeKey(id))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: node %d", hierarchy.ErrUnavailable, id)
		}
		return nil, err
	}

	node, err := persistence.DecodeNode(data)
	if err != nil {
		// A corrupt node is a dead branch, not a dead query.
		return nil, fmt.Errorf("%w: node %d: %w", hierarchy.ErrUnavailable, id, err)
	}
	return node, nil
}

// Save implements hierarchy.NodeStore.
func (s *Store) Save(ctx context.Context, node *hierarchy.Node) error {
	data, err := persistence.EncodeNode(node)
	if err != nil {
		return err
	}
	return s.put(ctx, nodeKey(node.ID), data)
}
