// Package codebook stores the ground-truth mapping from content identifiers
// to the sparse ternary vectors that were bundled into an engram for them.
// It is the cleanup memory behind similarity search and selective decode.
//
// The book is append-mostly: entries are only ever added or marked inactive,
// never rewritten. Reads are lock-free per shard once an entry is written;
// writes for different identifiers proceed concurrently across shards.
package codebook

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/engramgo/ternary"
)

// ID is a stable content identifier.
type ID = uint64

const numShards = 16

var (
	// ErrEntryExists is returned when an identifier is re-registered with a
	// different vector. Entries are immutable once written.
	ErrEntryExists = errors.New("codebook entry already exists with a different vector")
)

// Book is a sharded, concurrency-safe codebook.
type Book struct {
	dim    int
	shards [numShards]shard
}

type shard struct {
	mu      sync.RWMutex
	entries map[ID]ternary.Vector
	active  *roaring64.Bitmap
}

// New creates an empty codebook for vectors of the given dimension.
func New(dim int) (*Book, error) {
	if dim <= 0 {
		return nil, ternary.ErrInvalidDimension
	}
	b := &Book{dim: dim}
	for i := range b.shards {
		b.shards[i].entries = make(map[ID]ternary.Vector)
		b.shards[i].active = roaring64.New()
	}
	return b, nil
}

// Dim returns the dimension shared by all entries.
func (b *Book) Dim() int { return b.dim }

func (b *Book) shard(id ID) *shard {
	// Fibonacci hashing spreads sequential and hash-derived ids alike.
	return &b.shards[(id*0x9E3779B97F4A7C15)>>(64-4)]
}

// Put registers a vector for id. Re-registering the same id with an equal
// vector is an idempotent no-op; a different vector is rejected, because
// entries are never mutated in place.
func (b *Book) Put(id ID, v ternary.Vector) error {
	if v.Dim() != b.dim {
		return &ternary.ErrDimensionMismatch{Expected: b.dim, Actual: v.Dim()}
	}

	s := b.shard(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[id]; ok {
		if !existing.Equal(v) {
			return fmt.Errorf("%w: id %d", ErrEntryExists, id)
		}
		s.active.Add(id)
		return nil
	}

	s.entries[id] = v
	s.active.Add(id)
	return nil
}

// Get returns the vector registered for id, whether or not the entry is
// still active.
func (b *Book) Get(id ID) (ternary.Vector, bool) {
	s := b.shard(id)
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.entries[id]
	return v, ok
}

// Deactivate marks an entry as deleted. The vector itself is retained; it
// may still be referenced by previously built engrams.
func (b *Book) Deactivate(id ID) {
	s := b.shard(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active.Remove(id)
}

// IsActive reports whether id exists and has not been deactivated.
func (b *Book) IsActive(id ID) bool {
	s := b.shard(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active.Contains(id)
}

// Len returns the number of active entries.
func (b *Book) Len() int {
	n := uint64(0)
	for i := range b.shards {
		s := &b.shards[i]
		s.mu.RLock()
		n += s.active.GetCardinality()
		s.mu.RUnlock()
	}
	return int(n)
}

// ActiveIDs returns a snapshot bitmap of all active identifiers.
func (b *Book) ActiveIDs() *roaring64.Bitmap {
	out := roaring64.New()
	for i := range b.shards {
		s := &b.shards[i]
		s.mu.RLock()
		out.Or(s.active)
		s.mu.RUnlock()
	}
	return out
}

// ForEach calls fn for every active entry. Iteration order is by ascending
// id. fn must not call back into the Book.
func (b *Book) ForEach(fn func(id ID, v ternary.Vector) bool) {
	ids := b.ActiveIDs()
	it := ids.Iterator()
	for it.HasNext() {
		id := it.Next()
		v, ok := b.Get(id)
		if !ok {
			continue
		}
		if !fn(id, v) {
			return
		}
	}
}

// Entry is a snapshot of one codebook mapping.
type Entry struct {
	ID     ID
	Vector ternary.Vector
	Active bool
}

// Entries returns a snapshot of all entries, active and inactive, sorted by
// id. Used by the persistence layer.
func (b *Book) Entries() []Entry {
	var out []Entry
	for i := range b.shards {
		s := &b.shards[i]
		s.mu.RLock()
		for id, v := range s.entries {
			out = append(out, Entry{ID: id, Vector: v, Active: s.active.Contains(id)})
		}
		s.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FromEntries rebuilds a Book from a snapshot.
func FromEntries(dim int, entries []Entry) (*Book, error) {
	b, err := New(dim)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if err := b.Put(e.ID, e.Vector); err != nil {
			return nil, err
		}
		if !e.Active {
			b.Deactivate(e.ID)
		}
	}
	return b, nil
}

// Cleanup returns the active entry most similar to query along with its
// cosine similarity. ok is false when the book has no active entries.
// This is the classic cleanup-memory operation: snap a noisy superposition
// component back to the nearest stored vector.
func (b *Book) Cleanup(query ternary.Vector) (best ID, sim float64, ok bool, err error) {
	sim = -2
	b.ForEach(func(id ID, v ternary.Vector) bool {
		s, cerr := ternary.Cosine(query, v)
		if cerr != nil {
			err = cerr
			return false
		}
		if s > sim {
			best, sim, ok = id, s, true
		}
		return true
	})
	if err != nil {
		return 0, 0, false, err
	}
	return best, sim, ok, nil
}
