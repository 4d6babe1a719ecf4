package hierarchy

import (
	"context"
	"errors"

	"github.com/hupe1980/engramgo/codebook"
	"github.com/hupe1980/engramgo/ternary"
)

// BuildOptions controls tree construction.
type BuildOptions struct {
	// Fanout is the maximum number of children per node. Default 32.
	Fanout int

	// MaxDensity thins each aggregate vector to at most this many non-zero
	// positions, bounding superposition growth up the tree. 0 disables
	// thinning.
	MaxDensity int

	// StartID sets the id allocation watermark. Node ids are allocated
	// above it, so a rebuild never reuses ids from an earlier tree.
	StartID NodeID
}

// DefaultBuildOptions returns the default construction parameters.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{Fanout: 32}
}

// ErrUnknownContent is returned when a content id passed to Build has no
// codebook entry.
var ErrUnknownContent = errors.New("content id not in codebook")

// Builder constructs sub-engram trees bottom-up: content ids are grouped
// into leaves, leaf vectors are accumulated into parent aggregates, and
// levels are stacked until a single root remains. Every node is saved to the
// store as it is created.
type Builder struct {
	store NodeStore
	book  *codebook.Book
	opts  BuildOptions

	nextID NodeID
}

// NewBuilder creates a Builder over the given store and codebook.
func NewBuilder(store NodeStore, book *codebook.Book, opts BuildOptions) *Builder {
	if opts.Fanout <= 1 {
		opts.Fanout = DefaultBuildOptions().Fanout
	}
	return &Builder{store: store, book: book, opts: opts, nextID: opts.StartID}
}

// NextID returns the id allocation watermark after the last Build.
func (b *Builder) NextID() NodeID { return b.nextID }

// Build constructs a tree over the given content ids and returns its root.
// The ids must all be registered in the codebook. An empty id list yields a
// single empty leaf root.
func (b *Builder) Build(ctx context.Context, ids []uint64) (*Node, error) {
	leaves, err := b.buildLeaves(ctx, ids)
	if err != nil {
		return nil, err
	}

	level := leaves
	for len(level) > 1 {
		level, err = b.buildParents(ctx, level)
		if err != nil {
			return nil, err
		}
	}
	return level[0], nil
}

func (b *Builder) buildLeaves(ctx context.Context, ids []uint64) ([]*Node, error) {
	if len(ids) == 0 {
		empty, err := ternary.New(b.book.Dim())
		if err != nil {
			return nil, err
		}
		root := &Node{ID: b.allocID(), Vector: empty}
		if err := b.store.Save(ctx, root); err != nil {
			return nil, err
		}
		return []*Node{root}, nil
	}

	var nodes []*Node
	for start := 0; start < len(ids); start += b.opts.Fanout {
		end := min(start+b.opts.Fanout, len(ids))
		group := ids[start:end]

		ac, err := ternary.NewAccumulator(b.book.Dim())
		if err != nil {
			return nil, err
		}
		for _, id := range group {
			v, ok := b.book.Get(id)
			if !ok {
				return nil, ErrUnknownContent
			}
			if err := ac.Add(v); err != nil {
				return nil, err
			}
		}

		node := &Node{
			ID:     b.allocID(),
			Vector: b.thin(ac.Vector()),
			Leaves: append([]uint64(nil), group...),
		}
		if err := b.store.Save(ctx, node); err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (b *Builder) buildParents(ctx context.Context, children []*Node) ([]*Node, error) {
	var nodes []*Node
	for start := 0; start < len(children); start += b.opts.Fanout {
		end := min(start+b.opts.Fanout, len(children))
		group := children[start:end]

		ac, err := ternary.NewAccumulator(b.book.Dim())
		if err != nil {
			return nil, err
		}
		childIDs := make([]NodeID, 0, len(group))
		for _, child := range group {
			if err := ac.Add(child.Vector); err != nil {
				return nil, err
			}
			childIDs = append(childIDs, child.ID)
		}

		node := &Node{
			ID:       b.allocID(),
			Vector:   b.thin(ac.Vector()),
			Children: childIDs,
		}
		if err := b.store.Save(ctx, node); err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (b *Builder) thin(v ternary.Vector) ternary.Vector {
	if b.opts.MaxDensity > 0 {
		return ternary.Thin(v, b.opts.MaxDensity)
	}
	return v
}

func (b *Builder) allocID() NodeID {
	b.nextID++
	return b.nextID
}
