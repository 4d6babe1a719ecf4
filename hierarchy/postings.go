package hierarchy

import (
	"context"
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/engramgo/codebook"
	"github.com/hupe1980/engramgo/ternary"
)

// signedPostings holds, for one vector position, the ordinals of the
// children that are non-zero there, split by sign.
type signedPostings struct {
	pos *roaring.Bitmap
	neg *roaring.Bitmap
}

// invertedIndex is the lazily built postings structure over one node's
// direct children. A query's own non-zero positions index straight into the
// postings lists, so scoring touches only children that share support with
// the query instead of scanning every child vector.
//
// Building is deterministic and idempotent: concurrent rebuilds of the same
// node produce identical indexes, so last-write-wins caching is correct.
type invertedIndex struct {
	node     *Node
	postings map[uint32]*signedPostings
	childNNZ []int

	// unresolved lists the ordinals of children whose vectors could not be
	// resolved at build time. They have no postings, so they can never score
	// or join a frontier; the search loop reports them instead.
	unresolved []int
}

func buildInvertedIndex(node *Node, childVector func(ordinal int) (ternary.Vector, bool)) *invertedIndex {
	idx := &invertedIndex{
		node:     node,
		postings: make(map[uint32]*signedPostings),
		childNNZ: make([]int, node.Fanout()),
	}

	for ord := range node.Fanout() {
		v, ok := childVector(ord)
		if !ok {
			idx.unresolved = append(idx.unresolved, ord)
			continue
		}
		idx.childNNZ[ord] = v.NNZ()
		for _, p := range v.Positive() {
			idx.at(p).pos.Add(uint32(ord))
		}
		for _, p := range v.Negative() {
			idx.at(p).neg.Add(uint32(ord))
		}
	}

	return idx
}

func (idx *invertedIndex) at(p uint32) *signedPostings {
	sp, ok := idx.postings[p]
	if !ok {
		sp = &signedPostings{pos: roaring.New(), neg: roaring.New()}
		idx.postings[p] = sp
	}
	return sp
}

// score computes cosine similarity between the query and every child that
// shares at least one position with it. Children with disjoint support are
// omitted (their similarity is zero).
func (idx *invertedIndex) score(query ternary.Vector) map[int]float64 {
	votes := make(map[uint32]int)

	accumulate := func(positions []uint32, sign int) {
		for _, p := range positions {
			sp, ok := idx.postings[p]
			if !ok {
				continue
			}
			it := sp.pos.Iterator()
			for it.HasNext() {
				votes[it.Next()] += sign
			}
			it = sp.neg.Iterator()
			for it.HasNext() {
				votes[it.Next()] -= sign
			}
		}
	}
	accumulate(query.Positive(), 1)
	accumulate(query.Negative(), -1)

	qn := float64(query.NNZ())
	out := make(map[int]float64, len(votes))
	for ord, dot := range votes {
		cn := float64(idx.childNNZ[ord])
		if qn == 0 || cn == 0 {
			continue
		}
		out[int(ord)] = float64(dot) / math.Sqrt(qn*cn)
	}
	return out
}

// indexCache retains built inverted indexes under an LRU policy and guards
// concurrent builds of the same node with singleflight. Eviction only costs
// a rebuild on the next visit; correctness is unaffected.
type indexCache struct {
	lru   *lru.Cache[NodeID, *invertedIndex]
	group singleflight.Group

	store NodeStore
	book  *codebook.Book
}

func newIndexCache(size int, store NodeStore, book *codebook.Book) (*indexCache, error) {
	c, err := lru.New[NodeID, *invertedIndex](size)
	if err != nil {
		return nil, err
	}
	return &indexCache{lru: c, store: store, book: book}, nil
}

// get returns the node's inverted index, building it on demand. Child
// vectors come from the node store for internal nodes and from the codebook
// for leaves; children that cannot be resolved get no postings and are
// recorded on the index as unresolved.
func (c *indexCache) get(ctx context.Context, node *Node) (*invertedIndex, error) {
	if idx, ok := c.lru.Get(node.ID); ok {
		return idx, nil
	}

	v, err, _ := c.group.Do(fmt.Sprintf("%d", node.ID), func() (any, error) {
		if idx, ok := c.lru.Get(node.ID); ok {
			return idx, nil
		}

		var idx *invertedIndex
		if node.IsLeaf() {
			idx = buildInvertedIndex(node, func(ord int) (ternary.Vector, bool) {
				return c.book.Get(node.Leaves[ord])
			})
		} else {
			idx = buildInvertedIndex(node, func(ord int) (ternary.Vector, bool) {
				child, err := c.store.Load(ctx, node.Children[ord])
				if err != nil {
					return ternary.Vector{}, false
				}
				return child.Vector, true
			})
		}

		// An internal node's index built while some children were
		// unreachable is not cached, so a recovered branch is picked up
		// on the next search rather than after eviction. Leaf gaps are
		// deactivated entries and stay stable, so those indexes cache.
		if node.IsLeaf() || len(idx.unresolved) == 0 {
			c.lru.Add(node.ID, idx)
		}
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*invertedIndex), nil
}
