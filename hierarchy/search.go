package hierarchy

import (
	"context"
	"sort"

	"github.com/hupe1980/engramgo/codebook"
	"github.com/hupe1980/engramgo/ternary"
)

// SearchParams bounds a beam search. Every field caps work, so total cost is
// O(MaxExpansions * fanout) regardless of dataset size.
type SearchParams struct {
	// K is the number of results to return after reranking.
	K int

	// BeamWidth caps how many children of an expanded node join the
	// frontier.
	BeamWidth int

	// MaxDepth stops expansion below this tree depth.
	MaxDepth int

	// MaxExpansions caps the total number of node expansions per search.
	MaxExpansions int

	// CandidateK caps candidates collected per expanded leaf.
	CandidateK int

	// MinSimilarity is the expansion threshold: branches scoring below it
	// are abandoned.
	MinSimilarity float64
}

// DefaultSearchParams returns sensible search bounds.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		K:             10,
		BeamWidth:     8,
		MaxDepth:      16,
		MaxExpansions: 64,
		CandidateK:    32,
		MinSimilarity: 0.05,
	}
}

func (p SearchParams) withDefaults() SearchParams {
	d := DefaultSearchParams()
	if p.K <= 0 {
		p.K = d.K
	}
	if p.BeamWidth <= 0 {
		p.BeamWidth = d.BeamWidth
	}
	if p.MaxDepth <= 0 {
		p.MaxDepth = d.MaxDepth
	}
	if p.MaxExpansions <= 0 {
		p.MaxExpansions = d.MaxExpansions
	}
	if p.CandidateK <= 0 {
		p.CandidateK = d.CandidateK
	}
	return p
}

// Candidate is one ranked result.
type Candidate struct {
	ID         uint64
	Similarity float64
}

// Result carries the ranked candidates plus everything a caller needs to
// judge completeness: which branches were skipped as unavailable and how
// much of the expansion budget was spent. A result with skipped branches or
// an exhausted budget is partial, which is a defined outcome, not an error.
type Result struct {
	Candidates []Candidate
	Skipped    []NodeID
	Expansions int
}

// Engine runs bounded beam searches over a sub-engram tree.
// Safe for concurrent use.
type Engine struct {
	store NodeStore
	book  *codebook.Book
	cache *indexCache
}

// NewEngine creates a query engine. cacheSize bounds how many node indexes
// stay resident; evicted indexes are rebuilt on demand.
func NewEngine(store NodeStore, book *codebook.Book, cacheSize int) (*Engine, error) {
	if cacheSize <= 0 {
		cacheSize = 128
	}
	cache, err := newIndexCache(cacheSize, store, book)
	if err != nil {
		return nil, err
	}
	return &Engine{store: store, book: book, cache: cache}, nil
}

// Search beam-searches the tree rooted at root for the content most similar
// to query. It terminates when the frontier is exhausted, the expansion
// budget is spent, or ctx is done; in every case it returns the candidates
// found so far.
//
// This search is approximate: an unavailable branch or a tight budget can
// miss exact matches. Only the decode-plus-correction path for a selected
// leaf is guaranteed bit-exact.
func (e *Engine) Search(ctx context.Context, root NodeID, query ternary.Vector, params SearchParams) (*Result, error) {
	if query.Dim() != e.book.Dim() {
		return nil, &ternary.ErrDimensionMismatch{Expected: e.book.Dim(), Actual: query.Dim()}
	}
	params = params.withDefaults()

	res := &Result{}
	best := make(map[uint64]float64)

	frontier := newFrontierQueue()
	e.pushNode(ctx, frontier, root, query, 0, res)

	for frontier.Len() > 0 && res.Expansions < params.MaxExpansions {
		if ctx.Err() != nil {
			break
		}

		item, ok := frontier.Pop()
		if !ok {
			break
		}
		if item.depth > 0 && item.similarity < params.MinSimilarity {
			// Max-heap: everything behind this item scores lower.
			break
		}

		node := item.node
		if node == nil {
			var err error
			node, err = e.store.Load(ctx, item.id)
			if err != nil {
				res.Skipped = append(res.Skipped, item.id)
				continue
			}
		}

		res.Expansions++

		idx, err := e.cache.get(ctx, node)
		if err != nil {
			res.Skipped = append(res.Skipped, item.id)
			continue
		}
		if !node.IsLeaf() {
			// Children that could not be resolved at index-build time have
			// no postings and can never be reached; report them so the
			// caller knows the result is partial.
			for _, ord := range idx.unresolved {
				res.Skipped = append(res.Skipped, node.Children[ord])
			}
		}
		scores := idx.score(query)

		if node.IsLeaf() {
			collectLeaf(node, scores, params.CandidateK, best)
			continue
		}

		if item.depth >= params.MaxDepth {
			continue
		}
		for _, c := range topChildren(scores, params.BeamWidth) {
			frontier.Push(frontierItem{
				id:         node.Children[c.ordinal],
				similarity: c.similarity,
				depth:      item.depth + 1,
			})
		}
	}

	res.Candidates = e.rerank(query, best, params.K)
	return res, nil
}

// pushNode seeds the frontier with the root, scoring it directly against the
// query. The loaded node rides on the item, so the expansion loop does not
// load it again. An unavailable root degrades to an empty (fully skipped)
// result.
func (e *Engine) pushNode(ctx context.Context, frontier *frontierQueue, id NodeID, query ternary.Vector, depth int, res *Result) {
	node, err := e.store.Load(ctx, id)
	if err != nil {
		res.Skipped = append(res.Skipped, id)
		return
	}
	sim, err := ternary.Cosine(query, node.Vector)
	if err != nil {
		res.Skipped = append(res.Skipped, id)
		return
	}
	frontier.Push(frontierItem{id: id, similarity: sim, depth: depth, node: node})
}

type scoredChild struct {
	ordinal    int
	similarity float64
}

// topChildren returns the beamWidth best-scoring child ordinals,
// deterministically ordered.
func topChildren(scores map[int]float64, beamWidth int) []scoredChild {
	out := make([]scoredChild, 0, len(scores))
	for ord, sim := range scores {
		out = append(out, scoredChild{ordinal: ord, similarity: sim})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].similarity != out[j].similarity {
			return out[i].similarity > out[j].similarity
		}
		return out[i].ordinal < out[j].ordinal
	})
	if len(out) > beamWidth {
		out = out[:beamWidth]
	}
	return out
}

// collectLeaf merges a leaf's best-scoring content ids into the candidate
// set, keeping the highest similarity seen per id.
func collectLeaf(node *Node, scores map[int]float64, candidateK int, best map[uint64]float64) {
	for _, c := range topChildren(scores, candidateK) {
		id := node.Leaves[c.ordinal]
		if sim, ok := best[id]; !ok || c.similarity > sim {
			best[id] = c.similarity
		}
	}
}

// rerank replaces the approximate postings scores with exact cosine
// similarity against the codebook's ground-truth vectors and returns the
// top k. Deactivated entries are dropped.
func (e *Engine) rerank(query ternary.Vector, best map[uint64]float64, k int) []Candidate {
	out := make([]Candidate, 0, len(best))
	for id := range best {
		if !e.book.IsActive(id) {
			continue
		}
		v, ok := e.book.Get(id)
		if !ok {
			continue
		}
		sim, err := ternary.Cosine(query, v)
		if err != nil {
			continue
		}
		out = append(out, Candidate{ID: id, Similarity: sim})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}
