// Package hierarchy implements the sub-engram tree: one aggregate sparse
// ternary vector per subtree of the dataset, plus a beam-search query engine
// that expands only promising branches. This is what makes selective decode
// possible without materializing the whole dataset: query cost is bounded by
// the expansion budget, not by the number of leaves.
package hierarchy

import (
	"context"
	"errors"
	"sync"

	"github.com/hupe1980/engramgo/ternary"
)

// NodeID identifies a node within one sub-engram tree.
type NodeID uint64

// Node is one level of the hierarchy: an aggregate vector over its subtree
// and either child node ids (internal node) or content ids (leaf node).
// Nodes are immutable once saved; a rebuilt subtree gets fresh ids.
type Node struct {
	ID     NodeID
	Vector ternary.Vector

	// Children lists child node ids for internal nodes.
	Children []NodeID

	// Leaves lists content identifiers for leaf nodes. A node has either
	// Children or Leaves, never both.
	Leaves []uint64
}

// IsLeaf reports whether the node holds content ids rather than child nodes.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// Fanout returns the number of direct children (node or content ids).
func (n *Node) Fanout() int {
	if n.IsLeaf() {
		return len(n.Leaves)
	}
	return len(n.Children)
}

var (
	// ErrUnavailable is returned by a NodeStore when a node's underlying
	// data cannot be served right now (evicted, not yet materialized, or a
	// store failure). The query engine treats such branches as dead ends
	// instead of failing the query.
	ErrUnavailable = errors.New("sub-engram node unavailable")
)

// NodeStore is the persistence collaborator for sub-engram nodes. The core
// treats calls as synchronous; implementations choose blocking, async or
// batched IO behind this surface.
type NodeStore interface {
	// Load returns the node for id, or an error satisfying
	// errors.Is(err, ErrUnavailable) when it cannot be served.
	Load(ctx context.Context, id NodeID) (*Node, error)

	// Save persists a node. Saving the same id twice must be idempotent.
	Save(ctx context.Context, node *Node) error
}

// MemoryNodeStore is an in-memory NodeStore, used in tests and as the
// default backend. Thread-safe. Nodes can be marked unavailable to exercise
// degraded-query paths.
type MemoryNodeStore struct {
	mu          sync.RWMutex
	nodes       map[NodeID]*Node
	unavailable map[NodeID]bool
}

// NewMemoryNodeStore creates an empty in-memory node store.
func NewMemoryNodeStore() *MemoryNodeStore {
	return &MemoryNodeStore{
		nodes:       make(map[NodeID]*Node),
		unavailable: make(map[NodeID]bool),
	}
}

// Load implements NodeStore.
func (s *MemoryNodeStore) Load(_ context.Context, id NodeID) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.unavailable[id] {
		return nil, ErrUnavailable
	}
	n, ok := s.nodes[id]
	if !ok {
		return nil, ErrUnavailable
	}
	return n, nil
}

// Save implements NodeStore.
func (s *MemoryNodeStore) Save(_ context.Context, node *Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[node.ID] = node
	return nil
}

// SetUnavailable toggles availability of a node, simulating eviction or a
// backend failure.
func (s *MemoryNodeStore) SetUnavailable(id NodeID, unavailable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable[id] = unavailable
}

// Len returns the number of stored nodes.
func (s *MemoryNodeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}
