package hierarchy

// frontierItem is one unexpanded branch in the beam.
type frontierItem struct {
	id         NodeID
	similarity float64
	depth      int

	// node is set when the pusher already loaded it, so expansion does not
	// hit the store a second time. Nil for items pushed by ordinal.
	node *Node
}

// frontierQueue is a max-heap of frontier items ordered by similarity.
// Value-based storage, no pointer indirection.
type frontierQueue struct {
	items []frontierItem
}

func newFrontierQueue() *frontierQueue {
	return &frontierQueue{items: make([]frontierItem, 0, 16)}
}

func (q *frontierQueue) Len() int { return len(q.items) }

func (q *frontierQueue) Push(item frontierItem) {
	q.items = append(q.items, item)
	q.siftUp(len(q.items) - 1)
}

// Pop removes and returns the most similar item.
func (q *frontierQueue) Pop() (frontierItem, bool) {
	n := len(q.items)
	if n == 0 {
		return frontierItem{}, false
	}

	item := q.items[0]
	q.items[0] = q.items[n-1]
	q.items = q.items[:n-1]
	if len(q.items) > 0 {
		q.siftDown(0)
	}
	return item, true
}

func (q *frontierQueue) less(i, j int) bool {
	if q.items[i].similarity != q.items[j].similarity {
		return q.items[i].similarity > q.items[j].similarity
	}
	// Tie-break on id for deterministic expansion order.
	return q.items[i].id < q.items[j].id
}

func (q *frontierQueue) swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
}

func (q *frontierQueue) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !q.less(i, parent) {
			break
		}
		q.swap(i, parent)
		i = parent
	}
}

func (q *frontierQueue) siftDown(i int) {
	n := len(q.items)
	for {
		left := 2*i + 1
		if left >= n {
			break
		}
		child := left
		if right := left + 1; right < n && q.less(right, left) {
			child = right
		}
		if !q.less(child, i) {
			break
		}
		q.swap(i, child)
		i = child
	}
}
