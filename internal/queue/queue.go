// Package queue implements the bounded selection heap used for top-k.
package queue

// Item is a scored row reference.
type Item struct {
	Index uint64
	Score float32
}

// TopK keeps the k highest-scoring items seen so far.
//
// It is a binary min-heap of capacity k: the root is the weakest retained
// item, so admission is a single comparison and eviction is O(log k).
// Equal scores are not ordered by index.
type TopK struct {
	k     int
	items []Item
}

// NewTopK creates a selector retaining at most k items.
func NewTopK(k int) *TopK {
	if k < 0 {
		k = 0
	}
	return &TopK{k: k, items: make([]Item, 0, k)}
}

// Reset empties the selector and sets a new capacity, reusing storage.
func (q *TopK) Reset(k int) {
	if k < 0 {
		k = 0
	}
	q.k = k
	if cap(q.items) < k {
		q.items = make([]Item, 0, k)
		return
	}
	q.items = q.items[:0]
}

// Len returns the number of retained items.
func (q *TopK) Len() int { return len(q.items) }

// Offer considers a candidate. It reports whether the candidate was retained.
func (q *TopK) Offer(index uint64, score float32) bool {
	if q.k == 0 {
		return false
	}
	if len(q.items) < q.k {
		q.items = append(q.items, Item{Index: index, Score: score})
		q.up(len(q.items) - 1)
		return true
	}
	if score <= q.items[0].Score {
		return false
	}
	q.items[0] = Item{Index: index, Score: score}
	q.down(0)
	return true
}

// Pop removes and returns the weakest retained item.
func (q *TopK) Pop() (Item, bool) {
	n := len(q.items)
	if n == 0 {
		return Item{}, false
	}
	root := q.items[0]
	q.items[0] = q.items[n-1]
	q.items = q.items[:n-1]
	if len(q.items) > 0 {
		q.down(0)
	}
	return root, true
}

// Drain empties the selector into dst in descending score order and returns
// the extended slice. Heap pops come out ascending, so dst is filled from the
// back.
func (q *TopK) Drain(dst []Item) []Item {
	n := len(q.items)
	start := len(dst)
	dst = append(dst, make([]Item, n)...)
	for i := n - 1; i >= 0; i-- {
		it, _ := q.Pop()
		dst[start+i] = it
	}
	return dst
}

func (q *TopK) up(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if q.items[i].Score >= q.items[p].Score {
			return
		}
		q.items[i], q.items[p] = q.items[p], q.items[i]
		i = p
	}
}

func (q *TopK) down(i int) {
	n := len(q.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		m := l
		if r := l + 1; r < n && q.items[r].Score < q.items[l].Score {
			m = r
		}
		if q.items[m].Score >= q.items[i].Score {
			return
		}
		q.items[i], q.items[m] = q.items[m], q.items[i]
		i = m
	}
}
