// Package merger selects the best-ranked items from candidate lists with a
// bounded heap, so picking the top k of n candidates costs O(n log k).
package merger

import (
	"container/heap"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/searcher/ranker"
)

// TopN returns the limit items that rank first under before, in rank order.
// before must be a strict total order. limit <= 0 keeps every item. items is
// not modified.
func TopN[T any](items []T, limit int, before func(a, b T) bool) []T {
	if limit <= 0 || limit >= len(items) {
		out := append([]T(nil), items...)
		sort.Slice(out, func(i, j int) bool { return before(out[i], out[j]) })
		return out
	}
	h := &boundedHeap[T]{before: before, items: make([]T, 0, limit)}
	for _, it := range items {
		if len(h.items) < limit {
			heap.Push(h, it)
			continue
		}
		if before(it, h.items[0]) {
			h.items[0] = it
			heap.Fix(h, 0)
		}
	}
	out := make([]T, len(h.items))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(T)
	}
	return out
}

// ByScore orders documents by descending score, then ascending id.
func ByScore(a, b ranker.ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocID < b.DocID
}

// boundedHeap keeps the item that ranks last at the root.
type boundedHeap[T any] struct {
	items  []T
	before func(a, b T) bool
}

func (h *boundedHeap[T]) Len() int           { return len(h.items) }
func (h *boundedHeap[T]) Less(i, j int) bool { return h.before(h.items[j], h.items[i]) }
func (h *boundedHeap[T]) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *boundedHeap[T]) Push(x any)         { h.items = append(h.items, x.(T)) }

func (h *boundedHeap[T]) Pop() any {
	n := len(h.items)
	item := h.items[n-1]
	h.items = h.items[:n-1]
	return item
}
