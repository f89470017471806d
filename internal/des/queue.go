// Package des implements the discrete-event simulation scheduler: a
// canonical-order priority queue and a run loop that drains it, dispatches
// work, and appends the resulting truth events.
package des

import (
	"container/heap"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
)

// Sphere is the fixed enum of simulation spheres used as the second key
// of the canonical ordering, per spec section 4.5.
type Sphere uint32

const (
	Geosphere Sphere = 100
	Biosphere Sphere = 200
)

// ScheduledWorkItem is a single unit of scheduled work.
type ScheduledWorkItem struct {
	When     ids.Tick
	Sphere   Sphere
	Kind     int
	TieBreak uint64
	Payload  interface{}
}

// less implements the canonical ordering key: when, then sphere, then
// kind, then tie_break, all ascending.
func less(a, b ScheduledWorkItem) bool {
	if a.When != b.When {
		return a.When < b.When
	}
	if a.Sphere != b.Sphere {
		return a.Sphere < b.Sphere
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return a.TieBreak < b.TieBreak
}

// itemHeap is a container/heap.Interface implementation over
// ScheduledWorkItem ordered by the canonical key.
type itemHeap []ScheduledWorkItem

func (h itemHeap) Len() int            { return len(h) }
func (h itemHeap) Less(i, j int) bool  { return less(h[i], h[j]) }
func (h itemHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x interface{}) { *h = append(*h, x.(ScheduledWorkItem)) }
func (h *itemHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Queue is the DES work queue: a priority queue under the canonical
// ordering key.
type Queue struct {
	h itemHeap
}

// NewQueue builds an empty Queue.
func NewQueue() *Queue {
	q := &Queue{}
	heap.Init(&q.h)
	return q
}

// Push inserts item, maintaining heap order.
func (q *Queue) Push(item ScheduledWorkItem) {
	heap.Push(&q.h, item)
}

// Peek returns the head item without removing it.
func (q *Queue) Peek() (ScheduledWorkItem, bool) {
	if len(q.h) == 0 {
		return ScheduledWorkItem{}, false
	}
	return q.h[0], true
}

// Pop removes and returns the head item.
func (q *Queue) Pop() (ScheduledWorkItem, bool) {
	if len(q.h) == 0 {
		return ScheduledWorkItem{}, false
	}
	item := heap.Pop(&q.h).(ScheduledWorkItem)
	return item, true
}

// Len reports the number of items currently queued.
func (q *Queue) Len() int { return len(q.h) }
