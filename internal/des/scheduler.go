package des

import (
	"sync"

	"go.uber.org/zap"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
)

// Scheduler owns the queue and the single process-wide tie_break counter
// named in spec section 5/9: initialized to 0 at runtime start, monotonic
// for the process lifetime, never persisted, incremented under the same
// lock that guards the queue.
//
// Scheduler logs every Schedule/Dequeue call through trace, a zap logger
// rather than the logrus.Entry the rest of the CLI uses: this is the
// hottest path in the whole substrate (one call pair per scheduled
// event, potentially millions per run), where logrus's reflection-based
// field formatting would dominate the profile at debug level. zap's
// structured, allocation-free field encoders make trace-level scheduling
// logs cheap enough to leave on.
type Scheduler struct {
	mu       sync.Mutex
	queue    *Queue
	tieBreak uint64
	trace    *zap.Logger
}

// NewScheduler builds an empty Scheduler. trace is optional; pass nil to
// use zap.NewNop(), which discards every entry at negligible cost.
func NewScheduler(trace *zap.Logger) *Scheduler {
	if trace == nil {
		trace = zap.NewNop()
	}
	return &Scheduler{queue: NewQueue(), trace: trace}
}

// Schedule enqueues a work item, assigning it the next tie_break value.
// Two items scheduled with identical (when, sphere, kind) therefore
// execute in schedule call order.
func (s *Scheduler) Schedule(when ids.Tick, sphere Sphere, kind int, payload interface{}) ScheduledWorkItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := ScheduledWorkItem{When: when, Sphere: sphere, Kind: kind, TieBreak: s.tieBreak, Payload: payload}
	s.tieBreak++
	s.queue.Push(item)
	s.trace.Debug("des: scheduled work item",
		zap.Int64("when", int64(when)), zap.Int("sphere", int(sphere)), zap.Int("kind", kind), zap.Uint64("tie_break", item.TieBreak))
	return item
}

// Peek returns the head item without dequeuing it.
func (s *Scheduler) Peek() (ScheduledWorkItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Peek()
}

// Dequeue removes and returns the head item.
func (s *Scheduler) Dequeue() (ScheduledWorkItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.queue.Pop()
	if ok {
		s.trace.Debug("des: dequeued work item", zap.Int64("when", int64(item.When)), zap.Uint64("tie_break", item.TieBreak))
	}
	return item, ok
}

// Len reports the number of items currently queued.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}
