package des

import (
	"context"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
)

// TruthEventDraft is a single event a dispatcher handler wants appended to
// some stream as a result of processing one scheduled work item.
type TruthEventDraft struct {
	Stream  ids.StreamIdentity
	Tick    ids.Tick
	Payload []byte
}

// Handler is one kind's deterministic, read-only (against state views)
// dispatch function: given the current tick and the item's payload, it
// produces zero or more truth events to append.
type Handler func(ctx context.Context, currentTick ids.Tick, payload interface{}) ([]TruthEventDraft, error)

// Dispatcher is the pluggable sum type of handlers keyed by kind, named in
// spec section 4.5.
type Dispatcher struct {
	handlers map[int]Handler
}

// NewDispatcher builds an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[int]Handler)}
}

// Register binds a Handler to a kind. Registering the same kind twice
// replaces the prior handler.
func (d *Dispatcher) Register(kind int, h Handler) {
	d.handlers[kind] = h
}

// Dispatch invokes the handler registered for item's kind. A kind with no
// registered handler produces no events and no error — the scheduler
// treats unrecognized work as a no-op rather than a fatal condition, since
// new kinds may be scheduled by forward-compatible callers.
func (d *Dispatcher) Dispatch(ctx context.Context, item ScheduledWorkItem) ([]TruthEventDraft, error) {
	h, ok := d.handlers[item.Kind]
	if !ok {
		return nil, nil
	}
	return h(ctx, item.When, item.Payload)
}
