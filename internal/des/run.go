package des

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/eventlog"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
)

// EventAppender is the subset of eventlog.Store's interface the run loop
// needs; *eventlog.Store satisfies this directly.
type EventAppender interface {
	Append(ctx context.Context, stream ids.StreamIdentity, drafts []eventlog.EventDraft, opts eventlog.AppendOptions) ([]eventlog.Envelope, error)
}

// RunOptions bounds a single Run call to a tick window.
type RunOptions struct {
	StartTick ids.Tick
	EndTick   ids.Tick
}

// Run repeatedly peeks the queue, stopping once it is empty or its head's
// When exceeds EndTick; otherwise dispatches the head item, appends the
// resulting truth events with EnforceMonotonicity (TickReject), per spec
// section 4.5, and only then dequeues it. A dispatcher failure aborts the
// run immediately without appending any of that item's drafts; a store
// append failure is fatal and leaves the queue in place so a retry can
// resume.
func Run(ctx context.Context, sched *Scheduler, dispatcher *Dispatcher, appender EventAppender, opts RunOptions, log *logrus.Entry) error {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		item, ok := sched.Peek()
		if !ok || item.When > opts.EndTick {
			return nil
		}

		drafts, err := dispatcher.Dispatch(ctx, item)
		if err != nil {
			return err
		}

		for _, d := range groupByStream(drafts) {
			eventDrafts := make([]eventlog.EventDraft, len(d.drafts))
			for i, td := range d.drafts {
				eventDrafts[i] = eventlog.EventDraft{Tick: int64(td.Tick), Payload: td.Payload}
			}
			if _, err := appender.Append(ctx, d.stream, eventDrafts, eventlog.AppendOptions{TickPolicy: eventlog.TickReject}); err != nil {
				return err
			}
		}

		sched.Dequeue()

		log.WithFields(logrus.Fields{
			"when":   item.When,
			"sphere": item.Sphere,
			"kind":   item.Kind,
			"events": len(drafts),
		}).Debug("des: dispatched scheduled work item")
	}
}

type streamGroup struct {
	stream ids.StreamIdentity
	drafts []TruthEventDraft
}

// groupByStream preserves first-seen stream order and within-stream
// relative order, which keeps each stream's append call internally
// sequence-ordered exactly as the dispatcher produced them.
func groupByStream(drafts []TruthEventDraft) []streamGroup {
	var groups []streamGroup
	index := make(map[ids.StreamIdentity]int)
	for _, d := range drafts {
		i, ok := index[d.Stream]
		if !ok {
			i = len(groups)
			index[d.Stream] = i
			groups = append(groups, streamGroup{stream: d.Stream})
		}
		groups[i].drafts = append(groups[i].drafts, d)
	}
	return groups
}
