package kinematics

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/eventlog"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/kv"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/pkg/ferrors"
)

// DecodedEvent pairs a kinematics Payload with the envelope metadata a
// materializer needs.
type DecodedEvent struct {
	Sequence uint64
	Tick     ids.Tick
	Payload  Payload
}

// Store is the kinematics-domain event store.
type Store struct {
	eng *eventlog.Store
}

// NewStore builds a kinematics Store over the given KV substrate.
func NewStore(backing kv.Store, log *logrus.Entry) *Store {
	return &Store{eng: eventlog.NewStore(backing, log)}
}

// Append encodes and appends one or more kinematics events, validating the
// MotionSegmentUpserted tick_a < tick_b invariant before anything is
// written.
func (s *Store) Append(ctx context.Context, stream ids.StreamIdentity, events []Payload, ticks []ids.Tick, opts eventlog.AppendOptions) error {
	drafts := make([]eventlog.EventDraft, len(events))
	for i, e := range events {
		if e.Kind == KindMotionSegmentUpserted && e.TickA >= e.TickB {
			return &ferrors.InvalidArgument{Field: "tick_a/tick_b", Reason: "motion segment requires tick_a < tick_b"}
		}
		raw, err := Encode(e)
		if err != nil {
			return err
		}
		drafts[i] = eventlog.EventDraft{Tick: int64(ticks[i]), Payload: raw}
	}
	_, err := s.eng.Append(ctx, stream, drafts, opts)
	return err
}

// Read streams decoded kinematics events from fromSequenceInclusive to the
// end of the stream, verifying the hash chain as it goes.
func (s *Store) Read(ctx context.Context, stream ids.StreamIdentity, fromSequenceInclusive uint64) ([]DecodedEvent, error) {
	r, err := s.eng.Read(ctx, stream, fromSequenceInclusive)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var out []DecodedEvent
	for r.Next() {
		env := r.Envelope()
		p, err := Decode(env.Payload)
		if err != nil {
			return nil, err
		}
		out = append(out, DecodedEvent{Sequence: env.Sequence, Tick: ids.Tick(env.Tick), Payload: p})
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// LastSequence reports the stream's last written sequence, if any.
func (s *Store) LastSequence(ctx context.Context, stream ids.StreamIdentity) (uint64, bool, error) {
	return s.eng.LastSequence(ctx, stream)
}
