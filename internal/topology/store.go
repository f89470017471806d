package topology

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/eventlog"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/kv"
)

// DecodedEvent pairs a topology Payload with the envelope metadata
// (sequence, tick) a materializer needs.
type DecodedEvent struct {
	Sequence uint64
	Tick     ids.Tick
	Payload  Payload
}

// Store is the topology-domain event store: the generic eventlog.Store
// specialized to topology Payload encode/decode.
type Store struct {
	eng *eventlog.Store
}

// NewStore builds a topology Store over the given KV substrate.
func NewStore(backing kv.Store, log *logrus.Entry) *Store {
	return &Store{eng: eventlog.NewStore(backing, log)}
}

// Append encodes and appends one or more topology events under the given
// stream, per the tick policy in opts.
func (s *Store) Append(ctx context.Context, stream ids.StreamIdentity, events []Payload, ticks []ids.Tick, opts eventlog.AppendOptions) error {
	drafts := make([]eventlog.EventDraft, len(events))
	for i, e := range events {
		raw, err := Encode(e)
		if err != nil {
			return err
		}
		drafts[i] = eventlog.EventDraft{Tick: int64(ticks[i]), Payload: raw}
	}
	_, err := s.eng.Append(ctx, stream, drafts, opts)
	return err
}

// Read streams decoded topology events from fromSequenceInclusive to the
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

// StreamHash returns the stream's current hash-chain tip: the same
// 32-byte hash that terminates its append-only event log. Reconstruction
// provenance carries this as the topology_stream_hash, so two
// reconstructions are provably against the same topology state iff this
// hash matches, independent of sequence-number bookkeeping. An empty
// stream reports the zero hash.
func (s *Store) StreamHash(ctx context.Context, stream ids.StreamIdentity) ([32]byte, error) {
	head, ok, err := s.eng.Head(ctx, stream)
	if err != nil {
		return [32]byte{}, err
	}
	if !ok {
		return [32]byte{}, nil
	}
	return head.LastHash, nil
}
