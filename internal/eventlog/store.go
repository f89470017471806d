package eventlog

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/kv"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/pkg/ferrors"
)

// TickPolicy governs how an append call reacts to a non-monotone tick
// sequence, per spec section 4.2.
type TickPolicy int

const (
	TickAllow TickPolicy = iota
	TickWarn
	TickReject
)

func (p TickPolicy) String() string {
	switch p {
	case TickAllow:
		return "allow"
	case TickWarn:
		return "warn"
	case TickReject:
		return "reject"
	default:
		return "unknown"
	}
}

// ParseTickPolicy parses the CLI/config string form of a TickPolicy.
func ParseTickPolicy(s string) (TickPolicy, error) {
	switch s {
	case "allow", "":
		return TickAllow, nil
	case "warn":
		return TickWarn, nil
	case "reject":
		return TickReject, nil
	default:
		return TickAllow, &ferrors.InvalidArgument{Field: "tick_policy", Reason: fmt.Sprintf("unknown value %q", s)}
	}
}

// AppendOptions configures a single Append call.
type AppendOptions struct {
	TickPolicy TickPolicy
}

// EventDraft is a caller-constructed event awaiting a sequence and hash.
type EventDraft struct {
	Tick    int64
	Payload []byte
}

// Store is the generic hash-chained event store every domain-specific
// store (topology, kinematics) wraps. Its lock serializes appends to the
// KV writer. The DES tie_break counter is not guarded by this lock:
// des.Scheduler increments it under the Scheduler's own mutex.
type Store struct {
	kv    kv.Store
	codec Codec
	log   *logrus.Entry

	mu sync.Mutex
}

// NewStore builds a Store over the given KV substrate using MsgpackCodec,
// matching the on-disk wire format spec section 6 mandates.
func NewStore(backing kv.Store, log *logrus.Entry) *Store {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Store{kv: backing, codec: MsgpackCodec{}, log: log}
}

// LastSequence returns the stream's last written sequence and whether the
// stream has ever been written to.
func (s *Store) LastSequence(ctx context.Context, stream ids.StreamIdentity) (uint64, bool, error) {
	head, ok, err := s.readHead(ctx, stream)
	if err != nil {
		return 0, false, err
	}
	if !ok {
		return 0, false, nil
	}
	return head.LastSequence, true, nil
}

// Head returns the stream's current tail pointer (last sequence, chain
// hash, tick), if the stream has ever been written to.
func (s *Store) Head(ctx context.Context, stream ids.StreamIdentity) (Head, bool, error) {
	return s.readHead(ctx, stream)
}

func (s *Store) readHead(ctx context.Context, stream ids.StreamIdentity) (Head, bool, error) {
	raw, err := s.kv.Get(ctx, headKey(stream))
	if err == kv.ErrNotFound {
		return Head{}, false, nil
	}
	if err != nil {
		return Head{}, false, err
	}
	if len(raw) == 8 {
		// Legacy 8-byte head: last_sequence only. Upgrade opportunistically
		// by treating hash/tick as unknown (zero); the next Append call
		// will persist the full 3-field head.
		return legacyHead(raw), true, nil
	}
	h, err := s.codec.UnmarshalHead(raw)
	if err != nil {
		return Head{}, false, err
	}
	return h, true, nil
}

// Append writes events atomically: either every record and the advanced
// head land, or none do. The hash chain continues from the current head
// (or genesis if the stream is empty).
func (s *Store) Append(ctx context.Context, stream ids.StreamIdentity, drafts []EventDraft, opts AppendOptions) ([]Envelope, error) {
	if stream.IsZero() {
		return nil, &ferrors.InvalidArgument{Field: "stream", Reason: "stream identity must not be zero"}
	}
	if len(drafts) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	head, hasHead, err := s.readHead(ctx, stream)
	if err != nil {
		return nil, ferrors.Wrap(err, "eventlog: read head")
	}

	prevHash := ZeroHash
	nextSeq := uint64(0)
	priorTick := int64(0)
	if hasHead {
		prevHash = head.LastHash
		nextSeq = head.LastSequence + 1
		priorTick = head.LastTick
	}

	envelopes := make([]Envelope, 0, len(drafts))
	for _, d := range drafts {
		if err := s.checkTickPolicy(stream, opts.TickPolicy, priorTick, d.Tick, nextSeq); err != nil {
			return nil, err
		}
		e := Envelope{
			SchemaVersion: SchemaVersion,
			Sequence:      nextSeq,
			Tick:          d.Tick,
			PreviousHash:  prevHash,
			Payload:       d.Payload,
		}
		hash, err := computeHash(s.codec, e)
		if err != nil {
			return nil, ferrors.Wrap(err, "eventlog: compute hash")
		}
		e.Hash = hash
		envelopes = append(envelopes, e)

		prevHash = hash
		priorTick = d.Tick
		nextSeq++
	}

	newHead := Head{LastSequence: envelopes[len(envelopes)-1].Sequence, LastHash: prevHash, LastTick: priorTick}

	caps := s.kv.Capabilities()
	if caps.AtomicBatch {
		err = s.kv.Batch(ctx, func(b kv.Batch) error {
			return s.writeBatch(stream, envelopes, newHead, b)
		})
	} else {
		err = s.writeSerial(ctx, stream, envelopes, newHead)
	}
	if err != nil {
		return nil, ferrors.Wrap(err, "eventlog: append")
	}

	s.log.WithFields(logrus.Fields{
		"stream": stream.String(),
		"count":  len(envelopes),
		"from":   envelopes[0].Sequence,
		"to":     newHead.LastSequence,
	}).Info("eventlog: appended events")

	return envelopes, nil
}

func (s *Store) checkTickPolicy(stream ids.StreamIdentity, policy TickPolicy, priorTick, tick int64, seq uint64) error {
	if tick >= priorTick {
		return nil
	}
	switch policy {
	case TickReject:
		return &ferrors.TickMonotonicityViolation{
			Stream:        stream.String(),
			PriorTick:     priorTick,
			OffendingTick: tick,
			OffendingSeq:  seq,
		}
	case TickWarn:
		s.log.WithFields(logrus.Fields{
			"stream":     stream.String(),
			"prior_tick": priorTick,
			"tick":       tick,
			"sequence":   seq,
		}).Warn("eventlog: non-monotone tick accepted under warn policy")
		return nil
	default:
		return nil
	}
}

func (s *Store) writeBatch(stream ids.StreamIdentity, envelopes []Envelope, head Head, b kv.Batch) error {
	for _, e := range envelopes {
		raw, err := s.codec.MarshalEnvelope(e)
		if err != nil {
			return err
		}
		if err := b.Set(eventKey(stream, e.Sequence), raw); err != nil {
			return err
		}
	}
	rawHead, err := s.codec.MarshalHead(head)
	if err != nil {
		return err
	}
	return b.Set(headKey(stream), rawHead)
}

func (s *Store) writeSerial(ctx context.Context, stream ids.StreamIdentity, envelopes []Envelope, head Head) error {
	for _, e := range envelopes {
		raw, err := s.codec.MarshalEnvelope(e)
		if err != nil {
			return err
		}
		if err := s.kv.Set(ctx, eventKey(stream, e.Sequence), raw); err != nil {
			return err
		}
	}
	rawHead, err := s.codec.MarshalHead(head)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, headKey(stream), rawHead)
}

func legacyHead(raw []byte) Head {
	var seq uint64
	for _, b := range raw {
		seq = seq<<8 | uint64(b)
	}
	return Head{LastSequence: seq, LastHash: ZeroHash, LastTick: 0}
}
