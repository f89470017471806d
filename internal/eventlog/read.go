package eventlog

import (
	"bytes"
	"context"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/kv"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/pkg/ferrors"
)

// Reader lazily yields events from a stream starting at a given sequence,
// verifying the hash chain as it goes. A broken chain is fatal and
// surfaces as HashChainCorruption from Next/Err.
type Reader struct {
	store        *Store
	stream       ids.StreamIdentity
	ctx          context.Context
	it           kv.Iterator
	expectedSeq  uint64
	expectedPrev [32]byte
	first        bool
	cur          Envelope
	err          error
	closed       bool
	lastSeq      uint64
	hasLastSeq   bool
}

// Read returns a lazy Reader over [fromSequenceInclusive, end of stream).
// It prefers an iterator seek when the backing KV store supports ordered
// iteration, falling back to point reads otherwise, per spec section 4.2.
func (s *Store) Read(ctx context.Context, stream ids.StreamIdentity, fromSequenceInclusive uint64) (*Reader, error) {
	if stream.IsZero() {
		return nil, &ferrors.InvalidArgument{Field: "stream", Reason: "stream identity must not be zero"}
	}

	r := &Reader{store: s, stream: stream, ctx: ctx, expectedSeq: fromSequenceInclusive, first: true}

	if lastSeq, hasHead, err := s.LastSequence(ctx, stream); err != nil {
		return nil, err
	} else if hasHead {
		r.lastSeq, r.hasLastSeq = lastSeq, true
	}

	if fromSequenceInclusive > 0 {
		prevRaw, err := s.kv.Get(ctx, eventKey(stream, fromSequenceInclusive-1))
		if err == nil {
			prevEnv, decErr := s.codec.UnmarshalEnvelope(prevRaw)
			if decErr == nil {
				r.expectedPrev = prevEnv.Hash
			}
		}
	}

	caps := s.kv.Capabilities()
	if caps.OrderedIteration {
		it, err := s.kv.Iterator(ctx, eventRangeStart(stream, fromSequenceInclusive), eventRangeEnd(stream))
		if err != nil {
			return nil, err
		}
		r.it = it
	}
	return r, nil
}

// Next advances the reader. It returns false at end of stream or on error;
// callers must check Err() after a false return.
func (r *Reader) Next() bool {
	if r.closed || r.err != nil {
		return false
	}

	var raw []byte
	if r.it != nil {
		if !r.it.Next() {
			if err := r.it.Error(); err != nil {
				r.err = err
			} else if r.hasLastSeq && r.expectedSeq <= r.lastSeq {
				r.err = &ferrors.HashChainCorruption{Stream: r.stream.String(), Seq: r.expectedSeq, Reason: "missing record in expected sequence range"}
			}
			return false
		}
		if !bytes.Equal(r.it.Key(), eventKey(r.stream, r.expectedSeq)) {
			r.err = &ferrors.HashChainCorruption{Stream: r.stream.String(), Seq: r.expectedSeq, Reason: "missing record in expected sequence range"}
			return false
		}
		raw = r.it.Value()
	} else {
		v, err := r.store.kv.Get(r.ctx, eventKey(r.stream, r.expectedSeq))
		if err == kv.ErrNotFound {
			if r.hasLastSeq && r.expectedSeq <= r.lastSeq {
				r.err = &ferrors.HashChainCorruption{Stream: r.stream.String(), Seq: r.expectedSeq, Reason: "missing record in expected sequence range"}
			}
			return false
		}
		if err != nil {
			r.err = err
			return false
		}
		raw = v
	}

	env, err := r.store.codec.UnmarshalEnvelope(raw)
	if err != nil {
		r.err = &ferrors.HashChainCorruption{Stream: r.stream.String(), Seq: r.expectedSeq, Reason: "malformed record: " + err.Error()}
		return false
	}
	if env.SchemaVersion != SchemaVersion {
		r.err = &ferrors.SchemaVersionUnsupported{Got: env.SchemaVersion, Want: SchemaVersion}
		return false
	}
	if env.Sequence != r.expectedSeq {
		r.err = &ferrors.HashChainCorruption{Stream: r.stream.String(), Seq: r.expectedSeq, Reason: "record sequence does not match its key"}
		return false
	}
	if !r.first && env.PreviousHash != r.expectedPrev {
		r.err = &ferrors.HashChainCorruption{Stream: r.stream.String(), Seq: r.expectedSeq, Reason: "previous_hash does not match prior record's hash"}
		return false
	}
	computed, err := computeHash(r.store.codec, env)
	if err != nil {
		r.err = err
		return false
	}
	if computed != env.Hash {
		r.err = &ferrors.HashChainCorruption{Stream: r.stream.String(), Seq: r.expectedSeq, Reason: "hash does not match recomputed preimage hash"}
		return false
	}

	r.cur = env
	r.expectedPrev = env.Hash
	r.expectedSeq++
	r.first = false
	return true
}

// Envelope returns the envelope most recently yielded by Next.
func (r *Reader) Envelope() Envelope { return r.cur }

// Err returns the first error encountered, if any.
func (r *Reader) Err() error { return r.err }

// Close releases any resources held by the reader (e.g. an open KV
// iterator transaction).
func (r *Reader) Close() error {
	r.closed = true
	if r.it != nil {
		return r.it.Close()
	}
	return nil
}
