// Package eventlog implements the hash-chained event record format and the
// generic append/read engine every domain-specific event store (topology,
// kinematics) is built on top of.
package eventlog

import "fmt"

// SchemaVersion is the single on-disk schema version this module
// understands. Spec section 7 treats any other value as fatal.
const SchemaVersion int32 = 1

// ZeroHash is the genesis previous_hash: 32 zero bytes.
var ZeroHash [32]byte

// Envelope is the common, never-mutated-after-append event record. Tick is
// carried inside the hashed preimage alongside the fields spec section 4.1
// names explicitly (schema_version, sequence, previous_hash, payload_bytes)
// so that a tampered tick is caught by chain verification exactly like a
// tampered payload.
type Envelope struct {
	SchemaVersion int32
	Sequence      uint64
	Tick          int64
	PreviousHash  [32]byte
	Hash          [32]byte
	Payload       []byte
}

// wireEnvelope is the fixed-arity array encoding of Envelope used for both
// the preimage and on-disk record. Array encoding (not map encoding) keeps
// the byte representation stable regardless of struct field reordering in
// later versions of this code, which is what the hash chain requires.
type wireEnvelope struct {
	_msgpack struct{} `msgpack:",as_array"`

	SchemaVersion int32
	Sequence      uint64
	Tick          int64
	PreviousHash  []byte
	Payload       []byte
}

// wireRecord is the on-disk record: the wireEnvelope fields plus the
// computed hash.
type wireRecord struct {
	_msgpack struct{} `msgpack:",as_array"`

	SchemaVersion int32
	Sequence      uint64
	Tick          int64
	PreviousHash  []byte
	Hash          []byte
	Payload       []byte
}

func (e Envelope) toWireRecord() wireRecord {
	return wireRecord{
		SchemaVersion: e.SchemaVersion,
		Sequence:      e.Sequence,
		Tick:          e.Tick,
		PreviousHash:  e.PreviousHash[:],
		Hash:          e.Hash[:],
		Payload:       e.Payload,
	}
}

func (r wireRecord) toEnvelope() (Envelope, error) {
	var e Envelope
	if len(r.PreviousHash) != 32 {
		return e, fmt.Errorf("eventlog: previous_hash has %d bytes, want 32", len(r.PreviousHash))
	}
	if len(r.Hash) != 32 {
		return e, fmt.Errorf("eventlog: hash has %d bytes, want 32", len(r.Hash))
	}
	e.SchemaVersion = r.SchemaVersion
	e.Sequence = r.Sequence
	e.Tick = r.Tick
	copy(e.PreviousHash[:], r.PreviousHash)
	copy(e.Hash[:], r.Hash)
	e.Payload = r.Payload
	return e, nil
}

// Head is the per-stream tail pointer: the last sequence, its hash, and its
// tick.
type Head struct {
	LastSequence uint64
	LastHash     [32]byte
	LastTick     int64
}

type wireHead struct {
	_msgpack struct{} `msgpack:",as_array"`

	LastSequence uint64
	LastHash     []byte
	LastTick     int64
}

func (h Head) toWireHead() wireHead {
	return wireHead{LastSequence: h.LastSequence, LastHash: h.LastHash[:], LastTick: h.LastTick}
}

func (w wireHead) toHead() (Head, error) {
	var h Head
	if len(w.LastHash) != 32 {
		return h, fmt.Errorf("eventlog: head last_hash has %d bytes, want 32", len(w.LastHash))
	}
	h.LastSequence = w.LastSequence
	copy(h.LastHash[:], w.LastHash)
	h.LastTick = w.LastTick
	return h, nil
}
