package eventlog

import (
	"encoding/hex"
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec frames an Envelope/Head to and from bytes. MsgpackCodec is the
// on-disk default mandated by spec section 6; JSONCodec exists only for
// CLI pretty-printing and debugging and must never be used for storage.
type Codec interface {
	MarshalEnvelope(Envelope) ([]byte, error)
	UnmarshalEnvelope([]byte) (Envelope, error)
	MarshalHead(Head) ([]byte, error)
	UnmarshalHead([]byte) (Head, error)
	// MarshalPreimage encodes the fields covered by the hash (everything
	// except the hash itself) using the same fixed-arity array framing as
	// MarshalEnvelope, so the preimage bytes are stable regardless of
	// codec field ordering.
	MarshalPreimage(schemaVersion int32, sequence uint64, tick int64, previousHash [32]byte, payload []byte) ([]byte, error)
}

// MsgpackCodec is the default, on-disk codec.
type MsgpackCodec struct{}

func (MsgpackCodec) MarshalEnvelope(e Envelope) ([]byte, error) {
	return msgpack.Marshal(e.toWireRecord())
}

func (MsgpackCodec) UnmarshalEnvelope(b []byte) (Envelope, error) {
	var w wireRecord
	if err := msgpack.Unmarshal(b, &w); err != nil {
		return Envelope{}, err
	}
	return w.toEnvelope()
}

func (MsgpackCodec) MarshalHead(h Head) ([]byte, error) {
	return msgpack.Marshal(h.toWireHead())
}

func (MsgpackCodec) UnmarshalHead(b []byte) (Head, error) {
	var w wireHead
	if err := msgpack.Unmarshal(b, &w); err != nil {
		return Head{}, err
	}
	return w.toHead()
}

func (MsgpackCodec) MarshalPreimage(schemaVersion int32, sequence uint64, tick int64, previousHash [32]byte, payload []byte) ([]byte, error) {
	return msgpack.Marshal(wireEnvelope{
		SchemaVersion: schemaVersion,
		Sequence:      sequence,
		Tick:          tick,
		PreviousHash:  previousHash[:],
		Payload:       payload,
	})
}

// JSONCodec is a debug/pretty-print-only codec. It is never wired into a
// Store, and no package in this module calls it.
type JSONCodec struct{}

type jsonEnvelope struct {
	SchemaVersion int32  `json:"schema_version"`
	Sequence      uint64 `json:"sequence"`
	Tick          int64  `json:"tick"`
	PreviousHash  string `json:"previous_hash"`
	Hash          string `json:"hash"`
	Payload       []byte `json:"payload"`
}

func (JSONCodec) MarshalEnvelope(e Envelope) ([]byte, error) {
	return json.Marshal(jsonEnvelope{
		SchemaVersion: e.SchemaVersion,
		Sequence:      e.Sequence,
		Tick:          e.Tick,
		PreviousHash:  hex.EncodeToString(e.PreviousHash[:]),
		Hash:          hex.EncodeToString(e.Hash[:]),
		Payload:       e.Payload,
	})
}

func (JSONCodec) UnmarshalEnvelope(b []byte) (Envelope, error) {
	var j jsonEnvelope
	if err := json.Unmarshal(b, &j); err != nil {
		return Envelope{}, err
	}
	e := Envelope{SchemaVersion: j.SchemaVersion, Sequence: j.Sequence, Tick: j.Tick, Payload: j.Payload}
	if _, err := hex.Decode(e.PreviousHash[:], []byte(j.PreviousHash)); err != nil {
		return Envelope{}, err
	}
	if _, err := hex.Decode(e.Hash[:], []byte(j.Hash)); err != nil {
		return Envelope{}, err
	}
	return e, nil
}

func (JSONCodec) MarshalHead(h Head) ([]byte, error) {
	return json.Marshal(struct {
		LastSequence uint64 `json:"last_sequence"`
		LastHash     string `json:"last_hash"`
		LastTick     int64  `json:"last_tick"`
	}{h.LastSequence, hex.EncodeToString(h.LastHash[:]), h.LastTick})
}

func (JSONCodec) UnmarshalHead(b []byte) (Head, error) {
	var j struct {
		LastSequence uint64 `json:"last_sequence"`
		LastHash     string `json:"last_hash"`
		LastTick     int64  `json:"last_tick"`
	}
	if err := json.Unmarshal(b, &j); err != nil {
		return Head{}, err
	}
	h := Head{LastSequence: j.LastSequence, LastTick: j.LastTick}
	if _, err := hex.Decode(h.LastHash[:], []byte(j.LastHash)); err != nil {
		return Head{}, err
	}
	return h, nil
}

func (JSONCodec) MarshalPreimage(schemaVersion int32, sequence uint64, tick int64, previousHash [32]byte, payload []byte) ([]byte, error) {
	return MsgpackCodec{}.MarshalPreimage(schemaVersion, sequence, tick, previousHash, payload)
}
