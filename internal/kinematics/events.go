// Package kinematics is the hash-chained event store, materializer, and
// rotation evaluator for per-plate motion segments.
package kinematics

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
)

// Kind discriminates the kinematics event sum type.
type Kind string

const (
	KindMotionSegmentUpserted    Kind = "MotionSegmentUpserted"
	KindMotionSegmentRetired     Kind = "MotionSegmentRetired"
	KindPlateMotionModelAssigned Kind = "PlateMotionModelAssigned"
)

// Payload is the decoded, kind-tagged body of a kinematics event.
type Payload struct {
	Kind Kind

	PlateID       ids.PlateID
	SegmentID     ids.MotionSegmentID
	TickA, TickB  ids.Tick
	StageRotation ids.StageRotation

	ModelID ids.ModelID
}

// Encode serializes a Payload to the bytes stored as an event's
// payload_bytes.
func Encode(p Payload) ([]byte, error) {
	return msgpack.Marshal(p)
}

// Decode deserializes payload_bytes back into a Payload.
func Decode(b []byte) (Payload, error) {
	var p Payload
	err := msgpack.Unmarshal(b, &p)
	return p, err
}
