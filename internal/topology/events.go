// Package topology is the hash-chained event store and materializer for
// plate/boundary/junction truth events.
package topology

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
)

// Kind discriminates the topology event sum type. A short string
// discriminator, per the polymorphic-events design note, rather than an
// inheritance hierarchy.
type Kind string

const (
	KindPlateCreated          Kind = "PlateCreated"
	KindPlateRetired          Kind = "PlateRetired"
	KindBoundaryCreated       Kind = "BoundaryCreated"
	KindBoundaryTypeChanged   Kind = "BoundaryTypeChanged"
	KindBoundaryGeometryUpdated Kind = "BoundaryGeometryUpdated"
	KindBoundaryRetired       Kind = "BoundaryRetired"
	KindJunctionCreated       Kind = "JunctionCreated"
	KindJunctionUpdated       Kind = "JunctionUpdated"
	KindJunctionRetired       Kind = "JunctionRetired"
)

// BoundaryType is a finite enum of plate-boundary kinds.
type BoundaryType string

const (
	BoundaryConvergent BoundaryType = "convergent"
	BoundaryDivergent  BoundaryType = "divergent"
	BoundaryTransform  BoundaryType = "transform"
)

// Geometry is the boundary's polyline on the sphere, ordered lon/lat pairs
// in degrees. The reconstruction solver treats this as the arc the
// boundary traces; the geometry library that produces/clips it is an
// external collaborator per spec section 1.
type Geometry struct {
	Points []GeoPoint
}

// GeoPoint is a single lon/lat sample.
type GeoPoint struct {
	LonDeg float64
	LatDeg float64
}

// Payload is the decoded, kind-tagged body of a topology event. Only the
// fields relevant to Kind are populated; this mirrors the source system's
// tagged-variant design rather than introducing a Go interface hierarchy
// per kind, which would let ephemeral per-kind types leak across package
// boundaries.
type Payload struct {
	Kind Kind

	PlateID          ids.PlateID
	RetirementReason string

	BoundaryID   ids.BoundaryID
	LeftPlateID  ids.PlateID
	RightPlateID ids.PlateID
	BoundaryType BoundaryType
	Geometry     Geometry

	JunctionID  ids.JunctionID
	BoundaryIDs []ids.BoundaryID
	Location    GeoPoint
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
