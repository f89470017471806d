package topology

import "github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"

// Plate is the materialized state of a single plate.
type Plate struct {
	ID               ids.PlateID
	IsRetired        bool
	RetirementReason string
}

// Boundary is the materialized state of a single plate boundary.
type Boundary struct {
	ID               ids.BoundaryID
	Left, Right      ids.PlateID
	Type             BoundaryType
	Geometry         Geometry
	IsRetired        bool
	RetirementReason string
}

// Junction is the materialized state of a single plate-boundary junction.
type Junction struct {
	ID               ids.JunctionID
	BoundaryIDs      []ids.BoundaryID
	Location         GeoPoint
	IsRetired        bool
	RetirementReason string
}

// Snapshot is the immutable, read-only state view returned by
// Materialize. It satisfies the "state views as capabilities" design note:
// callers only ever read from it; no mutable state escapes.
type Snapshot struct {
	SchemaVersion     int32
	Plates            map[ids.PlateID]Plate
	Boundaries        map[ids.BoundaryID]Boundary
	Junctions         map[ids.JunctionID]Junction
	LastEventSequence uint64
}

// GetPlate is the narrow read capability a velocity/reconstruction
// consumer needs, rather than the whole Snapshot map.
func (s *Snapshot) GetPlate(id ids.PlateID) (Plate, bool) {
	p, ok := s.Plates[id]
	return p, ok
}

// GetBoundary returns a single boundary by id.
func (s *Snapshot) GetBoundary(id ids.BoundaryID) (Boundary, bool) {
	b, ok := s.Boundaries[id]
	return b, ok
}

// ActiveBoundaries returns all non-retired boundaries, in no particular
// order; callers that need canonical order should sort by BoundaryID
// themselves (BoundaryID.Less gives that order).
func (s *Snapshot) ActiveBoundaries() []Boundary {
	out := make([]Boundary, 0, len(s.Boundaries))
	for _, b := range s.Boundaries {
		if !b.IsRetired {
			out = append(out, b)
		}
	}
	return out
}
