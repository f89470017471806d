package topology

import (
	"context"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
)

// TickMode selects how Materialize filters events by tick, per spec
// section 4.3.
type TickMode int

const (
	// Auto uses BreakOnFirstBeyondTick when the store is known
	// tick-monotone, else ScanAll. No mechanism for a store to prove
	// monotonicity is specified (spec section 9 open question), so this
	// implementation conservatively always resolves Auto to ScanAll.
	Auto TickMode = iota
	ScanAll
	BreakOnFirstBeyondTick
)

// Materialize folds stream's topology events up to and including
// targetTick into an immutable Snapshot.
func Materialize(ctx context.Context, store *Store, stream ids.StreamIdentity, targetTick ids.Tick, mode TickMode) (*Snapshot, error) {
	events, err := store.Read(ctx, stream, 0)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		SchemaVersion: 1,
		Plates:        make(map[ids.PlateID]Plate),
		Boundaries:    make(map[ids.BoundaryID]Boundary),
		Junctions:     make(map[ids.JunctionID]Junction),
	}

	effectiveMode := mode
	if effectiveMode == Auto {
		effectiveMode = ScanAll
	}

	for _, ev := range events {
		if ev.Tick > targetTick {
			if effectiveMode == BreakOnFirstBeyondTick {
				break
			}
			continue
		}
		applyEvent(snap, ev.Payload)
		snap.LastEventSequence = ev.Sequence
	}
	return snap, nil
}

func applyEvent(snap *Snapshot, p Payload) {
	switch p.Kind {
	case KindPlateCreated:
		if _, exists := snap.Plates[p.PlateID]; !exists {
			snap.Plates[p.PlateID] = Plate{ID: p.PlateID}
		}
	case KindPlateRetired:
		plate := snap.Plates[p.PlateID]
		plate.ID = p.PlateID
		plate.IsRetired = true
		plate.RetirementReason = p.RetirementReason
		snap.Plates[p.PlateID] = plate

	case KindBoundaryCreated:
		if _, exists := snap.Boundaries[p.BoundaryID]; !exists {
			snap.Boundaries[p.BoundaryID] = Boundary{
				ID:       p.BoundaryID,
				Left:     p.LeftPlateID,
				Right:    p.RightPlateID,
				Type:     p.BoundaryType,
				Geometry: p.Geometry,
			}
		}
	case KindBoundaryTypeChanged:
		b := snap.Boundaries[p.BoundaryID]
		b.ID = p.BoundaryID
		b.Type = p.BoundaryType
		snap.Boundaries[p.BoundaryID] = b
	case KindBoundaryGeometryUpdated:
		b := snap.Boundaries[p.BoundaryID]
		b.ID = p.BoundaryID
		b.Geometry = p.Geometry
		snap.Boundaries[p.BoundaryID] = b
	case KindBoundaryRetired:
		b := snap.Boundaries[p.BoundaryID]
		b.ID = p.BoundaryID
		b.IsRetired = true
		b.RetirementReason = p.RetirementReason
		snap.Boundaries[p.BoundaryID] = b

	case KindJunctionCreated:
		if _, exists := snap.Junctions[p.JunctionID]; !exists {
			snap.Junctions[p.JunctionID] = Junction{
				ID:          p.JunctionID,
				BoundaryIDs: p.BoundaryIDs,
				Location:    p.Location,
			}
		}
	case KindJunctionUpdated:
		j := snap.Junctions[p.JunctionID]
		j.ID = p.JunctionID
		j.BoundaryIDs = p.BoundaryIDs
		j.Location = p.Location
		snap.Junctions[p.JunctionID] = j
	case KindJunctionRetired:
		j := snap.Junctions[p.JunctionID]
		j.ID = p.JunctionID
		j.IsRetired = true
		j.RetirementReason = p.RetirementReason
		snap.Junctions[p.JunctionID] = j
	}
}
