package topology

import (
	"sort"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
)

// wireSnapshot is the on-disk form of a Snapshot: plates/boundaries/
// junctions as slices in canonical ascending-ID order, per spec section
// 4.3, rather than maps (whose iteration and wire order are
// nondeterministic).
type wireSnapshot struct {
	SchemaVersion     int32
	Plates            []Plate
	Boundaries        []Boundary
	Junctions         []Junction
	LastEventSequence uint64
}

// EncodeSnapshot serializes snap into its canonical wire form.
func EncodeSnapshot(snap *Snapshot) ([]byte, error) {
	w := wireSnapshot{SchemaVersion: snap.SchemaVersion, LastEventSequence: snap.LastEventSequence}

	for _, p := range snap.Plates {
		w.Plates = append(w.Plates, p)
	}
	sort.Slice(w.Plates, func(i, j int) bool { return w.Plates[i].ID.Less(w.Plates[j].ID) })

	for _, b := range snap.Boundaries {
		w.Boundaries = append(w.Boundaries, b)
	}
	sort.Slice(w.Boundaries, func(i, j int) bool { return w.Boundaries[i].ID.Less(w.Boundaries[j].ID) })

	for _, j := range snap.Junctions {
		w.Junctions = append(w.Junctions, j)
	}
	sort.Slice(w.Junctions, func(i, k int) bool { return w.Junctions[i].ID.Less(w.Junctions[k].ID) })

	return msgpack.Marshal(w)
}

// DecodeSnapshot deserializes a canonical wire-form snapshot back into its
// map-based in-memory Snapshot.
func DecodeSnapshot(b []byte) (*Snapshot, error) {
	var w wireSnapshot
	if err := msgpack.Unmarshal(b, &w); err != nil {
		return nil, err
	}
	snap := &Snapshot{
		SchemaVersion:     w.SchemaVersion,
		Plates:            make(map[ids.PlateID]Plate, len(w.Plates)),
		Boundaries:        make(map[ids.BoundaryID]Boundary, len(w.Boundaries)),
		Junctions:         make(map[ids.JunctionID]Junction, len(w.Junctions)),
		LastEventSequence: w.LastEventSequence,
	}
	for _, p := range w.Plates {
		snap.Plates[p.ID] = p
	}
	for _, b := range w.Boundaries {
		snap.Boundaries[b.ID] = b
	}
	for _, j := range w.Junctions {
		snap.Junctions[j.ID] = j
	}
	return snap, nil
}
