package reconstruct

import (
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/topology"
)

// NodeIdx and EdgeIdx are dense, ephemeral integer indices into an
// Arrangement's arena of nodes (junctions) and edges (boundaries). Per the
// arena-and-index design note, these indices must never escape this
// package; PlateID/BoundaryID/JunctionID are the only permitted
// cross-boundary references.
type NodeIdx int
type EdgeIdx int

// edgeRecord is one boundary realized in the arena.
type edgeRecord struct {
	BoundaryID ids.BoundaryID
	Left       ids.PlateID
	Right      ids.PlateID
	Points     []topology.GeoPoint
}

// nodeRecord is one junction realized in the arena.
type nodeRecord struct {
	JunctionID  ids.JunctionID
	BoundaryIDs []ids.BoundaryID
}

// Arrangement is the arena of active boundaries and junctions built from
// a topology snapshot, plus the bridge maps back to stable semantic IDs.
type Arrangement struct {
	edges []edgeRecord
	nodes []nodeRecord

	boundaryIndex map[ids.BoundaryID]EdgeIdx
	junctionIndex map[ids.JunctionID]NodeIdx
}

// buildArrangement realizes the arena from snap's active boundaries and
// junctions.
func buildArrangement(snap *topology.Snapshot) *Arrangement {
	active := snap.ActiveBoundaries()
	a := &Arrangement{
		boundaryIndex: make(map[ids.BoundaryID]EdgeIdx, len(active)),
		junctionIndex: make(map[ids.JunctionID]NodeIdx, len(snap.Junctions)),
	}
	for _, b := range active {
		idx := EdgeIdx(len(a.edges))
		a.edges = append(a.edges, edgeRecord{BoundaryID: b.ID, Left: b.Left, Right: b.Right, Points: b.Geometry.Points})
		a.boundaryIndex[b.ID] = idx
	}
	for _, j := range snap.Junctions {
		if j.IsRetired {
			continue
		}
		idx := NodeIdx(len(a.nodes))
		a.nodes = append(a.nodes, nodeRecord{JunctionID: j.ID, BoundaryIDs: j.BoundaryIDs})
		a.junctionIndex[j.ID] = idx
	}
	return a
}
