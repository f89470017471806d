package reconstruct

import (
	"sort"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/pkg/ferrors"
)

// diagnose inspects the arrangement for the three structural defects
// Strict validation must detect: open boundaries (not referenced by any
// junction), non-manifold junctions (valence outside {2,3}), and
// disconnected plate-adjacency components. ambiguous-attribution
// boundaries (left == right) are reported alongside, per spec section
// 4.6/9.1's TopologyDiagnostics.
func (a *Arrangement) diagnose() ferrors.TopologyDiagnostics {
	referenced := make(map[ids.BoundaryID]int)
	for _, n := range a.nodes {
		for _, bid := range n.BoundaryIDs {
			referenced[bid]++
		}
	}

	var diag ferrors.TopologyDiagnostics
	for _, e := range a.edges {
		if referenced[e.BoundaryID] == 0 {
			diag.OpenBoundaryIDs = append(diag.OpenBoundaryIDs, e.BoundaryID.String())
		}
	}
	sort.Strings(diag.OpenBoundaryIDs)

	for _, n := range a.nodes {
		if len(n.BoundaryIDs) < 2 || len(n.BoundaryIDs) > 3 {
			diag.NonManifoldJunctionIDs = append(diag.NonManifoldJunctionIDs, n.JunctionID.String())
		}
	}
	sort.Strings(diag.NonManifoldJunctionIDs)

	for i, e := range a.edges {
		if e.Left == e.Right {
			diag.AmbiguousFaceIndices = append(diag.AmbiguousFaceIndices, i)
		}
	}

	diag.DisconnectedComponents = a.countPlateComponents()
	return diag
}

// countPlateComponents unions plates sharing an active boundary and
// returns the number of resulting connected components.
func (a *Arrangement) countPlateComponents() int {
	parent := make(map[ids.PlateID]ids.PlateID)
	var find func(ids.PlateID) ids.PlateID
	find = func(p ids.PlateID) ids.PlateID {
		root, ok := parent[p]
		if !ok {
			parent[p] = p
			return p
		}
		if root == p {
			return p
		}
		r := find(root)
		parent[p] = r
		return r
	}
	union := func(x, y ids.PlateID) {
		find(x)
		find(y)
		parent[find(x)] = find(y)
	}

	for _, e := range a.edges {
		find(e.Left)
		find(e.Right)
		if e.Left != e.Right {
			union(e.Left, e.Right)
		}
	}

	roots := make(map[ids.PlateID]bool)
	for p := range parent {
		roots[find(p)] = true
	}
	return len(roots)
}
