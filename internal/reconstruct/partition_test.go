package reconstruct

import (
	"context"
	"errors"
	"testing"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/topology"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/pkg/ferrors"
)

// twoPlateSnapshot builds a minimal closed two-plate world: a single
// boundary ring shared by plate A (left) and plate B (right), stitched
// from two great-circle arcs meeting at two junctions.
func twoPlateSnapshot(t *testing.T) (*topology.Snapshot, ids.PlateID, ids.PlateID) {
	t.Helper()
	plateA := ids.NewPlateID()
	plateB := ids.NewPlateID()
	boundary1 := ids.NewBoundaryID()
	boundary2 := ids.NewBoundaryID()
	junction1 := ids.NewJunctionID()
	junction2 := ids.NewJunctionID()

	snap := &topology.Snapshot{
		SchemaVersion: 1,
		Plates: map[ids.PlateID]topology.Plate{
			plateA: {ID: plateA},
			plateB: {ID: plateB},
		},
		Boundaries: map[ids.BoundaryID]topology.Boundary{
			boundary1: {
				ID: boundary1, Left: plateA, Right: plateB, Type: topology.BoundaryDivergent,
				Geometry: topology.Geometry{Points: []topology.GeoPoint{{LonDeg: 0, LatDeg: 0}, {LonDeg: 90, LatDeg: 0}}},
			},
			boundary2: {
				ID: boundary2, Left: plateA, Right: plateB, Type: topology.BoundaryConvergent,
				Geometry: topology.Geometry{Points: []topology.GeoPoint{{LonDeg: 90, LatDeg: 0}, {LonDeg: 0, LatDeg: 0}}},
			},
		},
		Junctions: map[ids.JunctionID]topology.Junction{
			junction1: {ID: junction1, BoundaryIDs: []ids.BoundaryID{boundary1, boundary2}, Location: topology.GeoPoint{LonDeg: 0, LatDeg: 0}},
			junction2: {ID: junction2, BoundaryIDs: []ids.BoundaryID{boundary1, boundary2}, Location: topology.GeoPoint{LonDeg: 90, LatDeg: 0}},
		},
	}
	return snap, plateA, plateB
}

func TestPartitionStrictClosedTopologySucceeds(t *testing.T) {
	snap, plateA, plateB := twoPlateSnapshot(t)
	result, err := Partition(context.Background(), snap, TolerancePolicy{Kind: Strict}, PartitionOptions{MinPolygonArea: 1e-9})
	if err != nil {
		t.Fatalf("partition: %v", err)
	}
	if !result.Valid {
		t.Fatal("expected valid result")
	}
	if len(result.Polygons) != 2 {
		t.Fatalf("got %d polygons, want 2", len(result.Polygons))
	}
	seen := map[ids.PlateID]bool{}
	for _, p := range result.Polygons {
		seen[p.PlateID] = true
	}
	if !seen[plateA] || !seen[plateB] {
		t.Fatal("expected both plates represented in the partition")
	}
}

func TestPartitionStrictOpenBoundaryFails(t *testing.T) {
	snap, _, _ := twoPlateSnapshot(t)
	// Find the convergent boundary and strip every junction's reference to
	// it, leaving it unreferenced (open) while the divergent boundary
	// keeps both its references.
	var openBoundary ids.BoundaryID
	for id, b := range snap.Boundaries {
		if b.Type == topology.BoundaryConvergent {
			openBoundary = id
		}
	}
	for id, j := range snap.Junctions {
		filtered := j.BoundaryIDs[:0]
		for _, bid := range j.BoundaryIDs {
			if bid != openBoundary {
				filtered = append(filtered, bid)
			}
		}
		j.BoundaryIDs = filtered
		snap.Junctions[id] = j
	}

	_, err := Partition(context.Background(), snap, TolerancePolicy{Kind: Strict}, PartitionOptions{})
	if err == nil {
		t.Fatal("expected InvalidTopology error, got nil")
	}
	var it *ferrors.InvalidTopology
	if !errors.As(err, &it) {
		t.Fatalf("expected InvalidTopology, got %T: %v", err, err)
	}
}

func TestPartitionLenientToleratesGapWithinEpsilon(t *testing.T) {
	snap, _, _ := twoPlateSnapshot(t)
	// Introduce a tiny gap well within a generous epsilon.
	for id, b := range snap.Boundaries {
		if b.Type == topology.BoundaryConvergent {
			b.Geometry.Points[1].LonDeg += 1e-9
			snap.Boundaries[id] = b
		}
	}

	result, err := Partition(context.Background(), snap, TolerancePolicy{Kind: Lenient, Epsilon: 1e-6}, PartitionOptions{AllowPartial: false})
	if err != nil {
		t.Fatalf("partition: %v", err)
	}
	if !result.Valid {
		t.Fatal("expected valid result under lenient tolerance")
	}
}

func TestToleranceCacheKeyDeterministic(t *testing.T) {
	hash := [32]byte{1, 2, 3}
	k1 := CacheKey(hash, "v1", TolerancePolicy{Kind: Strict})
	k2 := CacheKey(hash, "v1", TolerancePolicy{Kind: Strict})
	if k1 != k2 {
		t.Fatalf("cache key not deterministic: %s vs %s", k1, k2)
	}
	k3 := CacheKey(hash, "v1", TolerancePolicy{Kind: Lenient, Epsilon: 1e-7})
	if k1 == k3 {
		t.Fatal("different tolerance policies should produce different cache keys")
	}
	if len(k1) != 16 {
		t.Fatalf("cache key length = %d, want 16", len(k1))
	}
}
