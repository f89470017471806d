package velocity

import (
	"testing"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/kinematics"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/topology"
)

func TestSampleBoundaryStationaryPlatesAllZero(t *testing.T) {
	plateA := ids.NewPlateID()
	plateB := ids.NewPlateID()
	state := &kinematics.State{Plates: map[ids.PlateID]*kinematics.PlateState{
		plateA: {PlateID: plateA},
		plateB: {PlateID: plateB},
	}}
	eval := NewEvaluator(kinematics.NewEvaluator(state))

	boundary := topology.Boundary{
		ID: ids.NewBoundaryID(), Left: plateA, Right: plateB,
		Geometry: topology.Geometry{Points: []topology.GeoPoint{{LonDeg: 0, LatDeg: 0}, {LonDeg: 10, LatDeg: 0}}},
	}

	profile := SampleBoundary(eval, boundary, 500, 1, 100)
	if len(profile.Samples) == 0 {
		t.Fatal("expected at least one sample")
	}
	for _, s := range profile.Samples {
		if s.NormalRate != 0 || s.TangentialRate != 0 {
			t.Fatalf("expected zero rates for stationary plates, got normal=%v tangential=%v", s.NormalRate, s.TangentialRate)
		}
		if s.StrikeSlipSense != "" {
			t.Fatalf("expected no strike-slip sense, got %q", s.StrikeSlipSense)
		}
	}
}

func TestBatchAnalyzeSortedByBoundaryID(t *testing.T) {
	plateA := ids.NewPlateID()
	plateB := ids.NewPlateID()
	state := &kinematics.State{Plates: map[ids.PlateID]*kinematics.PlateState{
		plateA: {PlateID: plateA},
		plateB: {PlateID: plateB},
	}}
	eval := NewEvaluator(kinematics.NewEvaluator(state))

	b1 := ids.NewBoundaryID()
	b2 := ids.NewBoundaryID()
	snap := &topology.Snapshot{
		Plates: map[ids.PlateID]topology.Plate{plateA: {ID: plateA}, plateB: {ID: plateB}},
		Boundaries: map[ids.BoundaryID]topology.Boundary{
			b1: {ID: b1, Left: plateA, Right: plateB, Geometry: topology.Geometry{Points: []topology.GeoPoint{{LonDeg: 0}, {LonDeg: 5}}}},
			b2: {ID: b2, Left: plateA, Right: plateB, Geometry: topology.Geometry{Points: []topology.GeoPoint{{LonDeg: 5}, {LonDeg: 10}}}},
		},
	}

	profiles := BatchAnalyze(eval, snap, 100, 1, 100)
	if len(profiles) != 2 {
		t.Fatalf("got %d profiles, want 2", len(profiles))
	}
	if !profiles[0].BoundaryID.Less(profiles[1].BoundaryID) {
		t.Fatal("expected profiles sorted ascending by BoundaryID")
	}
}
