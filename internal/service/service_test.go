package service

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/cache"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/eventlog"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/kinematics"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/kv"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/reconstruct"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/topology"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/velocity"
)

func testStream(domain ids.Domain) ids.StreamIdentity {
	return ids.StreamIdentity{Variant: "test", Branch: "main", Level: 0, Domain: domain, Model: "m1"}
}

func buildService(t *testing.T) (*Service, ids.FeatureSetID, ids.StreamIdentity, ids.PlateID, ids.PlateID) {
	t.Helper()
	log := logrus.NewEntry(logrus.New())
	topoStore := topology.NewStore(kv.NewMemStore(), log)
	kinStore := kinematics.NewStore(kv.NewMemStore(), log)
	artifacts := cache.New(kv.NewMemStore(), "svc-test", log)
	registry := kv.NewMemStore()
	svc := New(topoStore, kinStore, artifacts, registry, log)

	stream := testStream(ids.DomainTopology)
	plateA := ids.NewPlateID()
	plateB := ids.NewPlateID()
	b1 := ids.NewBoundaryID()
	b2 := ids.NewBoundaryID()
	j1 := ids.NewJunctionID()
	j2 := ids.NewJunctionID()

	events := []topology.Payload{
		{Kind: topology.KindPlateCreated, PlateID: plateA},
		{Kind: topology.KindPlateCreated, PlateID: plateB},
		{Kind: topology.KindBoundaryCreated, BoundaryID: b1, LeftPlateID: plateA, RightPlateID: plateB, BoundaryType: topology.BoundaryDivergent,
			Geometry: topology.Geometry{Points: []topology.GeoPoint{{LonDeg: 0, LatDeg: 0}, {LonDeg: 90, LatDeg: 0}}}},
		{Kind: topology.KindBoundaryCreated, BoundaryID: b2, LeftPlateID: plateA, RightPlateID: plateB, BoundaryType: topology.BoundaryConvergent,
			Geometry: topology.Geometry{Points: []topology.GeoPoint{{LonDeg: 90, LatDeg: 0}, {LonDeg: 45, LatDeg: 60}, {LonDeg: 0, LatDeg: 0}}}},
		{Kind: topology.KindJunctionCreated, JunctionID: j1, BoundaryIDs: []ids.BoundaryID{b1, b2}, Location: topology.GeoPoint{LonDeg: 0, LatDeg: 0}},
		{Kind: topology.KindJunctionCreated, JunctionID: j2, BoundaryIDs: []ids.BoundaryID{b1, b2}, Location: topology.GeoPoint{LonDeg: 90, LatDeg: 0}},
	}
	ticks := make([]ids.Tick, len(events))
	for i := range ticks {
		ticks[i] = ids.Tick(i + 1)
	}
	ctx := context.Background()
	if err := topoStore.Append(ctx, stream, events, ticks, eventlog.AppendOptions{TickPolicy: eventlog.TickReject}); err != nil {
		t.Fatalf("seed topology: %v", err)
	}

	featureSetID, err := svc.RegisterFeatureSet(ctx, stream)
	if err != nil {
		t.Fatalf("register feature set: %v", err)
	}
	return svc, featureSetID, stream, plateA, plateB
}

func TestReconstructCachesSecondCall(t *testing.T) {
	svc, featureSetID, _, _, _ := buildService(t)
	ctx := context.Background()

	rr1, err := svc.Reconstruct(ctx, featureSetID, 10, reconstruct.TolerancePolicy{Kind: reconstruct.Strict}, reconstruct.PartitionOptions{})
	if err != nil {
		t.Fatalf("reconstruct (first): %v", err)
	}
	if rr1.Provenance.CacheHit {
		t.Fatal("expected cache miss on first call")
	}
	if len(rr1.Features) != 2 {
		t.Fatalf("got %d features, want 2", len(rr1.Features))
	}
	for i := 1; i < len(rr1.Features); i++ {
		if !rr1.Features[i-1].SourceFeatureID.Less(rr1.Features[i].SourceFeatureID) {
			t.Fatalf("features not sorted ascending by source feature id at index %d", i)
		}
	}

	rr2, err := svc.Reconstruct(ctx, featureSetID, 10, reconstruct.TolerancePolicy{Kind: reconstruct.Strict}, reconstruct.PartitionOptions{})
	if err != nil {
		t.Fatalf("reconstruct (second): %v", err)
	}
	if !rr2.Provenance.CacheHit {
		t.Fatal("expected cache hit on second identical call")
	}
	if rr2.Provenance.CacheFingerprint != rr1.Provenance.CacheFingerprint {
		t.Fatal("expected identical cache fingerprint for identical inputs")
	}
	if rr2.Provenance.TopologyStreamHash != rr1.Provenance.TopologyStreamHash {
		t.Fatal("expected identical topology stream hash for identical inputs")
	}
}

func TestQueryPlateIDFindsContainingPlate(t *testing.T) {
	svc, featureSetID, _, plateA, plateB := buildService(t)
	ctx := context.Background()

	result, err := svc.QueryPlateID(ctx, featureSetID, 10, velocity.GeoPoint{LonDeg: 30, LatDeg: 30}, reconstruct.TolerancePolicy{Kind: reconstruct.Default})
	if err != nil {
		t.Fatalf("query plate id: %v", err)
	}
	if result.Confidence == Unassigned {
		t.Fatal("expected a containing plate to be found")
	}
	if result.PlateID != plateA && result.PlateID != plateB {
		t.Fatal("expected the found plate to be one of the seeded plates")
	}
}

func TestQueryVelocityRejectsEmptyCustomFrame(t *testing.T) {
	svc, featureSetID, _, _, _ := buildService(t)
	kinStream := testStream(ids.DomainKinematics)

	_, err := svc.QueryVelocity(context.Background(), featureSetID, kinStream, velocity.GeoPoint{LonDeg: 30, LatDeg: 30}, 10, ids.ModelID{}, velocity.Frame{Kind: velocity.CustomFrame})
	if err == nil {
		t.Fatal("expected error for empty custom frame chain")
	}
}
