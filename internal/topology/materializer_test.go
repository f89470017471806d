package topology

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/eventlog"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/kv"
)

func testStream() ids.StreamIdentity {
	return ids.StreamIdentity{Variant: "v1", Branch: "main", Level: 0, Domain: ids.DomainTopology, Model: "m1"}
}

func TestMaterializeBasicFold(t *testing.T) {
	s := NewStore(kv.NewMemStore(), nil)
	stream := testStream()
	plateA := ids.NewPlateID()
	boundary := ids.NewBoundaryID()
	plateB := ids.NewPlateID()

	events := []Payload{
		{Kind: KindPlateCreated, PlateID: plateA},
		{Kind: KindPlateCreated, PlateID: plateB},
		{Kind: KindBoundaryCreated, BoundaryID: boundary, LeftPlateID: plateA, RightPlateID: plateB, BoundaryType: BoundaryDivergent},
	}
	ticks := []ids.Tick{0, 0, 1}
	if err := s.Append(context.Background(), stream, events, ticks, eventlog.AppendOptions{}); err != nil {
		t.Fatalf("append: %v", err)
	}

	snap, err := Materialize(context.Background(), s, stream, 100, ScanAll)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if len(snap.Plates) != 2 {
		t.Fatalf("got %d plates, want 2", len(snap.Plates))
	}
	b, ok := snap.GetBoundary(boundary)
	if !ok {
		t.Fatalf("boundary %v not found", boundary)
	}
	if b.Left != plateA || b.Right != plateB || b.Type != BoundaryDivergent {
		t.Fatalf("boundary state wrong: %+v", b)
	}
	if snap.LastEventSequence != 2 {
		t.Fatalf("last_event_sequence = %d, want 2", snap.LastEventSequence)
	}
}

func TestMaterializeTickFilter(t *testing.T) {
	s := NewStore(kv.NewMemStore(), nil)
	stream := testStream()
	plate := ids.NewPlateID()

	if err := s.Append(context.Background(), stream,
		[]Payload{
			{Kind: KindPlateCreated, PlateID: plate},
			{Kind: KindPlateRetired, PlateID: plate, RetirementReason: "subducted"},
		},
		[]ids.Tick{0, 50},
		eventlog.AppendOptions{},
	); err != nil {
		t.Fatalf("append: %v", err)
	}

	early, err := Materialize(context.Background(), s, stream, 10, ScanAll)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	p, ok := early.GetPlate(plate)
	if !ok || p.IsRetired {
		t.Fatalf("plate should not be retired at tick 10: %+v", p)
	}

	late, err := Materialize(context.Background(), s, stream, 50, ScanAll)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	p, ok = late.GetPlate(plate)
	if !ok || !p.IsRetired || p.RetirementReason != "subducted" {
		t.Fatalf("plate should be retired at tick 50: %+v", p)
	}
}

func TestMaterializerDeterminism(t *testing.T) {
	s := NewStore(kv.NewMemStore(), nil)
	stream := testStream()
	plate := ids.NewPlateID()
	if err := s.Append(context.Background(), stream, []Payload{{Kind: KindPlateCreated, PlateID: plate}}, []ids.Tick{0}, eventlog.AppendOptions{}); err != nil {
		t.Fatalf("append: %v", err)
	}

	a, err := Materialize(context.Background(), s, stream, 10, ScanAll)
	if err != nil {
		t.Fatalf("materialize a: %v", err)
	}
	b, err := Materialize(context.Background(), s, stream, 10, ScanAll)
	if err != nil {
		t.Fatalf("materialize b: %v", err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("materialize is not deterministic (-a +b):\n%s", diff)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := NewStore(kv.NewMemStore(), nil)
	stream := testStream()
	plateA, plateB := ids.NewPlateID(), ids.NewPlateID()
	boundary := ids.NewBoundaryID()
	junction := ids.NewJunctionID()

	if err := s.Append(context.Background(), stream, []Payload{
		{Kind: KindPlateCreated, PlateID: plateA},
		{Kind: KindPlateCreated, PlateID: plateB},
		{Kind: KindBoundaryCreated, BoundaryID: boundary, LeftPlateID: plateA, RightPlateID: plateB, BoundaryType: BoundaryConvergent},
		{Kind: KindJunctionCreated, JunctionID: junction, BoundaryIDs: []ids.BoundaryID{boundary}, Location: GeoPoint{LonDeg: 10, LatDeg: 20}},
	}, []ids.Tick{0, 0, 1, 1}, eventlog.AppendOptions{}); err != nil {
		t.Fatalf("append: %v", err)
	}

	snap, err := Materialize(context.Background(), s, stream, 100, ScanAll)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}

	raw, err := EncodeSnapshot(snap)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	roundTripped, err := DecodeSnapshot(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(snap, roundTripped); diff != "" {
		t.Fatalf("snapshot round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestIdempotentCreate(t *testing.T) {
	s := NewStore(kv.NewMemStore(), nil)
	stream := testStream()
	plate := ids.NewPlateID()

	if err := s.Append(context.Background(), stream, []Payload{
		{Kind: KindPlateCreated, PlateID: plate},
		{Kind: KindPlateCreated, PlateID: plate},
	}, []ids.Tick{0, 0}, eventlog.AppendOptions{}); err != nil {
		t.Fatalf("append: %v", err)
	}

	snap, err := Materialize(context.Background(), s, stream, 0, ScanAll)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if len(snap.Plates) != 1 {
		t.Fatalf("repeated create should be idempotent, got %d plates", len(snap.Plates))
	}
}
