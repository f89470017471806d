package kinematics

import (
	"context"
	"math"
	"testing"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/eventlog"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/kv"
)

func testStream() ids.StreamIdentity {
	return ids.StreamIdentity{Variant: "v1", Branch: "main", Level: 0, Domain: ids.DomainKinematics, Model: "m1"}
}

func TestTryGetRotationIdentityBeforeGenesis(t *testing.T) {
	s := NewStore(kv.NewMemStore(), nil)
	state, err := Materialize(context.Background(), s, testStream(), 0)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	ev := NewEvaluator(state)
	q := ev.TryGetRotation(ids.NewPlateID(), 0)
	if q != ids.Identity() {
		t.Fatalf("expected identity at tick 0, got %v", q)
	}
}

func TestTryGetRotationMissingPlateReturnsIdentity(t *testing.T) {
	s := NewStore(kv.NewMemStore(), nil)
	state, err := Materialize(context.Background(), s, testStream(), 100)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	ev := NewEvaluator(state)
	q := ev.TryGetRotation(ids.NewPlateID(), 100)
	if q != ids.Identity() {
		t.Fatalf("expected identity for unknown plate, got %v", q)
	}
}

func TestTryGetRotationWithinSegment(t *testing.T) {
	s := NewStore(kv.NewMemStore(), nil)
	stream := testStream()
	plate := ids.NewPlateID()
	seg := ids.NewMotionSegmentID()
	sr := ids.StageRotation{PoleLonMicrodeg: 0, PoleLatMicrodeg: 90_000_000, AngleMicrodeg: 90_000_000}

	if err := s.Append(context.Background(), stream, []Payload{
		{Kind: KindMotionSegmentUpserted, PlateID: plate, SegmentID: seg, TickA: 0, TickB: 100, StageRotation: sr},
	}, []ids.Tick{0}, eventlog.AppendOptions{}); err != nil {
		t.Fatalf("append: %v", err)
	}

	state, err := Materialize(context.Background(), s, stream, 100)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	ev := NewEvaluator(state)

	half := ev.TryGetRotation(plate, 50)
	_, _, _, angle := half.AxisAngle()
	wantHalf := 45.0 * math.Pi / 180
	if math.Abs(angle-wantHalf) > 1e-6 {
		t.Fatalf("half-segment angle = %v, want %v", angle, wantHalf)
	}

	full := ev.TryGetRotation(plate, 100)
	_, _, _, fullAngle := full.AxisAngle()
	wantFull := 90.0 * math.Pi / 180
	if math.Abs(fullAngle-wantFull) > 1e-6 {
		t.Fatalf("full-segment angle = %v, want %v", fullAngle, wantFull)
	}
}

func TestTryGetRotationCoastsPastSegmentEnd(t *testing.T) {
	s := NewStore(kv.NewMemStore(), nil)
	stream := testStream()
	plate := ids.NewPlateID()
	seg := ids.NewMotionSegmentID()
	sr := ids.StageRotation{PoleLonMicrodeg: 0, PoleLatMicrodeg: 90_000_000, AngleMicrodeg: 30_000_000}

	if err := s.Append(context.Background(), stream, []Payload{
		{Kind: KindMotionSegmentUpserted, PlateID: plate, SegmentID: seg, TickA: 0, TickB: 10, StageRotation: sr},
	}, []ids.Tick{0}, eventlog.AppendOptions{}); err != nil {
		t.Fatalf("append: %v", err)
	}

	state, err := Materialize(context.Background(), s, stream, 1000)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	ev := NewEvaluator(state)

	atEnd := ev.TryGetRotation(plate, 10)
	wayLater := ev.TryGetRotation(plate, 999)
	if atEnd != wayLater {
		t.Fatalf("rotation should coast past segment end: at end %v, way later %v", atEnd, wayLater)
	}
}

func TestTryGetRotationDeterministicAcrossEvaluators(t *testing.T) {
	s := NewStore(kv.NewMemStore(), nil)
	stream := testStream()
	plate := ids.NewPlateID()
	seg := ids.NewMotionSegmentID()
	sr := ids.StageRotation{PoleLonMicrodeg: 12_000_000, PoleLatMicrodeg: -5_000_000, AngleMicrodeg: 33_000_000}

	if err := s.Append(context.Background(), stream, []Payload{
		{Kind: KindMotionSegmentUpserted, PlateID: plate, SegmentID: seg, TickA: 0, TickB: 100, StageRotation: sr},
	}, []ids.Tick{0}, eventlog.AppendOptions{}); err != nil {
		t.Fatalf("append: %v", err)
	}

	state, err := Materialize(context.Background(), s, stream, 100)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}

	q1 := NewEvaluator(state).TryGetRotation(plate, 42)
	q2 := NewEvaluator(state).TryGetRotation(plate, 42)
	if q1 != q2 {
		t.Fatalf("rotation evaluation is not deterministic: %v vs %v", q1, q2)
	}
}

func TestMotionSegmentUpsertRejectsBadTickOrder(t *testing.T) {
	s := NewStore(kv.NewMemStore(), nil)
	stream := testStream()
	err := s.Append(context.Background(), stream, []Payload{
		{Kind: KindMotionSegmentUpserted, PlateID: ids.NewPlateID(), SegmentID: ids.NewMotionSegmentID(), TickA: 10, TickB: 5},
	}, []ids.Tick{0}, eventlog.AppendOptions{})
	if err == nil {
		t.Fatal("expected error for tick_a >= tick_b, got nil")
	}
}
