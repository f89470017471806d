package velocity

import (
	"math"
	"testing"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/kinematics"
)

// rotatingPlateState builds a single-segment plate rotating at a steady
// rate about the north pole, valid over [0, 1000].
func rotatingPlateState(plate ids.PlateID, angleMicrodeg int64) *kinematics.State {
	state := &kinematics.State{Plates: map[ids.PlateID]*kinematics.PlateState{
		plate: {
			PlateID: plate,
			Segments: []kinematics.Segment{
				{
					SegmentID: ids.NewMotionSegmentID(),
					TickA:     0,
					TickB:     1000,
					StageRotation: ids.StageRotation{
						PoleLatMicrodeg: 90_000_000,
						AngleMicrodeg:   angleMicrodeg,
					},
				},
			},
		},
	}}
	return state
}

func TestAngularVelocityDivergence(t *testing.T) {
	plateA := ids.NewPlateID()
	plateB := ids.NewPlateID()

	state := rotatingPlateState(plateA, 10_000_000) // 10deg over 1000 ticks, spinning east
	state.Plates[plateB] = &kinematics.PlateState{PlateID: plateB} // stationary

	eval := NewEvaluator(kinematics.NewEvaluator(state))
	point := GeoPoint{LonDeg: 0, LatDeg: 0}

	vx, vy, vz := eval.RelativeVelocity(plateA, plateB, 500, 1, point)
	speed := math.Sqrt(vx*vx + vy*vy + vz*vz)
	if speed <= 0 {
		t.Fatalf("expected nonzero relative velocity, got 0")
	}
}

func TestStationaryPlatesZeroVelocity(t *testing.T) {
	plateA := ids.NewPlateID()
	plateB := ids.NewPlateID()
	state := &kinematics.State{Plates: map[ids.PlateID]*kinematics.PlateState{
		plateA: {PlateID: plateA},
		plateB: {PlateID: plateB},
	}}

	eval := NewEvaluator(kinematics.NewEvaluator(state))
	point := GeoPoint{LonDeg: 10, LatDeg: 20}

	vx, vy, vz := eval.RelativeVelocity(plateA, plateB, 500, 1, point)
	if vx != 0 || vy != 0 || vz != 0 {
		t.Fatalf("expected zero velocity for stationary plates, got (%v,%v,%v)", vx, vy, vz)
	}
}

func TestComputeVelocityInFramePlateAnchorCancelsSelf(t *testing.T) {
	plate := ids.NewPlateID()
	state := rotatingPlateState(plate, 30_000_000)
	eval := NewEvaluator(kinematics.NewEvaluator(state))
	point := GeoPoint{LonDeg: 5, LatDeg: 5}

	vx, vy, vz, err := eval.ComputeVelocityInFrame(plate, 500, 1, point, Frame{Kind: PlateAnchor, Plate: plate})
	if err != nil {
		t.Fatalf("compute velocity in frame: %v", err)
	}
	if math.Abs(vx) > 1e-9 || math.Abs(vy) > 1e-9 || math.Abs(vz) > 1e-9 {
		t.Fatalf("expected ~zero velocity in self-anchored frame, got (%v,%v,%v)", vx, vy, vz)
	}
}

func TestCustomFrameCycleDetected(t *testing.T) {
	plateA := ids.NewPlateID()
	plateB := ids.NewPlateID()
	state := &kinematics.State{Plates: map[ids.PlateID]*kinematics.PlateState{
		plateA: {PlateID: plateA},
		plateB: {PlateID: plateB},
	}}
	eval := NewEvaluator(kinematics.NewEvaluator(state))

	_, err := resolveFrameRotation(eval, Frame{Kind: CustomFrame, Chain: []ids.PlateID{plateA, plateB, plateA}}, 100)
	if err == nil {
		t.Fatal("expected cyclic frame reference error")
	}
}
