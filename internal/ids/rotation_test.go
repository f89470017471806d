package ids

import (
	"math"
	"testing"
)

func TestStageRotationDeterministic(t *testing.T) {
	sr := StageRotation{PoleLonMicrodeg: 45_000_000, PoleLatMicrodeg: 30_000_000, AngleMicrodeg: 10_000_000}
	q1 := sr.Quaternion()
	q2 := sr.Quaternion()
	if q1 != q2 {
		t.Fatalf("expected bit-identical quaternions, got %v vs %v", q1, q2)
	}
}

func TestScaledQuaternionBounds(t *testing.T) {
	sr := StageRotation{PoleLonMicrodeg: 0, PoleLatMicrodeg: 90_000_000, AngleMicrodeg: 90_000_000}
	zero := sr.ScaledQuaternion(0)
	if math.Abs(zero.W-1) > 1e-9 {
		t.Fatalf("fraction=0 should be identity, got %v", zero)
	}
	full := sr.ScaledQuaternion(1)
	want := sr.Quaternion()
	if full != want {
		t.Fatalf("fraction=1 should equal Quaternion(), got %v want %v", full, want)
	}
}

func TestQuaternionMulIdentity(t *testing.T) {
	sr := StageRotation{PoleLonMicrodeg: 12_000_000, PoleLatMicrodeg: -5_000_000, AngleMicrodeg: 33_000_000}
	q := sr.Quaternion()
	id := Identity()
	got := q.Mul(id).Normalize()
	if math.Abs(got.W-q.W) > 1e-9 || math.Abs(got.X-q.X) > 1e-9 {
		t.Fatalf("q * identity should equal q, got %v want %v", got, q)
	}
}

func TestAxisAngleRoundTrip(t *testing.T) {
	sr := StageRotation{PoleLonMicrodeg: 0, PoleLatMicrodeg: 0, AngleMicrodeg: 45_000_000}
	q := sr.Quaternion()
	_, _, _, angle := q.AxisAngle()
	wantAngle := 45.0 * math.Pi / 180
	if math.Abs(angle-wantAngle) > 1e-9 {
		t.Fatalf("angle = %v, want %v", angle, wantAngle)
	}
}

func TestStreamKeyFormat(t *testing.T) {
	s := StreamIdentity{Variant: "v1", Branch: "main", Level: 2, Domain: DomainTopology, Model: "m1"}
	got := string(s.ToStreamKey())
	want := "S:v1:main:L2:geo.plates.topology:Mm1:"
	if got != want {
		t.Fatalf("stream key = %q, want %q", got, want)
	}
}
