package velocity

import (
	"math"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/kinematics"
)

// earthRadiusKm is the reference sphere radius used to convert angular
// rates into linear rates (km per tick) for boundary profiles.
const earthRadiusKm = 6371.0

// GeoPoint is a lon/lat sample on the reference sphere.
type GeoPoint struct {
	LonDeg float64
	LatDeg float64
}

// rotationSource is the minimal surface velocity needs from a kinematics
// rotation evaluator.
type rotationSource interface {
	TryGetRotation(plate ids.PlateID, tick ids.Tick) ids.Quaternion
}

// Evaluator computes angular and linear velocities from an underlying
// kinematics rotation evaluator.
type Evaluator struct {
	rot rotationSource
}

// NewEvaluator wraps a kinematics.Evaluator for velocity analysis.
func NewEvaluator(rot *kinematics.Evaluator) *Evaluator {
	return &Evaluator{rot: rot}
}

func (e *Evaluator) rotation(plate ids.PlateID, tick ids.Tick) ids.Quaternion {
	return e.rot.TryGetRotation(plate, tick)
}

// AngularVelocity returns plate's instantaneous angular velocity at tick,
// expressed as an axis (unit vector) and a rate in radians per tick,
// using the finite-rotation method: delta = R(t+h) * R(t)^-1, scaled by
// 1/h.
func (e *Evaluator) AngularVelocity(plate ids.PlateID, tick ids.Tick, h ids.Tick) (axis [3]float64, radiansPerTick float64) {
	if h <= 0 {
		h = 1
	}
	r0 := e.rotation(plate, tick)
	r1 := e.rotation(plate, tick+h)
	delta := r1.Mul(r0.Conjugate()).Normalize()
	x, y, z, angle := delta.AxisAngle()
	return [3]float64{x, y, z}, angle / float64(h)
}

// AbsoluteVelocity returns the linear velocity (km/tick, in an
// Earth-centered Cartesian frame) of a point on plate at tick, via
// omega x r, where r is the point's unit position scaled by the
// reference radius and omega is the angular velocity vector.
func (e *Evaluator) AbsoluteVelocity(plate ids.PlateID, tick ids.Tick, h ids.Tick, point GeoPoint) (vx, vy, vz float64) {
	axis, rate := e.AngularVelocity(plate, tick, h)
	omega := [3]float64{axis[0] * rate, axis[1] * rate, axis[2] * rate}
	px, py, pz := unitVector(point)
	r := [3]float64{px * earthRadiusKm, py * earthRadiusKm, pz * earthRadiusKm}
	return cross(omega, r)
}

// RelativeVelocity returns plateA's velocity minus plateB's velocity at
// the same point and tick.
func (e *Evaluator) RelativeVelocity(plateA, plateB ids.PlateID, tick ids.Tick, h ids.Tick, point GeoPoint) (vx, vy, vz float64) {
	ax, ay, az := e.AbsoluteVelocity(plateA, tick, h, point)
	bx, by, bz := e.AbsoluteVelocity(plateB, tick, h, point)
	return ax - bx, ay - by, az - bz
}

// ComputeVelocityInFrame returns plate's velocity at point and tick,
// expressed relative to frame rather than the mantle.
func (e *Evaluator) ComputeVelocityInFrame(plate ids.PlateID, tick ids.Tick, h ids.Tick, point GeoPoint, frame Frame) (vx, vy, vz float64, err error) {
	if _, err := resolveFrameRotation(e, frame, tick); err != nil {
		return 0, 0, 0, err
	}
	px, py, pz := e.AbsoluteVelocity(plate, tick, h, point)
	switch frame.Kind {
	case MantleFrame, AbsoluteFrame:
		return px, py, pz, nil
	case PlateAnchor:
		ax, ay, az := e.AbsoluteVelocity(frame.Plate, tick, h, point)
		return px - ax, py - ay, pz - az, nil
	case CustomFrame:
		var cx, cy, cz float64
		for _, anchor := range frame.Chain {
			ax, ay, az := e.AbsoluteVelocity(anchor, tick, h, point)
			cx, cy, cz = cx+ax, cy+ay, cz+az
		}
		return px - cx, py - cy, pz - cz, nil
	default:
		return px, py, pz, nil
	}
}

func unitVector(p GeoPoint) (x, y, z float64) {
	lat := p.LatDeg * math.Pi / 180
	lon := p.LonDeg * math.Pi / 180
	sinLat, cosLat := math.Sincos(lat)
	sinLon, cosLon := math.Sincos(lon)
	return cosLat * cosLon, cosLat * sinLon, sinLat
}

func cross(a, b [3]float64) (x, y, z float64) {
	return a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0]
}
