package ids

import "math"

// microdegree is the quantization unit used by StageRotation: one
// millionth of a degree.
const microdegree = 1e-6

// StageRotation is the atomic quantized Euler-pole rotation primitive: an
// integer-microdegree pole longitude/latitude and total rotation angle.
// Quantizing to integers (rather than storing floats) is what gives two
// identical stage rotations bit-identical quaternions: there is no
// floating-point representation drift between construction and replay.
type StageRotation struct {
	PoleLonMicrodeg int64
	PoleLatMicrodeg int64
	AngleMicrodeg   int64
}

// Quaternion is a unit quaternion, W + Xi + Yj + Zk.
type Quaternion struct {
	W, X, Y, Z float64
}

// Identity is the no-rotation quaternion.
func Identity() Quaternion { return Quaternion{W: 1} }

// axis returns the unit rotation-pole vector for the stage rotation.
func (s StageRotation) axis() (x, y, z float64) {
	lon := float64(s.PoleLonMicrodeg) * microdegree * math.Pi / 180
	lat := float64(s.PoleLatMicrodeg) * microdegree * math.Pi / 180
	sinLat, cosLat := math.Sincos(lat)
	sinLon, cosLon := math.Sincos(lon)
	return cosLat * cosLon, cosLat * sinLon, sinLat
}

// Quaternion builds the full (fraction=1) quaternion for this stage
// rotation.
func (s StageRotation) Quaternion() Quaternion {
	return s.ScaledQuaternion(1.0)
}

// ScaledQuaternion builds the quaternion for this stage rotation's pole
// held fixed but the total angle scaled by fraction (used for
// interpolating within an open segment, spec section 4.4). fraction=0
// yields Identity; fraction=1 yields the full stage rotation.
func (s StageRotation) ScaledQuaternion(fraction float64) Quaternion {
	ax, ay, az := s.axis()
	angle := float64(s.AngleMicrodeg) * microdegree * math.Pi / 180 * fraction
	half := angle / 2
	sinHalf, cosHalf := math.Sincos(half)
	return Quaternion{
		W: cosHalf,
		X: ax * sinHalf,
		Y: ay * sinHalf,
		Z: az * sinHalf,
	}
}

// Mul composes q then r: the result rotates a vector the way applying q
// first and r second would (r * q in Hamilton-product order, matching the
// "multiply with the recursively computed absolute rotation" composition
// in spec section 4.4: delta is applied on top of the absolute rotation
// at the segment start).
func (q Quaternion) Mul(r Quaternion) Quaternion {
	return Quaternion{
		W: r.W*q.W - r.X*q.X - r.Y*q.Y - r.Z*q.Z,
		X: r.W*q.X + r.X*q.W + r.Y*q.Z - r.Z*q.Y,
		Y: r.W*q.Y - r.X*q.Z + r.Y*q.W + r.Z*q.X,
		Z: r.W*q.Z + r.X*q.Y - r.Y*q.X + r.Z*q.W,
	}
}

// Normalize renormalizes q to a unit quaternion. Every multiplication in
// this module renormalizes its result to bound floating-point drift, per
// spec section 4.4.
func (q Quaternion) Normalize() Quaternion {
	n := math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	if n == 0 {
		return Identity()
	}
	return Quaternion{W: q.W / n, X: q.X / n, Y: q.Y / n, Z: q.Z / n}
}

// Conjugate returns the inverse of a unit quaternion.
func (q Quaternion) Conjugate() Quaternion {
	return Quaternion{W: q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
}

// RotateVector rotates the 3D vector v by q.
func (q Quaternion) RotateVector(vx, vy, vz float64) (x, y, z float64) {
	vq := Quaternion{W: 0, X: vx, Y: vy, Z: vz}
	r := q.Mul(vq).Mul(q.Conjugate())
	return r.X, r.Y, r.Z
}

// AxisAngle extracts the rotation axis (unit vector) and angle (radians,
// in [0, pi]) represented by q.
func (q Quaternion) AxisAngle() (x, y, z, angle float64) {
	qn := q.Normalize()
	if qn.W < 0 {
		// q and -q are the same rotation; the non-negative-W form keeps
		// the angle within [0, pi].
		qn = Quaternion{W: -qn.W, X: -qn.X, Y: -qn.Y, Z: -qn.Z}
	}
	if qn.W > 1 {
		qn.W = 1
	}
	if qn.W < -1 {
		qn.W = -1
	}
	angle = 2 * math.Acos(qn.W)
	s := math.Sqrt(1 - qn.W*qn.W)
	if s < 1e-12 {
		// Angle ~0: axis is arbitrary, conventionally the X axis.
		return 1, 0, 0, angle
	}
	return qn.X / s, qn.Y / s, qn.Z / s, angle
}
