package service

import (
	"math"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/reconstruct"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/topology"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/velocity"
)

// ringContains reports whether point lies inside r using the standard
// planar even-odd crossing rule applied to lon/lat directly. This is an
// approximation (it ignores spherical distortion and antimeridian
// wrapping) acceptable at the scale plate polygons operate: the
// reconstruction engine itself already trades off full spherical
// geometry for the simplified area formula in reconstruct.signedArea.
func ringContains(r reconstruct.Ring, point velocity.GeoPoint) bool {
	pts := r.Points
	if len(pts) < 3 {
		return false
	}
	inside := false
	for i, j := 0, len(pts)-1; i < len(pts); j, i = i, i+1 {
		pi, pj := pts[i], pts[j]
		if (pi.LatDeg > point.LatDeg) != (pj.LatDeg > point.LatDeg) {
			slope := (pj.LonDeg - pi.LonDeg) / (pj.LatDeg - pi.LatDeg)
			lonAtPointLat := pi.LonDeg + slope*(point.LatDeg-pi.LatDeg)
			if point.LonDeg < lonAtPointLat {
				inside = !inside
			}
		}
	}
	return inside
}

func anyHoleContains(holes []reconstruct.Ring, point velocity.GeoPoint) bool {
	for _, h := range holes {
		if ringContains(h, point) {
			return true
		}
	}
	return false
}

// distanceToRingDeg returns the minimum planar distance, in degrees, from
// point to any edge of r. Used to classify a plate assignment as Boundary
// confidence rather than Certain when the point sits within
// boundaryEpsilonDeg of the polygon's own outline: the same planar
// approximation ringContains already trades spherical accuracy for.
func distanceToRingDeg(r reconstruct.Ring, point velocity.GeoPoint) float64 {
	pts := r.Points
	if len(pts) < 2 {
		return math.MaxFloat64
	}
	best := math.MaxFloat64
	for i, j := 0, len(pts)-1; i < len(pts); j, i = i, i+1 {
		d := distancePointToSegmentDeg(pts[j], pts[i], point)
		if d < best {
			best = d
		}
	}
	return best
}

// distancePointToSegmentDeg returns the planar distance, in degrees, from
// point to the closest point on segment [a,b].
func distancePointToSegmentDeg(a, b topology.GeoPoint, point velocity.GeoPoint) float64 {
	ax, ay := a.LonDeg, a.LatDeg
	bx, by := b.LonDeg, b.LatDeg
	px, py := point.LonDeg, point.LatDeg

	dx, dy := bx-ax, by-ay
	lengthSq := dx*dx + dy*dy
	if lengthSq == 0 {
		return math.Hypot(px-ax, py-ay)
	}
	t := ((px-ax)*dx + (py-ay)*dy) / lengthSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	closestX, closestY := ax+t*dx, ay+t*dy
	return math.Hypot(px-closestX, py-closestY)
}

// nearestPointDistanceDeg returns the minimum planar distance, in
// degrees, from point to any vertex of pts. Coarser than
// distancePointToSegmentDeg (vertex-only, not edge-projected) since it is
// used only to pick the nearest of a small set of candidate boundaries,
// not to classify confidence.
func nearestPointDistanceDeg(pts []topology.GeoPoint, point velocity.GeoPoint) float64 {
	best := math.MaxFloat64
	for _, p := range pts {
		d := math.Hypot(p.LonDeg-point.LonDeg, p.LatDeg-point.LatDeg)
		if d < best {
			best = d
		}
	}
	return best
}

// vectorMagnitude returns a velocity component's Euclidean norm.
func vectorMagnitude(v VelocityComponent) float64 {
	return math.Sqrt(v.VX*v.VX + v.VY*v.VY + v.VZ*v.VZ)
}

// vectorAzimuthDeg returns the angle, in degrees, of a velocity
// component's x/y projection, measured counter-clockwise from the +X axis
// (atan2(VY, VX), in (-180, 180]). It is not a compass bearing. A purely
// vertical component reports zero.
func vectorAzimuthDeg(v VelocityComponent) float64 {
	return math.Atan2(v.VY, v.VX) * 180 / math.Pi
}

// partitionWire is the msgpack-serializable mirror of reconstruct.Result,
// used only to round-trip results through the artifact cache's opaque
// byte payloads.
type partitionWire struct {
	Polygons []reconstruct.PlatePolygon
	Quality  reconstruct.QualityMetrics
	Valid    bool
}

func encodePartition(r *reconstruct.Result) ([]byte, error) {
	return msgpack.Marshal(partitionWire{Polygons: r.Polygons, Quality: r.Quality, Valid: r.Valid})
}

func decodePartition(raw []byte) (*reconstruct.Result, error) {
	var w partitionWire
	if err := msgpack.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	return &reconstruct.Result{Polygons: w.Polygons, Quality: w.Quality, Valid: w.Valid}, nil
}

// velocityWire is the msgpack-serializable mirror of the numeric portion
// of VelocityResult (its decomposition components), used to round-trip
// through the artifact cache the same way partitionWire does. The
// plate/model/frame/provenance fields are stamped fresh on every call
// rather than cached, since they describe the request, not the computed
// physics.
type velocityWire struct {
	Total                        VelocityComponent
	PlateRotationComponent       VelocityComponent
	BoundaryInteractionComponent VelocityComponent
	InternalDeformationComponent VelocityComponent
	MagnitudeKmPerTick           float64
	AzimuthDeg                   float64
}

func encodeVelocity(v VelocityResult) ([]byte, error) {
	return msgpack.Marshal(velocityWire{
		Total:                        v.Total,
		PlateRotationComponent:       v.PlateRotationComponent,
		BoundaryInteractionComponent: v.BoundaryInteractionComponent,
		InternalDeformationComponent: v.InternalDeformationComponent,
		MagnitudeKmPerTick:           v.MagnitudeKmPerTick,
		AzimuthDeg:                   v.AzimuthDeg,
	})
}

func decodeVelocity(raw []byte) (VelocityResult, error) {
	var w velocityWire
	if err := msgpack.Unmarshal(raw, &w); err != nil {
		return VelocityResult{}, err
	}
	return VelocityResult{
		Total:                        w.Total,
		PlateRotationComponent:       w.PlateRotationComponent,
		BoundaryInteractionComponent: w.BoundaryInteractionComponent,
		InternalDeformationComponent: w.InternalDeformationComponent,
		MagnitudeKmPerTick:           w.MagnitudeKmPerTick,
		AzimuthDeg:                   w.AzimuthDeg,
	}, nil
}
