package reconstruct

import (
	"math"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/topology"
)

// Ring is a closed loop of points on the sphere, first point implicitly
// equal to the last.
type Ring struct {
	Points []topology.GeoPoint
}

type directedSegment struct {
	points []topology.GeoPoint
	used   bool
}

// traceFaceLoops stitches a plate's directed boundary segments (already
// oriented so the plate lies to the left of travel) into closed rings,
// snapping endpoints within epsilon. Any segment left unconsumed because
// no matching endpoint was found within epsilon contributes to the open
// flag; its boundary is already separately reported by diagnose().
func traceFaceLoops(segments []directedSegment, epsilon float64) (rings []Ring, openRemainder bool) {
	for {
		startIdx := -1
		for i, s := range segments {
			if !s.used {
				startIdx = i
				break
			}
		}
		if startIdx == -1 {
			break
		}

		ring := append([]topology.GeoPoint(nil), segments[startIdx].points...)
		segments[startIdx].used = true

		for {
			last := ring[len(ring)-1]
			if closeEnough(last, ring[0], epsilon) {
				break
			}
			next, idx, reversed, found := findConnecting(segments, last, epsilon)
			if !found {
				openRemainder = true
				break
			}
			segments[idx].used = true
			if reversed {
				next = reverse(next)
			}
			// Skip the first point of next: it coincides with last.
			ring = append(ring, next[1:]...)
		}

		rings = append(rings, Ring{Points: ring})
	}
	return rings, openRemainder
}

func findConnecting(segments []directedSegment, from topology.GeoPoint, epsilon float64) (points []topology.GeoPoint, idx int, reversed bool, found bool) {
	for i, s := range segments {
		if s.used || len(s.points) == 0 {
			continue
		}
		if closeEnough(s.points[0], from, epsilon) {
			return s.points, i, false, true
		}
		if closeEnough(s.points[len(s.points)-1], from, epsilon) {
			return s.points, i, true, true
		}
	}
	return nil, 0, false, false
}

func reverse(pts []topology.GeoPoint) []topology.GeoPoint {
	out := make([]topology.GeoPoint, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

func closeEnough(a, b topology.GeoPoint, epsilon float64) bool {
	return greatCircleDistance(a, b) <= epsilon
}

// signedArea returns the simplified spherical-excess approximation of a
// ring's area on a unit sphere, positive for counter-clockwise winding
// viewed from outside the sphere. Spec section 9 notes a simplified
// interior-angle-sum style formula is acceptable; precise Girard's-theorem
// area is not mandated.
func signedArea(r Ring) float64 {
	pts := r.Points
	if len(pts) < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < len(pts); i++ {
		p1 := pts[i]
		p2 := pts[(i+1)%len(pts)]
		lon1, lat1 := deg2rad(p1.LonDeg), deg2rad(p1.LatDeg)
		lon2, lat2 := deg2rad(p2.LonDeg), deg2rad(p2.LatDeg)
		sum += (lon2 - lon1) * (2 + math.Sin(lat1) + math.Sin(lat2))
	}
	return sum / 4
}

// enforceCCW reverses r in place if its signed area is negative, so every
// returned outer ring winds counter-clockwise viewed from outside the
// sphere.
func enforceCCW(r Ring) Ring {
	if signedArea(r) < 0 {
		return Ring{Points: reverse(r.Points)}
	}
	return r
}
