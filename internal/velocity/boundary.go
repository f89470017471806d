package velocity

import (
	"math"
	"sort"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/topology"
)

// BoundarySample is one sampled station along a boundary's geometry: its
// location and the decomposed relative-motion rates there.
type BoundarySample struct {
	Location        GeoPoint
	NormalRate      float64 // km/tick, positive = convergent
	TangentialRate  float64 // km/tick, signed strike-slip component
	VerticalRate    float64 // km/tick, placeholder until a dip model exists
	Convergence     float64 // km/tick, max(normal, 0)
	Divergence      float64 // km/tick, max(-normal, 0)
	StrikeSlip      float64 // km/tick, abs(tangential)
	StrikeSlipSense string  // "left-lateral", "right-lateral", or "" when negligible
	Obliquity       float64 // radians, angle between relative motion and boundary normal
}

// BoundaryProfile is the full sampled velocity profile for one boundary.
type BoundaryProfile struct {
	BoundaryID ids.BoundaryID
	Samples    []BoundarySample
}

const strikeSlipNegligible = 1e-9

// SampleBoundary samples b's geometry at approximately sampleSpacingKm
// intervals (chord-length sampling; at least the two endpoints are always
// sampled) and decomposes the left-minus-right relative velocity at each
// station into normal and tangential components.
func SampleBoundary(e *Evaluator, b topology.Boundary, tick ids.Tick, h ids.Tick, sampleSpacingKm float64) BoundaryProfile {
	pts := b.Geometry.Points
	profile := BoundaryProfile{BoundaryID: b.ID}
	if len(pts) < 2 {
		return profile
	}

	stations := sampleStations(pts, sampleSpacingKm)
	for i, st := range stations {
		tangent := tangentAt(stations, i)
		normal := normalFromTangent(tangent, st)

		vx, vy, vz := e.RelativeVelocity(b.Left, b.Right, tick, h, st)
		v := [3]float64{vx, vy, vz}

		normalRate := dot(v, normal)
		tangentialRate := dot(v, tangent)

		sample := BoundarySample{
			Location:       st,
			NormalRate:     normalRate,
			TangentialRate: tangentialRate,
			Convergence:    math.Max(normalRate, 0),
			Divergence:     math.Max(-normalRate, 0),
			StrikeSlip:     math.Abs(tangentialRate),
			Obliquity:      math.Atan2(math.Abs(tangentialRate), math.Abs(normalRate)),
		}
		switch {
		case tangentialRate > strikeSlipNegligible:
			sample.StrikeSlipSense = "right-lateral"
		case tangentialRate < -strikeSlipNegligible:
			sample.StrikeSlipSense = "left-lateral"
		}
		profile.Samples = append(profile.Samples, sample)
	}
	return profile
}

// BatchAnalyze samples every active boundary in snap at tick, sorted by
// BoundaryID for deterministic output.
func BatchAnalyze(e *Evaluator, snap *topology.Snapshot, tick ids.Tick, h ids.Tick, sampleSpacingKm float64) []BoundaryProfile {
	active := snap.ActiveBoundaries()
	sort.Slice(active, func(i, j int) bool { return active[i].ID.Less(active[j].ID) })

	profiles := make([]BoundaryProfile, 0, len(active))
	for _, b := range active {
		profiles = append(profiles, SampleBoundary(e, b, tick, h, sampleSpacingKm))
	}
	return profiles
}

// sampleStations resamples a polyline at roughly spacingKm intervals
// using cumulative great-circle chord length, always including both
// endpoints.
func sampleStations(pts []topology.GeoPoint, spacingKm float64) []GeoPoint {
	if spacingKm <= 0 {
		spacingKm = 50
	}
	var total float64
	cum := make([]float64, len(pts))
	for i := 1; i < len(pts); i++ {
		total += greatCircleKm(pts[i-1], pts[i])
		cum[i] = total
	}
	if total == 0 {
		return []GeoPoint{{LonDeg: pts[0].LonDeg, LatDeg: pts[0].LatDeg}}
	}

	count := int(total/spacingKm) + 1
	if count < 2 {
		count = 2
	}
	stations := make([]GeoPoint, 0, count)
	for i := 0; i < count; i++ {
		target := total * float64(i) / float64(count-1)
		stations = append(stations, interpolateAtDistance(pts, cum, target))
	}
	return stations
}

func interpolateAtDistance(pts []topology.GeoPoint, cum []float64, target float64) GeoPoint {
	for i := 1; i < len(cum); i++ {
		if target <= cum[i] {
			segLen := cum[i] - cum[i-1]
			frac := 0.0
			if segLen > 0 {
				frac = (target - cum[i-1]) / segLen
			}
			a, b := pts[i-1], pts[i]
			return GeoPoint{
				LonDeg: a.LonDeg + (b.LonDeg-a.LonDeg)*frac,
				LatDeg: a.LatDeg + (b.LatDeg-a.LatDeg)*frac,
			}
		}
	}
	last := pts[len(pts)-1]
	return GeoPoint{LonDeg: last.LonDeg, LatDeg: last.LatDeg}
}

func greatCircleKm(a, b topology.GeoPoint) float64 {
	lat1, lon1 := a.LatDeg*math.Pi/180, a.LonDeg*math.Pi/180
	lat2, lon2 := b.LatDeg*math.Pi/180, b.LonDeg*math.Pi/180
	dLat := lat2 - lat1
	dLon := lon2 - lon1
	hav := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Asin(math.Min(1, math.Sqrt(hav)))
}

// tangentAt returns the unit tangent direction at station i, using a
// central difference against its neighbors (or the single available
// neighbor at the endpoints).
func tangentAt(stations []GeoPoint, i int) [3]float64 {
	var prev, next GeoPoint
	switch {
	case len(stations) == 1:
		return [3]float64{0, 0, 0}
	case i == 0:
		prev, next = stations[0], stations[1]
	case i == len(stations)-1:
		prev, next = stations[i-1], stations[i]
	default:
		prev, next = stations[i-1], stations[i+1]
	}
	px, py, pz := unitVector(prev)
	nx, ny, nz := unitVector(next)
	t := [3]float64{nx - px, ny - py, nz - pz}
	return normalize(t)
}

// normalFromTangent returns the unit vector tangent to the sphere at st,
// perpendicular to tangent: the outward radial direction crossed with
// the along-boundary tangent.
func normalFromTangent(tangent [3]float64, st GeoPoint) [3]float64 {
	rx, ry, rz := unitVector(st)
	radial := [3]float64{rx, ry, rz}
	nx, ny, nz := cross(radial, tangent)
	return normalize([3]float64{nx, ny, nz})
}

func normalize(v [3]float64) [3]float64 {
	n := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if n < 1e-15 {
		return v
	}
	return [3]float64{v[0] / n, v[1] / n, v[2] / n}
}

func dot(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}
