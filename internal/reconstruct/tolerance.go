// Package reconstruct implements the deterministic partition solver that
// polygonizes a topology snapshot's active boundaries into plate polygons
// at a tick, under a tolerance policy.
package reconstruct

import (
	"encoding/hex"
	"math"

	sha256 "github.com/minio/sha256-simd"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/topology"
)

// ToleranceKind discriminates the tolerance policy sum type.
type ToleranceKind int

const (
	Strict ToleranceKind = iota
	Lenient
	Default
)

// MinEpsilon/MaxEpsilon bound the Default mode's heuristically selected
// epsilon, per spec section 4.6.
const (
	MinEpsilon = 1e-12
	MaxEpsilon = 1e-6
)

// TolerancePolicy is the tagged variant governing how much geometric
// imperfection a partition may tolerate.
type TolerancePolicy struct {
	Kind    ToleranceKind
	Epsilon float64 // only meaningful when Kind == Lenient
}

// ResolveEpsilon returns the effective snapping epsilon for this policy,
// auto-selecting and clamping it for Default from the boundary set's
// average segment length and density.
func (p TolerancePolicy) ResolveEpsilon(boundaries []topology.Boundary) float64 {
	switch p.Kind {
	case Strict:
		return 0
	case Lenient:
		return p.Epsilon
	case Default:
		return clamp(autoEpsilon(boundaries), MinEpsilon, MaxEpsilon)
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// autoEpsilon heuristically derives a snapping tolerance from the average
// boundary segment length: denser boundary networks (shorter average
// segments) get a tighter epsilon.
func autoEpsilon(boundaries []topology.Boundary) float64 {
	var totalLen float64
	var segCount int
	for _, b := range boundaries {
		pts := b.Geometry.Points
		for i := 1; i < len(pts); i++ {
			totalLen += greatCircleDistance(pts[i-1], pts[i])
			segCount++
		}
	}
	if segCount == 0 {
		return MaxEpsilon
	}
	avg := totalLen / float64(segCount)
	// A segment's own length is a reasonable order-of-magnitude anchor for
	// how much snapping is tolerable between segments of similar scale;
	// scale down by a few orders of magnitude so snapping never competes
	// with genuine geometric detail.
	return avg / 1e4
}

func greatCircleDistance(a, b topology.GeoPoint) float64 {
	lat1, lon1 := deg2rad(a.LatDeg), deg2rad(a.LonDeg)
	lat2, lon2 := deg2rad(b.LatDeg), deg2rad(b.LonDeg)
	dLat := lat2 - lat1
	dLon := lon2 - lon1
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * math.Asin(math.Min(1, math.Sqrt(h)))
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }

// Bytes returns the type-discriminated byte encoding of the policy used
// in the partition cache key: Strict=0, Lenient=1+epsilon (LE f64),
// Default=2.
func (p TolerancePolicy) Bytes() []byte {
	switch p.Kind {
	case Strict:
		return []byte{0}
	case Lenient:
		b := make([]byte, 9)
		b[0] = 1
		putFloat64LE(b[1:], p.Epsilon)
		return b
	case Default:
		return []byte{2}
	default:
		return []byte{0}
	}
}

func putFloat64LE(b []byte, f float64) {
	bits := math.Float64bits(f)
	for i := 0; i < 8; i++ {
		b[i] = byte(bits >> (8 * i))
	}
}

// CacheKey computes the partition cache key: SHA-256 over
// [topology_stream_hash, polygonizer_version, tolerance_policy_bytes],
// truncated to its first 16 hex characters.
func CacheKey(topologyStreamHash [32]byte, polygonizerVersion string, policy TolerancePolicy) string {
	h := sha256.New()
	h.Write(topologyStreamHash[:])
	h.Write([]byte(polygonizerVersion))
	h.Write(policy.Bytes())
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:8])
}
