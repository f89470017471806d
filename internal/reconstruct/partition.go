package reconstruct

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/topology"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/pkg/ferrors"
)

// PartitionOptions carries the non-policy knobs spec section 6 lists for
// partition: a sliver threshold and whether partial coverage is tolerated.
type PartitionOptions struct {
	MinPolygonArea float64
	AllowPartial   bool
}

// PlatePolygon is a single plate's polygonized outer ring plus any holes.
type PlatePolygon struct {
	PlateID ids.PlateID
	Outer   Ring
	Holes   []Ring
	Area    float64
}

// QualityMetrics records the diagnostics spec section 4.6 requires for
// every partition, strict or not.
type QualityMetrics struct {
	MinArea                 float64
	MaxArea                 float64
	AreaVariance             float64
	SliverCount              int
	OpenBoundaryCount        int
	NonManifoldJunctionCount int
	AmbiguousAttributionCount int
	FaceCount                int
	HoleCount                int
	ComputationTime          time.Duration
	Warnings                 []string
}

// Result is the full output of a partition: the plate polygon set, its
// quality metrics, and whether the partition is valid under the active
// policy.
type Result struct {
	Polygons []PlatePolygon
	Quality  QualityMetrics
	Valid    bool
}

// Partition polygonizes snap's active boundaries into plate polygons under
// policy, per spec section 4.6.
func Partition(ctx context.Context, snap *topology.Snapshot, policy TolerancePolicy, opts PartitionOptions) (*Result, error) {
	start := time.Now()

	arrangement := buildArrangement(snap)
	diag := arrangement.diagnose()

	epsilon := policy.ResolveEpsilon(snap.ActiveBoundaries())

	switch policy.Kind {
	case Strict:
		if len(diag.OpenBoundaryIDs) > 0 || len(diag.NonManifoldJunctionIDs) > 0 || diag.DisconnectedComponents > 1 {
			return nil, &ferrors.InvalidTopology{Diagnostics: diag}
		}
	default:
		// Lenient/Default: topology issues become warnings, checked below
		// after attempting polygonization, per spec section 4.6.
	}

	var warnings []string
	if len(diag.OpenBoundaryIDs) > 0 {
		warnings = append(warnings, openBoundaryWarning(diag.OpenBoundaryIDs))
	}
	if len(diag.NonManifoldJunctionIDs) > 0 {
		warnings = append(warnings, nonManifoldWarning(diag.NonManifoldJunctionIDs))
	}

	polygons, anyOpen := polygonizePlates(snap, arrangement, epsilon)

	if policy.Kind != Strict && anyOpen && !opts.AllowPartial {
		return nil, &ferrors.PolygonizationFailed{Warnings: append(warnings, "sphere coverage incomplete: one or more plate rings failed to close")}
	}

	quality := computeQuality(polygons, opts.MinPolygonArea, diag, warnings, time.Since(start))

	return &Result{Polygons: polygons, Quality: quality, Valid: true}, nil
}

func openBoundaryWarning(boundaryIDs []string) string {
	return "open boundary detected: " + joinUpTo(boundaryIDs, 5)
}

func nonManifoldWarning(junctionIDs []string) string {
	return "non-manifold junction detected: " + joinUpTo(junctionIDs, 5)
}

func joinUpTo(items []string, n int) string {
	if len(items) > n {
		items = items[:n]
	}
	out := ""
	for i, s := range items {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

// polygonizePlates traces each plate's face loops, classifies the largest
// ring as the outer boundary and any remaining rings as holes, and
// enforces CCW winding on outer rings.
func polygonizePlates(snap *topology.Snapshot, arrangement *Arrangement, epsilon float64) ([]PlatePolygon, bool) {
	segmentsByPlate := make(map[ids.PlateID][]directedSegment)
	for _, e := range arrangement.edges {
		segmentsByPlate[e.Left] = append(segmentsByPlate[e.Left], directedSegment{points: e.Points})
		segmentsByPlate[e.Right] = append(segmentsByPlate[e.Right], directedSegment{points: reverse(e.Points)})
	}

	var polygons []PlatePolygon
	anyOpen := false
	for plateID, plate := range snap.Plates {
		if plate.IsRetired {
			continue
		}
		segs := segmentsByPlate[plateID]
		if len(segs) == 0 {
			continue
		}
		rings, open := traceFaceLoops(segs, epsilon)
		if open {
			anyOpen = true
		}
		if len(rings) == 0 {
			continue
		}

		sort.Slice(rings, func(i, j int) bool {
			return math.Abs(signedArea(rings[i])) > math.Abs(signedArea(rings[j]))
		})
		outer := enforceCCW(rings[0])
		holes := rings[1:]

		polygons = append(polygons, PlatePolygon{
			PlateID: plateID,
			Outer:   outer,
			Holes:   holes,
			Area:    math.Abs(signedArea(outer)),
		})
	}

	sort.Slice(polygons, func(i, j int) bool { return polygons[i].PlateID.Less(polygons[j].PlateID) })
	return polygons, anyOpen
}

func computeQuality(polygons []PlatePolygon, minArea float64, diag ferrors.TopologyDiagnostics, warnings []string, elapsed time.Duration) QualityMetrics {
	q := QualityMetrics{
		OpenBoundaryCount:         len(diag.OpenBoundaryIDs),
		NonManifoldJunctionCount:  len(diag.NonManifoldJunctionIDs),
		AmbiguousAttributionCount: len(diag.AmbiguousFaceIndices),
		FaceCount:                 len(polygons),
		ComputationTime:           elapsed,
		Warnings:                  warnings,
	}
	if len(polygons) == 0 {
		return q
	}

	q.MinArea = polygons[0].Area
	q.MaxArea = polygons[0].Area
	var sum, sumSq float64
	for _, p := range polygons {
		if p.Area < q.MinArea {
			q.MinArea = p.Area
		}
		if p.Area > q.MaxArea {
			q.MaxArea = p.Area
		}
		if p.Area < minArea {
			q.SliverCount++
		}
		q.HoleCount += len(p.Holes)
		sum += p.Area
		sumSq += p.Area * p.Area
	}
	mean := sum / float64(len(polygons))
	q.AreaVariance = sumSq/float64(len(polygons)) - mean*mean
	return q
}
