package kinematics

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
)

// rotationCacheKey identifies one (plate, tick) absolute-rotation result
// within a single State. Results are never reused across two different
// States since a State is immutable but distinct per materialization.
type rotationCacheKey struct {
	plate ids.PlateID
	tick  ids.Tick
}

// Evaluator wraps a State with a bounded cross-query memoization cache for
// try_get_rotation, in addition to the per-query memoization §4.4 requires
// internally. This mirrors the hot-path rotation lookups a velocity
// analytics pass performs repeatedly against the same materialized state.
type Evaluator struct {
	state *State
	cache *lru.Cache[rotationCacheKey, ids.Quaternion]
}

// NewEvaluator builds an Evaluator over a materialized State with a
// cross-query memoization cache sized for a single reconstruction/velocity
// pass.
func NewEvaluator(state *State) *Evaluator {
	cache, _ := lru.New[rotationCacheKey, ids.Quaternion](4096)
	return &Evaluator{state: state, cache: cache}
}

// TryGetRotation returns the absolute rotation of plate at tick. It never
// fails: missing kinematics fall back to identity, per spec section 4.4's
// "missing kinematics must not throw" policy.
func (e *Evaluator) TryGetRotation(plate ids.PlateID, tick ids.Tick) ids.Quaternion {
	if tick <= 0 {
		return ids.Identity()
	}
	ps, ok := e.state.Plates[plate]
	if !ok || len(ps.Segments) == 0 {
		return ids.Identity()
	}

	if q, ok := e.cache.Get(rotationCacheKey{plate, tick}); ok {
		return q
	}

	memo := make(map[ids.Tick]ids.Quaternion)
	q := resolveRotation(ps, tick, memo)
	e.cache.Add(rotationCacheKey{plate, tick}, q)
	return q
}

// resolveRotation implements the recursive rule from spec section 4.4,
// memoizing per tick within this single top-level query.
func resolveRotation(ps *PlateState, tick ids.Tick, memo map[ids.Tick]ids.Quaternion) ids.Quaternion {
	if tick <= 0 {
		return ids.Identity()
	}
	if q, ok := memo[tick]; ok {
		return q
	}

	var result ids.Quaternion
	if seg, ok := coveringSegment(ps, tick); ok {
		span := int64(seg.TickB - seg.TickA)
		fraction := float64(int64(tick-seg.TickA)) / float64(span)
		delta := seg.StageRotation.ScaledQuaternion(fraction)
		base := resolveRotation(ps, seg.TickA, memo)
		result = delta.Mul(base).Normalize()
	} else if seg, ok := latestEndingAtOrBefore(ps, tick); ok {
		full := seg.StageRotation.Quaternion()
		base := resolveRotation(ps, seg.TickA, memo)
		result = full.Mul(base).Normalize()
	} else {
		result = ids.Identity()
	}

	memo[tick] = result
	return result
}

// ActiveSegment returns the single motion segment TryGetRotation would
// consult to resolve plate's rotation at tick — the covering segment if
// tick falls within one, otherwise the most recent segment the plate has
// coasted past. Used only to assemble rotation-segment provenance
// references; it never affects the rotation computation itself.
func (st *State) ActiveSegment(plate ids.PlateID, tick ids.Tick) (Segment, bool) {
	ps, ok := st.Plates[plate]
	if !ok {
		return Segment{}, false
	}
	if seg, ok := coveringSegment(ps, tick); ok {
		return seg, true
	}
	return latestEndingAtOrBefore(ps, tick)
}

// coveringSegment finds the first segment (in canonical sorted order —
// latest-starting, shortest) whose (tick_a, tick_b] interval contains
// tick.
func coveringSegment(ps *PlateState, tick ids.Tick) (Segment, bool) {
	for _, seg := range ps.Segments {
		if seg.TickA < tick && tick <= seg.TickB {
			return seg, true
		}
	}
	return Segment{}, false
}

// latestEndingAtOrBefore finds the segment with the largest tick_b that is
// still <= tick ("coast" past the end of the plate's known motion
// history).
func latestEndingAtOrBefore(ps *PlateState, tick ids.Tick) (Segment, bool) {
	var best Segment
	found := false
	for _, seg := range ps.Segments {
		if seg.TickB <= tick && (!found || seg.TickB > best.TickB) {
			best = seg
			found = true
		}
	}
	return best, found
}
