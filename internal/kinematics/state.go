package kinematics

import (
	"context"
	"sort"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
)

// Segment is a single materialized motion segment.
type Segment struct {
	SegmentID     ids.MotionSegmentID
	TickA, TickB  ids.Tick
	StageRotation ids.StageRotation
}

// PlateState is a plate's ordered list of motion segments, sorted by
// (tick_a desc, tick_b asc, segment_id asc) per spec section 4.4.
type PlateState struct {
	PlateID  ids.PlateID
	Segments []Segment
	ModelID  ids.ModelID
}

func (ps *PlateState) sort() {
	sort.Slice(ps.Segments, func(i, j int) bool {
		a, b := ps.Segments[i], ps.Segments[j]
		if a.TickA != b.TickA {
			return a.TickA > b.TickA
		}
		if a.TickB != b.TickB {
			return a.TickB < b.TickB
		}
		return a.SegmentID.Less(b.SegmentID)
	})
}

func (ps *PlateState) upsert(seg Segment) {
	for i, existing := range ps.Segments {
		if existing.SegmentID == seg.SegmentID {
			ps.Segments[i] = seg
			ps.sort()
			return
		}
	}
	ps.Segments = append(ps.Segments, seg)
	ps.sort()
}

func (ps *PlateState) retire(segmentID ids.MotionSegmentID) {
	for i, existing := range ps.Segments {
		if existing.SegmentID == segmentID {
			ps.Segments = append(ps.Segments[:i], ps.Segments[i+1:]...)
			return
		}
	}
}

// State is the materialized kinematics snapshot: per-plate ordered
// segment lists.
type State struct {
	Plates            map[ids.PlateID]*PlateState
	LastEventSequence uint64
}

// Materialize folds stream's kinematics events up to and including
// targetTick into an immutable State.
func Materialize(ctx context.Context, store *Store, stream ids.StreamIdentity, targetTick ids.Tick) (*State, error) {
	events, err := store.Read(ctx, stream, 0)
	if err != nil {
		return nil, err
	}

	st := &State{Plates: make(map[ids.PlateID]*PlateState)}
	for _, ev := range events {
		if ev.Tick > targetTick {
			continue
		}
		applyEvent(st, ev.Payload)
		st.LastEventSequence = ev.Sequence
	}
	return st, nil
}

func applyEvent(st *State, p Payload) {
	ps, ok := st.Plates[p.PlateID]
	if !ok {
		ps = &PlateState{PlateID: p.PlateID}
		st.Plates[p.PlateID] = ps
	}
	switch p.Kind {
	case KindMotionSegmentUpserted:
		ps.upsert(Segment{SegmentID: p.SegmentID, TickA: p.TickA, TickB: p.TickB, StageRotation: p.StageRotation})
	case KindMotionSegmentRetired:
		ps.retire(p.SegmentID)
	case KindPlateMotionModelAssigned:
		ps.ModelID = p.ModelID
	}
}
