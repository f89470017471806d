// Package velocity derives angular and linear plate-motion velocities,
// and per-boundary kinematic profiles, from a materialized kinematics
// state's rotation evaluator.
package velocity

import (
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/pkg/ferrors"
)

// FrameKind discriminates the reference-frame sum type.
type FrameKind int

const (
	MantleFrame FrameKind = iota
	AbsoluteFrame
	PlateAnchor
	CustomFrame
)

// Frame is the tagged variant selecting which reference frame a velocity
// query is expressed in. AbsoluteFrame is kept as a distinct tag from
// MantleFrame for call-site clarity, per the Open Question resolution in
// the design ledger: it resolves identically to MantleFrame since the
// rotation model itself is already mantle-referenced.
type Frame struct {
	Kind    FrameKind
	Plate   ids.PlateID   // meaningful only for PlateAnchor
	Chain   []ids.PlateID // meaningful only for CustomFrame: successive anchors to subtract
}

// resolveFrameRotation returns the absolute rotation that velocities must
// be expressed relative to: identity for Mantle/Absolute, the anchor
// plate's own absolute rotation for PlateAnchor, and the composed chain
// rotation for CustomFrame. A chain that revisits a plate is a cycle and
// is rejected rather than silently looping.
func resolveFrameRotation(eval *Evaluator, frame Frame, tick ids.Tick) (ids.Quaternion, error) {
	switch frame.Kind {
	case MantleFrame, AbsoluteFrame:
		return ids.Identity(), nil
	case PlateAnchor:
		return eval.rotation(frame.Plate, tick), nil
	case CustomFrame:
		seen := make(map[ids.PlateID]bool, len(frame.Chain))
		result := ids.Identity()
		chainStrs := make([]string, 0, len(frame.Chain))
		for _, p := range frame.Chain {
			if seen[p] {
				chainStrs = append(chainStrs, p.String())
				return ids.Quaternion{}, &ferrors.CyclicFrameReference{Chain: chainStrs}
			}
			seen[p] = true
			chainStrs = append(chainStrs, p.String())
			result = eval.rotation(p, tick).Mul(result).Normalize()
		}
		return result, nil
	default:
		return ids.Identity(), nil
	}
}
