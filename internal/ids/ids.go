// Package ids defines the stable, cross-boundary semantic identifiers and
// the canonical tick/stream-identity types shared by every FantaSim-World
// component. Ephemeral, index-local handles (node/edge indices inside a
// derived adjacency graph) are deliberately NOT defined here: they belong
// to the package that owns the arena they index into (see
// internal/reconstruct), and must never escape it.
package ids

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// Tick is the simulation's signed 64-bit integer time coordinate. Zero is
// genesis.
type Tick int64

// raw128 is the common representation for every stable semantic ID: a
// 128-bit value with a canonical lower-case-hex textual form.
type raw128 [16]byte

func (r raw128) String() string { return hex.EncodeToString(r[:]) }

func (r raw128) IsZero() bool { return r == raw128{} }

func (r raw128) bytes() []byte { return r[:] }

func parseRaw128(s string) (raw128, error) {
	var r raw128
	b, err := hex.DecodeString(s)
	if err != nil {
		return r, fmt.Errorf("ids: invalid hex id %q: %w", s, err)
	}
	if len(b) != 16 {
		return r, fmt.Errorf("ids: id %q decodes to %d bytes, want 16", s, len(b))
	}
	copy(r[:], b)
	return r, nil
}

func newRaw128() raw128 {
	u := uuid.New()
	var r raw128
	copy(r[:], u[:])
	return r
}

// Less orders two ids of the same underlying raw128 kind by byte value,
// which is the canonical ascending order used throughout snapshot
// serialization (plates by PlateID, boundaries by BoundaryID, ...).
func lessRaw(a, b raw128) bool { return bytes.Compare(a[:], b[:]) < 0 }

// The following stable semantic ID types are all distinct Go types over
// the same raw128 representation so the compiler catches any attempt to
// pass, say, a JunctionID where a PlateID is expected.

type PlateID raw128
type BoundaryID raw128
type JunctionID raw128
type MotionSegmentID raw128
type FeatureID raw128
type ModelID raw128
type FeatureSetID raw128

func NewPlateID() PlateID                 { return PlateID(newRaw128()) }
func NewBoundaryID() BoundaryID           { return BoundaryID(newRaw128()) }
func NewJunctionID() JunctionID           { return JunctionID(newRaw128()) }
func NewMotionSegmentID() MotionSegmentID { return MotionSegmentID(newRaw128()) }
func NewFeatureID() FeatureID             { return FeatureID(newRaw128()) }
func NewModelID() ModelID                 { return ModelID(newRaw128()) }
func NewFeatureSetID() FeatureSetID       { return FeatureSetID(newRaw128()) }

func (p PlateID) String() string         { return raw128(p).String() }
func (b BoundaryID) String() string      { return raw128(b).String() }
func (j JunctionID) String() string      { return raw128(j).String() }
func (m MotionSegmentID) String() string { return raw128(m).String() }
func (f FeatureID) String() string       { return raw128(f).String() }
func (m ModelID) String() string         { return raw128(m).String() }
func (f FeatureSetID) String() string    { return raw128(f).String() }

func (p PlateID) IsZero() bool         { return raw128(p).IsZero() }
func (b BoundaryID) IsZero() bool      { return raw128(b).IsZero() }
func (j JunctionID) IsZero() bool      { return raw128(j).IsZero() }
func (m MotionSegmentID) IsZero() bool { return raw128(m).IsZero() }
func (f FeatureID) IsZero() bool       { return raw128(f).IsZero() }
func (m ModelID) IsZero() bool         { return raw128(m).IsZero() }
func (f FeatureSetID) IsZero() bool    { return raw128(f).IsZero() }

func (p PlateID) Bytes() []byte         { return raw128(p).bytes() }
func (b BoundaryID) Bytes() []byte      { return raw128(b).bytes() }
func (j JunctionID) Bytes() []byte      { return raw128(j).bytes() }
func (m MotionSegmentID) Bytes() []byte { return raw128(m).bytes() }
func (f FeatureID) Bytes() []byte       { return raw128(f).bytes() }
func (m ModelID) Bytes() []byte         { return raw128(m).bytes() }
func (f FeatureSetID) Bytes() []byte    { return raw128(f).bytes() }

func (p PlateID) Less(o PlateID) bool                 { return lessRaw(raw128(p), raw128(o)) }
func (b BoundaryID) Less(o BoundaryID) bool           { return lessRaw(raw128(b), raw128(o)) }
func (j JunctionID) Less(o JunctionID) bool           { return lessRaw(raw128(j), raw128(o)) }
func (m MotionSegmentID) Less(o MotionSegmentID) bool { return lessRaw(raw128(m), raw128(o)) }
func (f FeatureID) Less(o FeatureID) bool             { return lessRaw(raw128(f), raw128(o)) }
func (m ModelID) Less(o ModelID) bool                 { return lessRaw(raw128(m), raw128(o)) }
func (f FeatureSetID) Less(o FeatureSetID) bool       { return lessRaw(raw128(f), raw128(o)) }

// FeatureIDForPlate derives a source-feature identity from a plate's own
// identity. PlateID and FeatureID share the same underlying raw128
// representation, so this is a direct, lossless conversion: a
// reconstructed polygon's source feature is stably addressable by the
// plate it was polygonized from, without minting a separate registry of
// feature identities per plate.
func FeatureIDForPlate(p PlateID) FeatureID { return FeatureID(p) }

func ParsePlateID(s string) (PlateID, error) {
	r, err := parseRaw128(s)
	return PlateID(r), err
}

func ParseBoundaryID(s string) (BoundaryID, error) {
	r, err := parseRaw128(s)
	return BoundaryID(r), err
}

func ParseJunctionID(s string) (JunctionID, error) {
	r, err := parseRaw128(s)
	return JunctionID(r), err
}

func ParseModelID(s string) (ModelID, error) {
	r, err := parseRaw128(s)
	return ModelID(r), err
}

func ParseFeatureSetID(s string) (FeatureSetID, error) {
	r, err := parseRaw128(s)
	return FeatureSetID(r), err
}

// MarshalText/UnmarshalText give PlateID, BoundaryID, JunctionID, ModelID
// and FeatureSetID canonical textual (de)serialization for JSON and msgpack
// alike. MotionSegmentID and FeatureID do not implement them.

func (p PlateID) MarshalText() ([]byte, error) { return []byte(p.String()), nil }
func (p *PlateID) UnmarshalText(b []byte) error {
	v, err := ParsePlateID(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func (b BoundaryID) MarshalText() ([]byte, error) { return []byte(b.String()), nil }
func (b *BoundaryID) UnmarshalText(t []byte) error {
	v, err := ParseBoundaryID(string(t))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

func (j JunctionID) MarshalText() ([]byte, error) { return []byte(j.String()), nil }
func (j *JunctionID) UnmarshalText(t []byte) error {
	v, err := ParseJunctionID(string(t))
	if err != nil {
		return err
	}
	*j = v
	return nil
}

func (m ModelID) MarshalText() ([]byte, error) { return []byte(m.String()), nil }
func (m *ModelID) UnmarshalText(t []byte) error {
	v, err := ParseModelID(string(t))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

func (f FeatureSetID) MarshalText() ([]byte, error) { return []byte(f.String()), nil }
func (f *FeatureSetID) UnmarshalText(t []byte) error {
	v, err := ParseFeatureSetID(string(t))
	if err != nil {
		return err
	}
	*f = v
	return nil
}
