// Package ferrors defines the error taxonomy shared by every FantaSim-World
// component. Each Kind below corresponds to a row in the spec's error
// handling table: local recovery is allowed only for a small, explicit set
// of conditions (missing kinematics, missing manifest, non-strict
// tolerance warnings); everything else is expected to surface unchanged
// through every layer that does not specifically handle it.
package ferrors

import "fmt"

// Wrap adds context to an error message. It returns nil if err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// InvalidArgument reports a missing/empty identifier or an argument that
// violates a documented precondition (e.g. an empty reference frame).
type InvalidArgument struct {
	Field  string
	Reason string
}

func (e *InvalidArgument) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Field, e.Reason)
}

// TickMonotonicityViolation is raised by an event-store append under the
// Reject tick policy.
type TickMonotonicityViolation struct {
	Stream       string
	PriorTick    int64
	OffendingSeq uint64
	OffendingTick int64
}

func (e *TickMonotonicityViolation) Error() string {
	return fmt.Sprintf("tick monotonicity violation in stream %s: sequence %d has tick %d, prior tick was %d",
		e.Stream, e.OffendingSeq, e.OffendingTick, e.PriorTick)
}

// HashChainCorruption reports a fatal break in an event stream's hash
// chain: a missing record, a hash mismatch, or a broken previous-hash
// link.
type HashChainCorruption struct {
	Stream string
	Seq    uint64
	Reason string
}

func (e *HashChainCorruption) Error() string {
	return fmt.Sprintf("hash chain corruption in stream %s at sequence %d: %s", e.Stream, e.Seq, e.Reason)
}

// SchemaVersionUnsupported reports an on-disk record whose schema_version
// does not match the single schema version this module understands.
type SchemaVersionUnsupported struct {
	Got, Want int32
}

func (e *SchemaVersionUnsupported) Error() string {
	return fmt.Sprintf("schema version %d unsupported, want %d", e.Got, e.Want)
}

// CyclicFrameReference reports a custom reference-frame chain that
// contains a cycle.
type CyclicFrameReference struct {
	Chain []string
}

func (e *CyclicFrameReference) Error() string {
	return fmt.Sprintf("cyclic frame reference: %v", e.Chain)
}

// TopologyDiagnostics carries the detailed reasons a Strict (or
// coverage-failing Lenient) partition was rejected.
type TopologyDiagnostics struct {
	OpenBoundaryIDs       []string
	NonManifoldJunctionIDs []string
	DisconnectedComponents int
	AmbiguousFaceIndices   []int
}

// InvalidTopology is returned when a partition's boundary network fails
// validation under the active tolerance policy.
type InvalidTopology struct {
	Diagnostics TopologyDiagnostics
}

func (e *InvalidTopology) Error() string {
	return fmt.Sprintf("invalid topology: %d open boundaries, %d non-manifold junctions, %d disconnected components, %d ambiguous faces",
		len(e.Diagnostics.OpenBoundaryIDs), len(e.Diagnostics.NonManifoldJunctionIDs),
		e.Diagnostics.DisconnectedComponents, len(e.Diagnostics.AmbiguousFaceIndices))
}

// PolygonizationFailed is returned when a non-strict partition cannot
// achieve full sphere coverage.
type PolygonizationFailed struct {
	Warnings []string
}

func (e *PolygonizationFailed) Error() string {
	return fmt.Sprintf("polygonization failed: %v", e.Warnings)
}

// FingerprintMismatch reports a cache-poisoning condition: the manifest's
// declared input_fingerprint does not match the fingerprint recomputed
// from the caller's declared inputs.
type FingerprintMismatch struct {
	Kind     string
	Declared string
	Computed string
}

func (e *FingerprintMismatch) Error() string {
	return fmt.Sprintf("fingerprint mismatch for artifact kind %s: declared %s, computed %s", e.Kind, e.Declared, e.Computed)
}

// ContentHashMismatch reports a manifest/payload pair whose payload bytes
// do not hash to the manifest's declared content hash.
type ContentHashMismatch struct {
	Declared string
	Computed string
}

func (e *ContentHashMismatch) Error() string {
	return fmt.Sprintf("content hash mismatch: declared %s, computed %s", e.Declared, e.Computed)
}

// Cancelled wraps an observed cancellation signal. Callers that see this
// error are guaranteed no partial durable state was written.
type Cancelled struct {
	Op  string
	Err error
}

func (e *Cancelled) Error() string {
	return fmt.Sprintf("%s cancelled: %v", e.Op, e.Err)
}

func (e *Cancelled) Unwrap() error { return e.Err }
