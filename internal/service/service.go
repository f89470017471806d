// Package service is the top-level façade: it composes the topology and
// kinematics event stores, the reconstruction/partition solver, the
// velocity analytics layer, the feature-set registry, and the artifact
// cache into the small set of operations an external caller needs
// (reconstruct, query plate id, query velocity), assembling a complete
// provenance chain for each.
package service

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	sha256 "github.com/minio/sha256-simd"
	"github.com/sirupsen/logrus"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/cache"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/kinematics"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/kv"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/reconstruct"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/topology"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/velocity"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/pkg/ferrors"
)

const (
	// PolygonizerVersion is stamped into every reconstruction's cache key
	// and provenance record, so a future change to the polygonization
	// algorithm invalidates previously cached artifacts instead of
	// silently reusing stale ones.
	PolygonizerVersion = "reconstruct-v1"
	// VelocitySolverVersion is the velocity decomposition's own
	// generator identity, distinct from the polygonizer's.
	VelocitySolverVersion = "velocity-v1"
	// QueryContractVersion identifies the shape of the three query
	// operations themselves (arguments, result fields), independent of
	// either solver's version, so a caller can detect a contract change
	// that isn't visible in the numeric output.
	QueryContractVersion = "fantasim-query-v1"
)

// StrictnessKind discriminates how completely a result's provenance chain
// must be populated for the caller to accept it.
type StrictnessKind int

const (
	// Strict rejects a result whose provenance chain has no source id in
	// any of its source id lists, a zero topology stream hash, or an empty
	// query contract version or solver implementation id. The kinematics
	// model reference is not checked.
	Strict StrictnessKind = iota
	// Lenient accepts a result regardless of provenance completeness,
	// but still reports what is missing via Provenance's own fields
	// (empty slices/zero hashes are visible to the caller).
	Lenient
	// Permissive is Lenient's synonym for callers that never intend to
	// inspect provenance completeness at all; it exists as a distinct
	// tag (rather than reusing Lenient) so a caller's chosen strictness
	// is preserved through round-tripping rather than collapsed.
	Permissive
)

func (k StrictnessKind) String() string {
	switch k {
	case Strict:
		return "strict"
	case Lenient:
		return "lenient"
	case Permissive:
		return "permissive"
	default:
		return "unknown"
	}
}

// StrictnessPolicy governs provenance-chain completeness validation. It is
// distinct from reconstruct.TolerancePolicy, which governs topology and
// geometry tolerance: a query can demand loose geometric tolerance while
// still demanding a fully populated provenance chain, or vice versa.
type StrictnessPolicy struct {
	Kind StrictnessKind
}

// Validate reports whether prov satisfies p. Only Strict ever rejects.
func (p StrictnessPolicy) Validate(prov Provenance) error {
	if p.Kind != Strict {
		return nil
	}
	if len(prov.SourceFeatureIDs) == 0 && len(prov.SourceBoundaryIDs) == 0 && len(prov.SourceJunctionIDs) == 0 {
		return &ferrors.InvalidArgument{Field: "provenance.source_ids", Reason: "strict strictness policy requires at least one populated source id list"}
	}
	if prov.TopologyStreamHash == ([32]byte{}) {
		return &ferrors.InvalidArgument{Field: "provenance.topology_stream_hash", Reason: "strict strictness policy requires a non-zero topology stream hash"}
	}
	if prov.QueryContractVersion == "" || prov.SolverImplementationID == "" {
		return &ferrors.InvalidArgument{Field: "provenance.solver_implementation_id", Reason: "strict strictness policy requires query contract and solver identity"}
	}
	return nil
}

// RotationSegmentRef names the single motion segment a kinematics
// evaluation actually consulted, and a hash of its Euler pole/angle so two
// provenance records can be compared for rotation-input equality without
// exposing the raw pole coordinates as a separate, easily-misused field.
type RotationSegmentRef struct {
	SegmentID     ids.MotionSegmentID
	EulerPoleHash string
}

// Provenance records the complete chain a query's result is traceable
// through: the source features/boundaries/junctions it was derived from,
// the plate and kinematics model involved, the rotation segments actually
// consulted, the topology state's content hash, the query/solver/frame
// identity, and the artifact cache coordinates that served it.
type Provenance struct {
	QueryContractVersion     string
	SolverImplementationID   string
	ReferenceFrame           string
	FrameTransformProvenance string

	TopologyStreamKey   string
	KinematicsStreamKey string
	TopologyStreamHash  [32]byte
	Tick                ids.Tick

	SourceFeatureIDs  []ids.FeatureID
	SourceBoundaryIDs []ids.BoundaryID
	SourceJunctionIDs []ids.JunctionID
	PlateID           ids.PlateID

	KinematicsModelID      ids.ModelID
	KinematicsModelVersion string
	RotationSegments       []RotationSegmentRef

	CacheFingerprint string
	CacheHit         bool
	GeneratorID      string
	GeneratorVersion string
	ComputedAt       int64
}

// Feature is one reconstructed plate polygon, addressable by a stable
// feature id derived from the plate it was traced from.
type Feature struct {
	FeatureID       ids.FeatureID
	SourceFeatureID ids.FeatureID
	PlateID         ids.PlateID
	Polygon         reconstruct.PlatePolygon
}

// ReconstructResult bundles a reconstructed feature set with its
// provenance, features sorted ascending by SourceFeatureID.
type ReconstructResult struct {
	Features   []Feature
	Quality    reconstruct.QualityMetrics
	Valid      bool
	Provenance Provenance
}

// Confidence classifies how certain a point-to-plate assignment is.
type Confidence int

const (
	// Unassigned: the point falls inside no reconstructed plate.
	Unassigned Confidence = iota
	// Uncertain: the point falls inside more than one plate polygon
	// (an overlap artifact of imperfect topology), with no single
	// answer preferable over another.
	Uncertain
	// Boundary: the point falls inside exactly one plate polygon, but
	// close enough to its outline that snapping tolerance could have
	// placed it on the other side.
	Boundary
	// Certain: the point falls inside exactly one plate polygon, well
	// clear of its outline.
	Certain
)

func (c Confidence) String() string {
	switch c {
	case Certain:
		return "certain"
	case Uncertain:
		return "uncertain"
	case Boundary:
		return "boundary"
	default:
		return "unassigned"
	}
}

// PlateCandidate is one of several plates a point could plausibly belong
// to, with an assigned probability.
type PlateCandidate struct {
	PlateID     ids.PlateID
	Probability float64
}

// PlateAssignmentResult is QueryPlateID's result: the resolved (or
// best-guess) plate, a confidence classification, any candidate
// plates considered when confidence is Uncertain, and provenance.
type PlateAssignmentResult struct {
	PlateID    ids.PlateID
	Confidence Confidence
	Candidates []PlateCandidate
	Provenance Provenance
}

// VelocityComponent is a single Cartesian velocity vector, km/tick in an
// Earth-centered frame.
type VelocityComponent struct {
	VX, VY, VZ float64
}

// VelocityResult decomposes a point's velocity into named physical
// contributions. Total numerically equals PlateRotationComponent: the
// rigid-body rotation is the only additive driver of a point's own
// motion this substrate models. BoundaryInteractionComponent is a
// non-additive diagnostic lens (this plate's motion relative to its
// nearest neighbor across the closest boundary), zero when no boundary
// is near. InternalDeformationComponent is always the zero vector: no
// intraplate deformation model exists in this substrate.
type VelocityResult struct {
	Total                        VelocityComponent
	PlateRotationComponent       VelocityComponent
	BoundaryInteractionComponent VelocityComponent
	InternalDeformationComponent VelocityComponent
	MagnitudeKmPerTick           float64
	AzimuthDeg                   float64

	PlateID ids.PlateID
	ModelID ids.ModelID
	Frame   velocity.Frame

	Provenance Provenance
}

// Service is the FantaSim-World façade over one (topology, kinematics)
// stream pair and a shared feature-set registry.
type Service struct {
	topologyStore   *topology.Store
	kinematicsStore *kinematics.Store
	artifacts       *cache.Cache
	registry        kv.Store
	log             *logrus.Entry
	now             func() int64
}

// New wires a Service over the given domain stores, artifact cache, and
// feature-set registry store.
func New(topologyStore *topology.Store, kinematicsStore *kinematics.Store, artifacts *cache.Cache, registry kv.Store, log *logrus.Entry) *Service {
	return &Service{
		topologyStore:   topologyStore,
		kinematicsStore: kinematicsStore,
		artifacts:       artifacts,
		registry:        registry,
		log:             log,
		now:             func() int64 { return time.Now().UnixNano() },
	}
}

// Reconstruct materializes the topology stream a feature set names, at
// targetTick, and polygonizes it under policy, serving from the artifact
// cache when the fingerprint matches a prior run. The returned features
// are sorted ascending by SourceFeatureID.
func (s *Service) Reconstruct(ctx context.Context, featureSetID ids.FeatureSetID, targetTick ids.Tick, policy reconstruct.TolerancePolicy, opts reconstruct.PartitionOptions) (*ReconstructResult, error) {
	fs, err := s.resolveFeatureSet(ctx, featureSetID)
	if err != nil {
		return nil, err
	}
	topologyStream := fs.Stream

	lastSeq, _, err := s.topologyStore.LastSequence(ctx, topologyStream)
	if err != nil {
		return nil, fmt.Errorf("service: reconstruct: %w", err)
	}
	streamHash, err := s.topologyStore.StreamHash(ctx, topologyStream)
	if err != nil {
		return nil, fmt.Errorf("service: reconstruct: stream hash: %w", err)
	}

	req := cache.Request{
		Kind:             "reconstruction",
		StreamIdentity:   topologyStream.String(),
		BoundaryKind:     "sequence",
		BoundaryValue:    seqString(lastSeq),
		GeneratorID:      "polygonizer",
		GeneratorVersion: PolygonizerVersion,
		Params:           map[string]any{"tick": int64(targetTick), "tolerance": policy.Bytes()},
	}

	hit := true
	payload, manifest, err := s.artifacts.GetOrCreate(ctx, req, func(ctx context.Context) ([]byte, uint64, error) {
		hit = false
		snap, err := topology.Materialize(ctx, s.topologyStore, topologyStream, targetTick, topology.Auto)
		if err != nil {
			return nil, 0, err
		}
		result, err := reconstruct.Partition(ctx, snap, policy, opts)
		if err != nil {
			return nil, 0, err
		}
		encoded, err := encodePartition(result)
		if err != nil {
			return nil, 0, err
		}
		return encoded, lastSeq, nil
	})
	if err != nil {
		return nil, err
	}

	result, err := decodePartition(payload)
	if err != nil {
		return nil, fmt.Errorf("service: decode cached partition: %w", err)
	}

	features := make([]Feature, 0, len(result.Polygons))
	sourceFeatureIDs := make([]ids.FeatureID, 0, len(result.Polygons))
	for _, poly := range result.Polygons {
		sourceFeatureID := ids.FeatureIDForPlate(poly.PlateID)
		features = append(features, Feature{
			FeatureID:       ids.NewFeatureID(),
			SourceFeatureID: sourceFeatureID,
			PlateID:         poly.PlateID,
			Polygon:         poly,
		})
		sourceFeatureIDs = append(sourceFeatureIDs, sourceFeatureID)
	}
	sort.Slice(features, func(i, j int) bool {
		return features[i].SourceFeatureID.Less(features[j].SourceFeatureID)
	})
	sort.Slice(sourceFeatureIDs, func(i, j int) bool { return sourceFeatureIDs[i].Less(sourceFeatureIDs[j]) })

	prov := Provenance{
		QueryContractVersion:   QueryContractVersion,
		SolverImplementationID: PolygonizerVersion,
		TopologyStreamKey:      topologyStream.String(),
		TopologyStreamHash:     streamHash,
		Tick:                   targetTick,
		SourceFeatureIDs:       sourceFeatureIDs,
		CacheFingerprint:       manifest.Fingerprint,
		CacheHit:               hit,
		GeneratorID:            manifest.Generator.ID,
		GeneratorVersion:       manifest.Generator.Version,
		ComputedAt:             s.now(),
	}
	return &ReconstructResult{Features: features, Quality: result.Quality, Valid: result.Valid, Provenance: prov}, nil
}

const boundaryEpsilonDeg = 1e-6

// QueryPlateID resolves which plate's reconstructed polygon contains
// point at tick, classifying the result's confidence and, when more than
// one polygon matches, returning equal-probability candidates for each.
func (s *Service) QueryPlateID(ctx context.Context, featureSetID ids.FeatureSetID, tick ids.Tick, point velocity.GeoPoint, policy reconstruct.TolerancePolicy) (*PlateAssignmentResult, error) {
	rr, err := s.Reconstruct(ctx, featureSetID, tick, policy, reconstruct.PartitionOptions{AllowPartial: true})
	if err != nil {
		return nil, err
	}

	var matches []ids.PlateID
	nearBoundary := false
	for _, f := range rr.Features {
		poly := f.Polygon
		if !ringContains(poly.Outer, point) || anyHoleContains(poly.Holes, point) {
			continue
		}
		matches = append(matches, poly.PlateID)
		if distanceToRingDeg(poly.Outer, point) < boundaryEpsilonDeg {
			nearBoundary = true
		}
	}

	res := &PlateAssignmentResult{Provenance: rr.Provenance}
	switch {
	case len(matches) == 0:
		res.Confidence = Unassigned
	case len(matches) == 1:
		res.PlateID = matches[0]
		res.Provenance.PlateID = matches[0]
		if nearBoundary {
			res.Confidence = Boundary
		} else {
			res.Confidence = Certain
		}
	default:
		res.Confidence = Uncertain
		probability := 1.0 / float64(len(matches))
		for _, m := range matches {
			res.Candidates = append(res.Candidates, PlateCandidate{PlateID: m, Probability: probability})
		}
		res.PlateID = matches[0]
		res.Provenance.PlateID = matches[0]
	}
	return res, nil
}

// QueryVelocity resolves the plate owning point (via the same topology
// feature set QueryPlateID uses), validates it against modelID, and
// evaluates its velocity at tick in frame, decomposed into named
// components. The artifact cache key folds in the frame's full identity
// (kind, anchor plate, chain) so two queries differing only by reference
// frame never collide.
func (s *Service) QueryVelocity(ctx context.Context, topologyFeatureSetID ids.FeatureSetID, kinematicsStream ids.StreamIdentity, point velocity.GeoPoint, tick ids.Tick, modelID ids.ModelID, frame velocity.Frame) (*VelocityResult, error) {
	if frame.Kind == velocity.CustomFrame && len(frame.Chain) == 0 {
		return nil, &ferrors.InvalidArgument{Field: "frame.chain", Reason: "custom frame must name at least one anchor plate"}
	}

	fs, err := s.resolveFeatureSet(ctx, topologyFeatureSetID)
	if err != nil {
		return nil, err
	}

	assignment, err := s.QueryPlateID(ctx, topologyFeatureSetID, tick, point, reconstruct.TolerancePolicy{Kind: reconstruct.Default})
	if err != nil {
		return nil, err
	}
	if assignment.Confidence == Unassigned {
		return nil, &ferrors.InvalidArgument{Field: "point", Reason: "point does not lie within any reconstructed plate at this tick"}
	}
	plate := assignment.PlateID

	state, err := kinematics.Materialize(ctx, s.kinematicsStore, kinematicsStream, tick)
	if err != nil {
		return nil, fmt.Errorf("service: materialize kinematics: %w", err)
	}
	if ps, ok := state.Plates[plate]; ok && !ps.ModelID.IsZero() && !modelID.IsZero() && ps.ModelID != modelID {
		return nil, &ferrors.InvalidArgument{Field: "model_id", Reason: fmt.Sprintf("does not match the kinematics model assigned to plate %s", plate.String())}
	}

	eval := velocity.NewEvaluator(kinematics.NewEvaluator(state))

	req := cache.Request{
		Kind:             "velocity",
		StreamIdentity:   kinematicsStream.String(),
		BoundaryKind:     "tick",
		BoundaryValue:    fmt.Sprintf("%020d", int64(tick)),
		GeneratorID:      "velocity-evaluator",
		GeneratorVersion: VelocitySolverVersion,
		Params: map[string]any{
			"plate":       plate.String(),
			"model":       modelID.String(),
			"point_lon":   point.LonDeg,
			"point_lat":   point.LatDeg,
			"frame_kind":  int(frame.Kind),
			"frame_plate": frame.Plate.String(),
			"frame_chain": frameChainStrings(frame.Chain),
		},
	}

	hit := true
	payload, manifest, err := s.artifacts.GetOrCreate(ctx, req, func(ctx context.Context) ([]byte, uint64, error) {
		hit = false
		vr, err := s.decomposeVelocity(ctx, fs.Stream, eval, plate, tick, point, frame)
		if err != nil {
			return nil, 0, err
		}
		encoded, err := encodeVelocity(vr)
		if err != nil {
			return nil, 0, err
		}
		return encoded, state.LastEventSequence, nil
	})
	if err != nil {
		return nil, err
	}

	result, err := decodeVelocity(payload)
	if err != nil {
		return nil, fmt.Errorf("service: decode cached velocity: %w", err)
	}
	result.PlateID = plate
	result.ModelID = modelID
	result.Frame = frame
	result.Provenance = Provenance{
		QueryContractVersion:     QueryContractVersion,
		SolverImplementationID:   VelocitySolverVersion,
		ReferenceFrame:           frameLabel(frame),
		FrameTransformProvenance: frameTransformProvenance(frame),
		KinematicsStreamKey:      kinematicsStream.String(),
		Tick:                     tick,
		PlateID:                  plate,
		KinematicsModelID:        modelID,
		RotationSegments:         rotationSegmentRefs(state, plate, tick),
		CacheFingerprint:         manifest.Fingerprint,
		CacheHit:                 hit,
		GeneratorID:              manifest.Generator.ID,
		GeneratorVersion:         manifest.Generator.Version,
		ComputedAt:               s.now(),
	}
	return &result, nil
}

// decomposeVelocity computes the rigid-body rotation component directly,
// and the boundary-interaction component by finding plate's nearest
// active boundary to point and evaluating the relative velocity against
// whichever neighboring plate sits across it.
func (s *Service) decomposeVelocity(ctx context.Context, topologyStream ids.StreamIdentity, eval *velocity.Evaluator, plate ids.PlateID, tick ids.Tick, point velocity.GeoPoint, frame velocity.Frame) (VelocityResult, error) {
	px, py, pz, err := eval.ComputeVelocityInFrame(plate, tick, 1, point, frame)
	if err != nil {
		return VelocityResult{}, err
	}
	rotation := VelocityComponent{VX: px, VY: py, VZ: pz}

	boundaryComponent, err := s.boundaryInteractionComponent(ctx, topologyStream, eval, plate, tick, point)
	if err != nil {
		return VelocityResult{}, err
	}

	total := rotation
	magnitude := vectorMagnitude(total)
	azimuth := vectorAzimuthDeg(total)

	return VelocityResult{
		Total:                        total,
		PlateRotationComponent:       rotation,
		BoundaryInteractionComponent: boundaryComponent,
		InternalDeformationComponent: VelocityComponent{},
		MagnitudeKmPerTick:           magnitude,
		AzimuthDeg:                   azimuth,
	}, nil
}

// boundaryInteractionComponent finds plate's nearest active boundary to
// point and returns plate's relative velocity against whichever
// neighboring plate sits across it, or the zero vector if plate has no
// active boundary in this topology snapshot.
func (s *Service) boundaryInteractionComponent(ctx context.Context, topologyStream ids.StreamIdentity, eval *velocity.Evaluator, plate ids.PlateID, tick ids.Tick, point velocity.GeoPoint) (VelocityComponent, error) {
	snap, err := topology.Materialize(ctx, s.topologyStore, topologyStream, tick, topology.Auto)
	if err != nil {
		return VelocityComponent{}, err
	}

	var nearest *topology.Boundary
	nearestDist := 0.0
	for _, b := range snap.ActiveBoundaries() {
		if b.Left != plate && b.Right != plate {
			continue
		}
		d := nearestPointDistanceDeg(b.Geometry.Points, point)
		if nearest == nil || d < nearestDist {
			bb := b
			nearest = &bb
			nearestDist = d
		}
	}
	if nearest == nil {
		return VelocityComponent{}, nil
	}

	other := nearest.Left
	if other == plate {
		other = nearest.Right
	}
	vx, vy, vz := eval.RelativeVelocity(plate, other, tick, 1, point)
	return VelocityComponent{VX: vx, VY: vy, VZ: vz}, nil
}

func frameChainStrings(chain []ids.PlateID) []string {
	out := make([]string, len(chain))
	for i, p := range chain {
		out[i] = p.String()
	}
	return out
}

func frameLabel(f velocity.Frame) string {
	switch f.Kind {
	case velocity.MantleFrame:
		return "mantle"
	case velocity.AbsoluteFrame:
		return "absolute"
	case velocity.PlateAnchor:
		return "plate:" + f.Plate.String()
	case velocity.CustomFrame:
		return "custom:" + strings.Join(frameChainStrings(f.Chain), ",")
	default:
		return "unknown"
	}
}

func frameTransformProvenance(f velocity.Frame) string {
	switch f.Kind {
	case velocity.CustomFrame:
		return "composed-chain:" + strings.Join(frameChainStrings(f.Chain), ",")
	case velocity.PlateAnchor:
		return "single-anchor:" + f.Plate.String()
	default:
		return "identity"
	}
}

// rotationSegmentRefs names the single motion segment that resolved
// plate's rotation at tick, for provenance. Returns nil when the plate
// has no kinematics history at all (rotation resolves to identity by
// fallback, per kinematics.Evaluator.TryGetRotation's contract).
func rotationSegmentRefs(state *kinematics.State, plate ids.PlateID, tick ids.Tick) []RotationSegmentRef {
	seg, ok := state.ActiveSegment(plate, tick)
	if !ok {
		return nil
	}
	return []RotationSegmentRef{{SegmentID: seg.SegmentID, EulerPoleHash: eulerPoleHash(seg.StageRotation)}}
}

// eulerPoleHash hashes a stage rotation's three microdegree/microdegree
// fields, so two provenance records can be compared for rotation-input
// equality without carrying the raw pole coordinates as a separate field.
func eulerPoleHash(sr ids.StageRotation) string {
	buf := make([]byte, 24)
	binary.BigEndian.PutUint64(buf[0:8], uint64(sr.PoleLonMicrodeg))
	binary.BigEndian.PutUint64(buf[8:16], uint64(sr.PoleLatMicrodeg))
	binary.BigEndian.PutUint64(buf[16:24], uint64(sr.AngleMicrodeg))
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])
}

func seqString(seq uint64) string {
	return hex.EncodeToString([]byte(fmt.Sprintf("%016x", seq)))
}
