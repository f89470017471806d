// Package cache implements the content-addressed derived-artifact cache:
// deterministic input fingerprinting, manifest/payload storage atop the
// kv substrate, and generator-on-miss population with provenance capture.
package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	sha256 "github.com/minio/sha256-simd"
	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/kv"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/pkg/ferrors"
)

// Boundary pins the state version an artifact was generated against: a
// named kind ("sequence", "tick", ...) and the value at that coordinate.
// GC iterates manifests ordered by this field (spec section 4.8), and it
// doubles as the canonical "which version of the truth store" marker
// InputFingerprint folds into the fingerprint.
type Boundary struct {
	Kind  string
	Value string
}

// GeneratorInfo names the generator that produced an artifact and its
// version, so a later generator-version bump can be distinguished from a
// stale cached artifact rather than silently reused.
type GeneratorInfo struct {
	ID      string
	Version string
}

// StorageInfo records the payload's integrity fingerprint and size.
type StorageInfo struct {
	ContentHash string
	SizeBytes   int
}

// Manifest records an artifact's provenance and integrity fingerprints.
// It is stored separately from the payload so a miss can be detected and
// reported without deserializing a potentially large blob. Shape follows
// spec section 3: artifact_kind, input_fingerprint, stream_identity,
// boundary, generator{}, params_hash, storage{}, and an optional params
// blob for debugging/replay.
type Manifest struct {
	Kind           string
	Fingerprint    string
	StreamIdentity string
	Boundary       Boundary
	Generator      GeneratorInfo
	ParamsHash     string
	Params         map[string]any `msgpack:",omitempty"`
	Storage        StorageInfo

	// SequenceAtCreate is the truth-store sequence the artifact was
	// generated against, used by GC's age arithmetic. It is distinct from
	// Boundary, which is GC's sort/grouping key; for most artifact kinds
	// the two move in lockstep but they are not required to.
	SequenceAtCreate uint64
	CreatedAt        int64 // unix nanos, stamped by the caller
}

// Generator produces an artifact's payload bytes and the sequence number
// of the truth-store state it was generated against, on a cache miss.
type Generator func(ctx context.Context) (payload []byte, sequence uint64, err error)

// Request names everything needed to look up or populate one cached
// artifact: the stream it belongs to, the boundary pinning the state
// version queried, the generator's identity, and any parameters that
// participate in the fingerprint (which must include every axis the
// artifact's identity depends on — a reference frame, a tolerance
// policy, a model id — since two requests differing only in Params but
// sharing a fingerprint would silently collide).
type Request struct {
	Kind             string
	StreamIdentity   string
	BoundaryKind     string
	BoundaryValue    string
	GeneratorID      string
	GeneratorVersion string
	Params           map[string]any
}

// Cache is the content-addressed artifact store: a manifest/payload pair
// per (kind, fingerprint), backed by the kv substrate, with a hot
// in-memory manifest cache for repeat lookups within a process.
type Cache struct {
	store       kv.Store
	streamKey   string
	log         *logrus.Entry
	manifestLRU *lru.Cache[string, Manifest]
	now         func() int64
}

// New wires a Cache over store, scoped to streamKey (the owning stream's
// key prefix, so artifacts from distinct topology/kinematics streams
// never collide).
func New(store kv.Store, streamKey string, log *logrus.Entry) *Cache {
	l, _ := lru.New[string, Manifest](2048)
	return &Cache{store: store, streamKey: streamKey, log: log, manifestLRU: l, now: func() int64 { return time.Now().UnixNano() }}
}

// InputFingerprint computes the deterministic fingerprint identifying a
// derived artifact's inputs: the owning stream key, the boundary
// kind/value pinning the state version queried, the generator's identity
// and version, and a canonical hash of its parameters.
func InputFingerprint(streamKey, boundaryKind, boundaryValue, generatorID, generatorVersion string, params map[string]any) (string, error) {
	ph, err := ParamsHash(params)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	for _, part := range []string{streamKey, boundaryKind, boundaryValue, generatorID, generatorVersion, ph} {
		h.Write([]byte(part))
		h.Write([]byte{0}) // separator to prevent field-concatenation collisions
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ParamsHash canonically serializes params (keys sorted) and hashes the
// result, so equivalent parameter sets always fingerprint identically
// regardless of map iteration order. This is the one place the cache
// still reaches for encoding/json rather than msgpack: the sort-then-hash
// trick only needs a stable byte encoding of an already-ordered slice,
// not the wire format the rest of the cache persists state in.
func ParamsHash(params map[string]any) (string, error) {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]keyValue, 0, len(keys))
	for _, k := range keys {
		ordered = append(ordered, keyValue{Key: k, Value: params[k]})
	}
	buf, err := json.Marshal(ordered)
	if err != nil {
		return "", fmt.Errorf("params hash: %w", err)
	}
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:]), nil
}

type keyValue struct {
	Key   string
	Value any
}

func manifestKey(streamKey, kind, fingerprint string) []byte {
	return []byte(streamKey + ":Artifact:" + kind + ":" + fingerprint + ":Manifest")
}

func payloadKey(streamKey, kind, fingerprint string) []byte {
	return []byte(streamKey + ":Artifact:" + kind + ":" + fingerprint + ":Payload")
}

// GetOrCreate returns the cached payload for req, or calls gen to produce
// and atomically store one on a miss. A manifest whose recorded
// fingerprint doesn't match the one recomputed from req, or a payload
// whose content hash doesn't match its manifest, is reported as
// corruption rather than silently regenerated.
func (c *Cache) GetOrCreate(ctx context.Context, req Request, gen Generator) ([]byte, Manifest, error) {
	fingerprint, err := InputFingerprint(req.StreamIdentity, req.BoundaryKind, req.BoundaryValue, req.GeneratorID, req.GeneratorVersion, req.Params)
	if err != nil {
		return nil, Manifest{}, fmt.Errorf("cache: fingerprint: %w", err)
	}
	paramsHash, err := ParamsHash(req.Params)
	if err != nil {
		return nil, Manifest{}, fmt.Errorf("cache: params hash: %w", err)
	}

	if m, ok := c.manifestLRU.Get(fingerprint); ok {
		payload, err := c.readVerifiedPayload(ctx, req.Kind, fingerprint, m)
		if err == nil {
			return payload, m, nil
		}
		if !isNotFound(err) {
			return nil, Manifest{}, err
		}
		// Hot manifest but no payload on disk: treat as a miss below.
	}

	raw, err := c.store.Get(ctx, manifestKey(c.streamKey, req.Kind, fingerprint))
	switch {
	case err == nil:
		var m Manifest
		if uerr := msgpack.Unmarshal(raw, &m); uerr != nil {
			return nil, Manifest{}, fmt.Errorf("cache: decode manifest: %w", uerr)
		}
		if m.Fingerprint != fingerprint {
			return nil, Manifest{}, &ferrors.FingerprintMismatch{Kind: req.Kind, Declared: m.Fingerprint, Computed: fingerprint}
		}
		payload, verr := c.readVerifiedPayload(ctx, req.Kind, fingerprint, m)
		if verr != nil {
			return nil, Manifest{}, verr
		}
		c.manifestLRU.Add(fingerprint, m)
		c.log.WithFields(logrus.Fields{"kind": req.Kind, "fingerprint": fingerprint}).Debug("cache hit")
		return payload, m, nil
	case isNotFound(err):
		// fall through to generation below
	default:
		return nil, Manifest{}, err
	}

	c.log.WithFields(logrus.Fields{"kind": req.Kind, "fingerprint": fingerprint}).Debug("cache miss, generating")
	payload, sequence, err := gen(ctx)
	if err != nil {
		return nil, Manifest{}, fmt.Errorf("cache: generator: %w", err)
	}

	sum := sha256.Sum256(payload)
	m := Manifest{
		Kind:           req.Kind,
		Fingerprint:    fingerprint,
		StreamIdentity: req.StreamIdentity,
		Boundary:       Boundary{Kind: req.BoundaryKind, Value: req.BoundaryValue},
		Generator:      GeneratorInfo{ID: req.GeneratorID, Version: req.GeneratorVersion},
		ParamsHash:     paramsHash,
		Params:         req.Params,
		Storage:        StorageInfo{ContentHash: hex.EncodeToString(sum[:]), SizeBytes: len(payload)},

		SequenceAtCreate: sequence,
		CreatedAt:        c.now(),
	}
	manifestBytes, err := msgpack.Marshal(m)
	if err != nil {
		return nil, Manifest{}, fmt.Errorf("cache: encode manifest: %w", err)
	}

	stored := compress(payload)
	if err := c.store.Batch(ctx, func(b kv.Batch) error {
		if err := b.Set(payloadKey(c.streamKey, req.Kind, fingerprint), stored); err != nil {
			return err
		}
		return b.Set(manifestKey(c.streamKey, req.Kind, fingerprint), manifestBytes)
	}); err != nil {
		return nil, Manifest{}, fmt.Errorf("cache: write artifact: %w", err)
	}

	c.manifestLRU.Add(fingerprint, m)
	return payload, m, nil
}

func (c *Cache) readVerifiedPayload(ctx context.Context, kind, fingerprint string, m Manifest) ([]byte, error) {
	stored, err := c.store.Get(ctx, payloadKey(c.streamKey, kind, fingerprint))
	if err != nil {
		return nil, err
	}
	payload, err := decompress(stored)
	if err != nil {
		return nil, fmt.Errorf("cache: decompress payload: %w", err)
	}
	sum := sha256.Sum256(payload)
	actual := hex.EncodeToString(sum[:])
	if actual != m.Storage.ContentHash {
		return nil, &ferrors.ContentHashMismatch{Declared: m.Storage.ContentHash, Computed: actual}
	}
	return payload, nil
}

func isNotFound(err error) bool {
	return err == kv.ErrNotFound
}
