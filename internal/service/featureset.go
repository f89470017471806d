package service

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/kv"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/pkg/ferrors"
)

// FeatureSet names a reconstruction target: the topology stream (and,
// once feature-level filtering exists upstream of Ring tracing, a
// boundary-kind filter) a caller-facing feature_set_id resolves to. It
// is registered once and referenced by id from every subsequent
// Reconstruct call, matching the query contract's feature_set_id
// parameter.
type FeatureSet struct {
	ID     ids.FeatureSetID
	Stream ids.StreamIdentity
}

func featureSetKey(id ids.FeatureSetID) []byte {
	return []byte("FeatureSet:" + id.String())
}

// RegisterFeatureSet mints a new FeatureSetID bound to stream and
// persists the binding in the service's registry store.
func (s *Service) RegisterFeatureSet(ctx context.Context, stream ids.StreamIdentity) (ids.FeatureSetID, error) {
	if stream.IsZero() {
		return ids.FeatureSetID{}, &ferrors.InvalidArgument{Field: "stream", Reason: "stream identity must not be zero"}
	}
	fs := FeatureSet{ID: ids.NewFeatureSetID(), Stream: stream}
	raw, err := msgpack.Marshal(fs)
	if err != nil {
		return ids.FeatureSetID{}, fmt.Errorf("service: encode feature set: %w", err)
	}
	if err := s.registry.Set(ctx, featureSetKey(fs.ID), raw); err != nil {
		return ids.FeatureSetID{}, fmt.Errorf("service: register feature set: %w", err)
	}
	return fs.ID, nil
}

// resolveFeatureSet looks up the stream a feature_set_id was registered
// against.
func (s *Service) resolveFeatureSet(ctx context.Context, id ids.FeatureSetID) (FeatureSet, error) {
	if id.IsZero() {
		return FeatureSet{}, &ferrors.InvalidArgument{Field: "feature_set_id", Reason: "must not be zero"}
	}
	raw, err := s.registry.Get(ctx, featureSetKey(id))
	if err == kv.ErrNotFound {
		return FeatureSet{}, &ferrors.InvalidArgument{Field: "feature_set_id", Reason: fmt.Sprintf("unknown feature set %s", id.String())}
	}
	if err != nil {
		return FeatureSet{}, fmt.Errorf("service: resolve feature set: %w", err)
	}
	var fs FeatureSet
	if err := msgpack.Unmarshal(raw, &fs); err != nil {
		return FeatureSet{}, fmt.Errorf("service: decode feature set: %w", err)
	}
	return fs, nil
}
