package cache

import (
	"context"
	"sort"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/kv"
)

// RetentionPolicy bounds how much artifact history a given kind keeps.
// An artifact is eligible for collection only once it is both older than
// MaxSequenceAge (measured in truth-store sequence numbers, not wall
// time, so retention tracks simulation progress rather than the clock)
// and the kind already has more than MinArtifactsToKeep surviving
// entries.
type RetentionPolicy struct {
	MaxSequenceAge     uint64
	MinArtifactsToKeep int
}

// Report summarizes one Collect pass.
type Report struct {
	Scanned int
	Removed int
}

// Collect scans every manifest for kind under the cache's stream prefix,
// sorted by Boundary.Value (spec section 4.8's "sorts by boundary"), and
// removes the manifest/payload pair for any artifact whose
// SequenceAtCreate trails currentSequence by more than
// policy.MaxSequenceAge, stopping once only MinArtifactsToKeep remain.
// For reconstruction artifacts (boundary kind "sequence"), Boundary.Value
// is a fixed-width encoding of the same sequence number SequenceAtCreate
// carries, so sorting by boundary and evaluating oldest-first agree. For
// velocity artifacts (boundary kind "tick"), Boundary.Value is the
// zero-padded query tick, so their scan order follows tick, not
// SequenceAtCreate. The two fields are kept distinct because boundary is the caller-facing
// state-version marker (also folded into the fingerprint) while
// SequenceAtCreate exists purely for this age arithmetic.
func (c *Cache) Collect(ctx context.Context, kind string, currentSequence uint64, policy RetentionPolicy) (Report, error) {
	prefix := []byte(c.streamKey + ":Artifact:" + kind + ":")
	end := prefixUpperBound(prefix)

	it, err := c.store.Iterator(ctx, prefix, end)
	if err != nil {
		return Report{}, err
	}
	defer it.Close()

	type entry struct {
		manifestKey []byte
		payloadKey  []byte
		fingerprint string
		manifest    Manifest
	}
	var entries []entry
	for it.Next() {
		key := it.Key()
		if !hasManifestSuffix(key) {
			continue
		}
		var m Manifest
		if err := msgpack.Unmarshal(it.Value(), &m); err != nil {
			continue // corrupt manifest: leave it for a future pass, not this scan's concern
		}
		entries = append(entries, entry{
			manifestKey: append([]byte(nil), key...),
			payloadKey:  payloadKey(c.streamKey, kind, m.Fingerprint),
			fingerprint: m.Fingerprint,
			manifest:    m,
		})
	}
	if err := it.Error(); err != nil {
		return Report{}, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].manifest.Boundary.Value < entries[j].manifest.Boundary.Value })

	report := Report{Scanned: len(entries)}
	survivors := len(entries)

	for _, e := range entries {
		if survivors <= policy.MinArtifactsToKeep {
			break
		}
		age := currentSequence - e.manifest.SequenceAtCreate
		if e.manifest.SequenceAtCreate > currentSequence || age <= policy.MaxSequenceAge {
			continue
		}
		if err := c.store.Batch(ctx, func(b kv.Batch) error {
			if err := b.Delete(e.payloadKey); err != nil {
				return err
			}
			return b.Delete(e.manifestKey)
		}); err != nil {
			return report, err
		}
		c.manifestLRU.Remove(e.fingerprint)
		report.Removed++
		survivors--
	}
	return report, nil
}

const manifestSuffix = ":Manifest"

func hasManifestSuffix(key []byte) bool {
	if len(key) < len(manifestSuffix) {
		return false
	}
	return string(key[len(key)-len(manifestSuffix):]) == manifestSuffix
}

// prefixUpperBound returns the smallest key strictly greater than every
// key with the given prefix, for use as an iterator's exclusive end
// bound.
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] != 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil // prefix is all 0xff: unbounded above
}
