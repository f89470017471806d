package cache

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/kv"
)

func testCache(t *testing.T) *Cache {
	t.Helper()
	log := logrus.NewEntry(logrus.New())
	c := New(kv.NewMemStore(), "stream:abc", log)
	c.now = func() int64 { return 1 }
	return c
}

func TestGetOrCreateMissThenHit(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()
	calls := 0
	gen := func(ctx context.Context) ([]byte, uint64, error) {
		calls++
		return []byte("artifact payload bytes"), 42, nil
	}

	req := Request{
		Kind: "reconstruction", StreamIdentity: "stream:abc",
		BoundaryKind: "sequence", BoundaryValue: "10",
		GeneratorID: "polygonizer", GeneratorVersion: "v1",
		Params: map[string]any{"epsilon": 1e-6},
	}

	payload1, m1, err := c.GetOrCreate(ctx, req, gen)
	if err != nil {
		t.Fatalf("get or create (miss): %v", err)
	}
	if string(payload1) != "artifact payload bytes" {
		t.Fatalf("unexpected payload: %q", payload1)
	}
	if m1.SequenceAtCreate != 42 {
		t.Fatalf("sequence = %d, want 42", m1.SequenceAtCreate)
	}
	if m1.StreamIdentity != "stream:abc" || m1.Boundary.Kind != "sequence" || m1.Boundary.Value != "10" {
		t.Fatalf("unexpected manifest stream/boundary: %+v", m1)
	}
	if m1.ParamsHash == "" {
		t.Fatal("expected a non-empty params hash")
	}
	if calls != 1 {
		t.Fatalf("generator called %d times, want 1", calls)
	}

	payload2, m2, err := c.GetOrCreate(ctx, req, gen)
	if err != nil {
		t.Fatalf("get or create (hit): %v", err)
	}
	if string(payload2) != "artifact payload bytes" {
		t.Fatalf("unexpected payload on hit: %q", payload2)
	}
	if m2.Storage.ContentHash != m1.Storage.ContentHash {
		t.Fatal("expected identical manifest content hash across hit and miss")
	}
	if calls != 1 {
		t.Fatalf("generator called %d times on repeat lookup, want 1 (cache hit expected)", calls)
	}
}

func TestParamsHashOrderIndependent(t *testing.T) {
	h1, err := ParamsHash(map[string]any{"a": 1, "b": 2})
	if err != nil {
		t.Fatal(err)
	}
	h2, err := ParamsHash(map[string]any{"b": 2, "a": 1})
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Fatal("expected params hash to be independent of map construction order")
	}
}

func TestInputFingerprintPurity(t *testing.T) {
	fp1, err := InputFingerprint("stream:abc", "sequence", "10", "gen", "v1", map[string]any{"x": 1})
	if err != nil {
		t.Fatal(err)
	}
	fp2, err := InputFingerprint("stream:abc", "sequence", "11", "gen", "v1", map[string]any{"x": 1})
	if err != nil {
		t.Fatal(err)
	}
	if fp1 == fp2 {
		t.Fatal("expected different boundary values to yield different fingerprints")
	}
}

func TestCollectRespectsMinArtifactsToKeep(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		seq := uint64(i * 10)
		boundary := string(rune('0' + i))
		req := Request{
			Kind: "kind", StreamIdentity: "stream:abc",
			BoundaryKind: "sequence", BoundaryValue: boundary,
			GeneratorID: "gen", GeneratorVersion: "v1",
		}
		_, _, err := c.GetOrCreate(ctx, req, func(ctx context.Context) ([]byte, uint64, error) {
			return []byte("payload"), seq, nil
		})
		if err != nil {
			t.Fatalf("seed artifact %d: %v", i, err)
		}
	}

	report, err := c.Collect(ctx, "kind", 1000, RetentionPolicy{MaxSequenceAge: 5, MinArtifactsToKeep: 2})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if report.Scanned != 5 {
		t.Fatalf("scanned = %d, want 5", report.Scanned)
	}
	if report.Removed != 3 {
		t.Fatalf("removed = %d, want 3 (keeping the 2 most recent)", report.Removed)
	}
}
