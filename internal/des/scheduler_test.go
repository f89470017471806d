package des

import (
	"context"
	"testing"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/eventlog"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/kv"
)

func TestSameKeyOrderingPreservesScheduleOrder(t *testing.T) {
	s := NewScheduler(nil)
	payloads := []string{"first", "second", "third", "fourth", "fifth"}
	for _, p := range payloads {
		s.Schedule(100, Geosphere, 42, p)
	}

	var got []string
	for s.Len() > 0 {
		item, _ := s.Dequeue()
		got = append(got, item.Payload.(string))
	}
	for i, want := range payloads {
		if got[i] != want {
			t.Fatalf("dequeue order = %v, want %v", got, payloads)
		}
	}
}

func TestTieBreakStrictlyIncreasing(t *testing.T) {
	s := NewScheduler(nil)
	a := s.Schedule(1, Geosphere, 1, nil)
	b := s.Schedule(1, Geosphere, 1, nil)
	if b.TieBreak <= a.TieBreak {
		t.Fatalf("tie_break not strictly increasing: %d then %d", a.TieBreak, b.TieBreak)
	}
}

func TestOrderingAcrossWhenSphereKind(t *testing.T) {
	s := NewScheduler(nil)
	s.Schedule(2, Geosphere, 1, "late")
	s.Schedule(1, Biosphere, 1, "early-biosphere")
	s.Schedule(1, Geosphere, 2, "early-geo-kind2")
	s.Schedule(1, Geosphere, 1, "early-geo-kind1")

	var order []string
	for s.Len() > 0 {
		item, _ := s.Dequeue()
		order = append(order, item.Payload.(string))
	}
	want := []string{"early-geo-kind1", "early-geo-kind2", "early-biosphere", "late"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestRunDispatchesAndAppendsUntilEndTick(t *testing.T) {
	stream := ids.StreamIdentity{Variant: "v1", Branch: "main", Level: 0, Domain: ids.DomainTopology, Model: "m1"}
	store := eventlog.NewStore(kv.NewMemStore(), nil)

	s := NewScheduler(nil)
	s.Schedule(10, Geosphere, 1, "a")
	s.Schedule(20, Geosphere, 1, "b")
	s.Schedule(30, Geosphere, 1, "c")

	d := NewDispatcher()
	d.Register(1, func(ctx context.Context, tick ids.Tick, payload interface{}) ([]TruthEventDraft, error) {
		return []TruthEventDraft{{Stream: stream, Tick: tick, Payload: []byte(payload.(string))}}, nil
	})

	if err := Run(context.Background(), s, d, store, RunOptions{StartTick: 0, EndTick: 20}, nil); err != nil {
		t.Fatalf("run: %v", err)
	}

	if s.Len() != 1 {
		t.Fatalf("expected 1 item left in queue (tick 30 beyond end_tick), got %d", s.Len())
	}

	seq, ok, err := store.LastSequence(context.Background(), stream)
	if err != nil || !ok || seq != 1 {
		t.Fatalf("last_sequence = %d, ok=%v, err=%v, want 1, true, nil", seq, ok, err)
	}
}

func TestRunAbortsOnDispatcherError(t *testing.T) {
	store := eventlog.NewStore(kv.NewMemStore(), nil)
	s := NewScheduler(nil)
	s.Schedule(1, Geosphere, 1, nil)

	d := NewDispatcher()
	wantErr := &dispatchErr{}
	d.Register(1, func(ctx context.Context, tick ids.Tick, payload interface{}) ([]TruthEventDraft, error) {
		return nil, wantErr
	})

	err := Run(context.Background(), s, d, store, RunOptions{EndTick: 100}, nil)
	if err != wantErr {
		t.Fatalf("expected dispatcher error to propagate, got %v", err)
	}
}

type dispatchErr struct{}

func (*dispatchErr) Error() string { return "dispatch failed" }
