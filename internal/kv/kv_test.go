package kv

import (
	"context"
	"path/filepath"
	"testing"
)

func TestMemStoreGetSetDelete(t *testing.T) {
	testStoreGetSetDelete(t, NewMemStore())
}

func TestBoltStoreGetSetDelete(t *testing.T) {
	s, err := OpenBoltStore(filepath.Join(t.TempDir(), "test.bolt"))
	if err != nil {
		t.Fatalf("open bolt store: %v", err)
	}
	defer s.Close()
	testStoreGetSetDelete(t, s)
}

func testStoreGetSetDelete(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, []byte("missing")); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Set(ctx, []byte("k1"), []byte("v1")); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, err := s.Get(ctx, []byte("k1"))
	if err != nil || string(v) != "v1" {
		t.Fatalf("get = %q, %v, want v1, nil", v, err)
	}
	if err := s.Delete(ctx, []byte("k1")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, []byte("k1")); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemStoreIteratorOrder(t *testing.T) {
	testStoreIteratorOrder(t, NewMemStore())
}

func TestBoltStoreIteratorOrder(t *testing.T) {
	s, err := OpenBoltStore(filepath.Join(t.TempDir(), "test.bolt"))
	if err != nil {
		t.Fatalf("open bolt store: %v", err)
	}
	defer s.Close()
	testStoreIteratorOrder(t, s)
}

func testStoreIteratorOrder(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	for _, k := range []string{"b", "a", "c"} {
		if err := s.Set(ctx, []byte(k), []byte(k)); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}
	it, err := s.Iterator(ctx, []byte("a"), nil)
	if err != nil {
		t.Fatalf("iterator: %v", err)
	}
	defer it.Close()
	var got []string
	for it.Next() {
		got = append(got, string(it.Key()))
	}
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestMemStoreBatchAtomic(t *testing.T) {
	testStoreBatchAtomic(t, NewMemStore())
}

func TestBoltStoreBatchAtomic(t *testing.T) {
	s, err := OpenBoltStore(filepath.Join(t.TempDir(), "test.bolt"))
	if err != nil {
		t.Fatalf("open bolt store: %v", err)
	}
	defer s.Close()
	testStoreBatchAtomic(t, s)
}

func testStoreBatchAtomic(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	wantErr := errBoom
	err := s.Batch(ctx, func(b Batch) error {
		if err := b.Set([]byte("x"), []byte("1")); err != nil {
			return err
		}
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("batch error = %v, want %v", err, wantErr)
	}
	if _, err := s.Get(ctx, []byte("x")); err != ErrNotFound {
		t.Fatalf("failed batch should not have written x, got err=%v", err)
	}

	if err := s.Batch(ctx, func(b Batch) error {
		return b.Set([]byte("x"), []byte("1"))
	}); err != nil {
		t.Fatalf("batch: %v", err)
	}
	v, err := s.Get(ctx, []byte("x"))
	if err != nil || string(v) != "1" {
		t.Fatalf("get x = %q, %v", v, err)
	}
}

var errBoom = &boomErr{}

type boomErr struct{}

func (*boomErr) Error() string { return "boom" }
