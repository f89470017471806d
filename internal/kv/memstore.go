package kv

import (
	"bytes"
	"context"
	"sort"
	"sync"
)

// memStore is an in-process, sorted-map-backed Store. It is the
// always-available fallback named in spec section 4.2 when no richer KV
// backend is configured; writers serialize through a single mutex, which
// doubles as the "per-process lock" named in spec section 5.
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemStore builds a fresh in-memory Store.
func NewMemStore() Store {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(_ context.Context, key []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	cpy := make([]byte, len(v))
	copy(cpy, v)
	return cpy, nil
}

func (m *memStore) Set(_ context.Context, key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cpy := make([]byte, len(value))
	copy(cpy, value)
	m.data[string(key)] = cpy
	return nil
}

func (m *memStore) Delete(_ context.Context, key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
	return nil
}

func (m *memStore) Iterator(_ context.Context, start, end []byte) (Iterator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys [][]byte
	for k := range m.data {
		kb := []byte(k)
		if bytes.Compare(kb, start) < 0 {
			continue
		}
		if end != nil && bytes.Compare(kb, end) >= 0 {
			continue
		}
		keys = append(keys, kb)
	}
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i], keys[j]) < 0 })

	values := make([][]byte, len(keys))
	for i, k := range keys {
		values[i] = m.data[string(k)]
	}
	return &sliceIterator{keys: keys, values: values, idx: -1}, nil
}

type memBatch struct {
	sets    map[string][]byte
	deletes map[string]bool
}

func (b *memBatch) Set(key, value []byte) error {
	cpy := make([]byte, len(value))
	copy(cpy, value)
	b.sets[string(key)] = cpy
	delete(b.deletes, string(key))
	return nil
}

func (b *memBatch) Delete(key []byte) error {
	b.deletes[string(key)] = true
	delete(b.sets, string(key))
	return nil
}

func (m *memStore) Batch(_ context.Context, fn func(Batch) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := &memBatch{sets: make(map[string][]byte), deletes: make(map[string]bool)}
	if err := fn(b); err != nil {
		return err
	}
	for k := range b.deletes {
		delete(m.data, k)
	}
	for k, v := range b.sets {
		m.data[k] = v
	}
	return nil
}

func (m *memStore) Capabilities() Capabilities {
	return Capabilities{OrderedIteration: true, AtomicBatch: true}
}

func (m *memStore) Close() error { return nil }

type sliceIterator struct {
	keys, values [][]byte
	idx          int
}

func (it *sliceIterator) Next() bool { it.idx++; return it.idx < len(it.keys) }
func (it *sliceIterator) Key() []byte {
	if it.idx < 0 || it.idx >= len(it.keys) {
		return nil
	}
	return it.keys[it.idx]
}
func (it *sliceIterator) Value() []byte {
	if it.idx < 0 || it.idx >= len(it.values) {
		return nil
	}
	return it.values[it.idx]
}
func (it *sliceIterator) Error() error { return nil }
func (it *sliceIterator) Close() error { return nil }
