// Package kv provides the abstract ordered key-value substrate every
// FantaSim-World store is built on. Callers program against Store and
// probe Capabilities to decide whether to use a cursor seek or a
// point-read fallback, per spec section 4.2.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when key does not exist.
var ErrNotFound = errors.New("kv: key not found")

// Capabilities reports what a Store implementation can do natively. A
// caller must never assume a capability it hasn't probed for; the
// memstore fallback reports both capabilities true (it is accurate, not
// just convenient) while still being a pure in-process map.
type Capabilities struct {
	// OrderedIteration is true if Iterator yields keys in ascending
	// byte order.
	OrderedIteration bool
	// AtomicBatch is true if Batch commits all-or-nothing.
	AtomicBatch bool
}

// Iterator walks keys in [start, end) in ascending order.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Close() error
}

// Batch accumulates writes to be committed atomically by Store.Batch.
type Batch interface {
	Set(key, value []byte) error
	Delete(key []byte) error
}

// Store is the abstract ordered KV substrate.
type Store interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	Set(ctx context.Context, key, value []byte) error
	Delete(ctx context.Context, key []byte) error
	// Iterator returns keys in [start, end). A nil end means "to the end
	// of the keyspace".
	Iterator(ctx context.Context, start, end []byte) (Iterator, error)
	// Batch runs fn against a Batch and commits it atomically if fn
	// returns nil; if fn returns an error, no writes are applied.
	Batch(ctx context.Context, fn func(Batch) error) error
	Capabilities() Capabilities
	Close() error
}
