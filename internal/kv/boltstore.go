package kv

import (
	"bytes"
	"context"

	bolt "go.etcd.io/bbolt"
)

// rootBucket is the single bucket every key lives under. FantaSim-World's
// keyspace is already prefixed per-stream (spec section 6), so a single
// flat bucket with bbolt's own ordered b-tree keys is sufficient; there is
// no need to map each stream prefix onto a distinct bbolt bucket.
var rootBucket = []byte("fantasim")

// boltStore is a durable Store backed by go.etcd.io/bbolt, matching the
// ordered-KV-with-real-batch-transactions pattern used by the pack's
// beacon-chain/db/kv store (prysmaticlabs/prysm). bbolt's Update/View
// transactions give Batch a true atomic commit, and its Cursor gives
// Iterator a native ordered seek instead of the memstore's sort-on-read
// fallback.
type boltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (creating if needed) a bbolt-backed Store at path.
func OpenBoltStore(path string) (Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(rootBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &boltStore{db: db}, nil
}

func (s *boltStore) Get(_ context.Context, key []byte) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(rootBucket).Get(key)
		if v == nil {
			return ErrNotFound
		}
		out = make([]byte, len(v))
		copy(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *boltStore) Set(_ context.Context, key, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(rootBucket).Put(key, value)
	})
}

func (s *boltStore) Delete(_ context.Context, key []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(rootBucket).Delete(key)
	})
}

func (s *boltStore) Iterator(_ context.Context, start, end []byte) (Iterator, error) {
	tx, err := s.db.Begin(false)
	if err != nil {
		return nil, err
	}
	c := tx.Bucket(rootBucket).Cursor()
	return &boltIterator{tx: tx, cursor: c, start: start, end: end, first: true}, nil
}

type boltIterator struct {
	tx         *bolt.Tx
	cursor     *bolt.Cursor
	start, end []byte
	first      bool
	key, val   []byte
}

func (it *boltIterator) Next() bool {
	var k, v []byte
	if it.first {
		it.first = false
		k, v = it.cursor.Seek(it.start)
	} else {
		k, v = it.cursor.Next()
	}
	if k == nil {
		it.key, it.val = nil, nil
		return false
	}
	if it.end != nil && bytes.Compare(k, it.end) >= 0 {
		it.key, it.val = nil, nil
		return false
	}
	it.key = append([]byte(nil), k...)
	it.val = append([]byte(nil), v...)
	return true
}

func (it *boltIterator) Key() []byte   { return it.key }
func (it *boltIterator) Value() []byte { return it.val }
func (it *boltIterator) Error() error  { return nil }
func (it *boltIterator) Close() error  { return it.tx.Rollback() }

type boltBatch struct {
	tx *bolt.Tx
}

func (b *boltBatch) Set(key, value []byte) error {
	return b.tx.Bucket(rootBucket).Put(key, value)
}

func (b *boltBatch) Delete(key []byte) error {
	return b.tx.Bucket(rootBucket).Delete(key)
}

func (s *boltStore) Batch(_ context.Context, fn func(Batch) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return fn(&boltBatch{tx: tx})
	})
}

func (s *boltStore) Capabilities() Capabilities {
	return Capabilities{OrderedIteration: true, AtomicBatch: true}
}

func (s *boltStore) Close() error { return s.db.Close() }
