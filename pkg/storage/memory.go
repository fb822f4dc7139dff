package storage

import (
	"bytes"
	"maps"
	"slices"
	"sync"
)

// MemoryBackend implements Backend using in-memory maps (not persistent).
// Update transactions are serialized and rolled back on error.
type MemoryBackend struct {
	buckets map[string]map[string][]byte
	mu      sync.RWMutex
}

// NewMemoryBackend creates a new in-memory storage backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		buckets: make(map[string]map[string][]byte),
	}
}

func (m *MemoryBackend) CreateBucket(name []byte) error {
	return m.Update(func(tx Transaction) error {
		return tx.CreateBucket(name)
	})
}

func (m *MemoryBackend) DeleteBucket(name []byte) error {
	return m.Update(func(tx Transaction) error {
		return tx.DeleteBucket(name)
	})
}

func (m *MemoryBackend) BucketExists(name []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.buckets[string(name)]
	return exists, nil
}

func (m *MemoryBackend) Put(bucket, key, value []byte) error {
	return m.Update(func(tx Transaction) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return bucketNotFound(bucket)
		}
		return b.Put(key, value)
	})
}

// Get returns a copy of the stored value, or nil when the key is absent.
func (m *MemoryBackend) Get(bucket, key []byte) ([]byte, error) {
	var value []byte
	err := m.View(func(tx Transaction) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return bucketNotFound(bucket)
		}
		if v := b.Get(key); v != nil {
			value = bytes.Clone(v)
		}
		return nil
	})
	return value, err
}

func (m *MemoryBackend) Delete(bucket, key []byte) error {
	return m.Update(func(tx Transaction) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return bucketNotFound(bucket)
		}
		return b.Delete(key)
	})
}

func (m *MemoryBackend) ForEach(bucket []byte, fn func(k, v []byte) error) error {
	return m.ForEachPrefix(bucket, nil, fn)
}

func (m *MemoryBackend) ForEachPrefix(bucket, prefix []byte, fn func(k, v []byte) error) error {
	return m.View(func(tx Transaction) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return bucketNotFound(bucket)
		}
		return b.ForEachPrefix(prefix, fn)
	})
}

func (m *MemoryBackend) Update(fn func(tx Transaction) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTransaction{backend: m, writable: true}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (m *MemoryBackend) View(fn func(tx Transaction) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return fn(&memoryTransaction{backend: m})
}

// Close is a no-op for memory backend
func (m *MemoryBackend) Close() error {
	return nil
}

// memoryTransaction runs with the backend lock held. Writes record an undo
// step so a failed Update can be reverted.
type memoryTransaction struct {
	backend  *MemoryBackend
	writable bool
	undo     []func()
}

func (t *memoryTransaction) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
}

func (t *memoryTransaction) CreateBucket(name []byte) error {
	if !t.writable {
		return ErrTxNotWritable
	}
	key := string(name)
	if _, exists := t.backend.buckets[key]; exists {
		return nil
	}
	t.backend.buckets[key] = make(map[string][]byte)
	t.undo = append(t.undo, func() { delete(t.backend.buckets, key) })
	return nil
}

func (t *memoryTransaction) DeleteBucket(name []byte) error {
	if !t.writable {
		return ErrTxNotWritable
	}
	key := string(name)
	old, exists := t.backend.buckets[key]
	if !exists {
		return nil
	}
	delete(t.backend.buckets, key)
	t.undo = append(t.undo, func() { t.backend.buckets[key] = old })
	return nil
}

func (t *memoryTransaction) Bucket(name []byte) Bucket {
	data, exists := t.backend.buckets[string(name)]
	if !exists {
		return nil
	}
	return &memoryBucket{tx: t, data: data}
}

func (t *memoryTransaction) ForEachBucket(fn func(name []byte) error) error {
	for _, name := range slices.Sorted(maps.Keys(t.backend.buckets)) {
		if err := fn([]byte(name)); err != nil {
			return err
		}
	}
	return nil
}

type memoryBucket struct {
	tx   *memoryTransaction
	data map[string][]byte
}

func (b *memoryBucket) Put(key, value []byte) error {
	if !b.tx.writable {
		return ErrTxNotWritable
	}
	k := string(key)
	old, existed := b.data[k]
	b.data[k] = bytes.Clone(value)
	b.tx.undo = append(b.tx.undo, func() {
		if existed {
			b.data[k] = old
		} else {
			delete(b.data, k)
		}
	})
	return nil
}

func (b *memoryBucket) Get(key []byte) []byte {
	return b.data[string(key)]
}

func (b *memoryBucket) Delete(key []byte) error {
	if !b.tx.writable {
		return ErrTxNotWritable
	}
	k := string(key)
	old, existed := b.data[k]
	if !existed {
		return nil
	}
	delete(b.data, k)
	b.tx.undo = append(b.tx.undo, func() { b.data[k] = old })
	return nil
}

func (b *memoryBucket) ForEach(fn func(k, v []byte) error) error {
	return b.ForEachPrefix(nil, fn)
}

func (b *memoryBucket) ForEachPrefix(prefix []byte, fn func(k, v []byte) error) error {
	p := string(prefix)
	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		if len(k) >= len(p) && k[:len(p)] == p {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	for _, k := range keys {
		v, ok := b.data[k]
		if !ok {
			continue
		}
		if err := fn([]byte(k), v); err != nil {
			return err
		}
	}
	return nil
}
