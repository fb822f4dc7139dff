package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BboltBackend implements Backend using bbolt (formerly bolt)
type BboltBackend struct {
	path string
	lock *Lock

	// mu guards db against Compact swapping it out.
	mu sync.RWMutex
	db *bolt.DB
}

// BboltStats is a snapshot of a bbolt store.
type BboltStats struct {
	Path      string
	SizeBytes int64
	Keys      map[string]int
	FreePages int
	OpenTx    int
}

// NewBboltBackend opens the database at dbPath, holding dbPath+".lock" until
// Close.
func NewBboltBackend(dbPath string) (*BboltBackend, error) {
	lock, err := AcquireLock(context.Background(), dbPath+".lock")
	if err != nil {
		return nil, err
	}

	db, err := openBolt(dbPath)
	if err != nil {
		lock.Release()
		return nil, err
	}

	return &BboltBackend{path: dbPath, lock: lock, db: db}, nil
}

func openBolt(path string) (*bolt.DB, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: lockTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt database: %w", err)
	}
	return db, nil
}

func (b *BboltBackend) CreateBucket(name []byte) error {
	return b.Update(func(tx Transaction) error {
		return tx.CreateBucket(name)
	})
}

func (b *BboltBackend) DeleteBucket(name []byte) error {
	return b.Update(func(tx Transaction) error {
		return tx.DeleteBucket(name)
	})
}

func (b *BboltBackend) BucketExists(name []byte) (bool, error) {
	exists := false
	err := b.View(func(tx Transaction) error {
		exists = tx.Bucket(name) != nil
		return nil
	})
	return exists, err
}

func (b *BboltBackend) Put(bucket, key, value []byte) error {
	return b.Update(func(tx Transaction) error {
		bkt := tx.Bucket(bucket)
		if bkt == nil {
			return bucketNotFound(bucket)
		}
		return bkt.Put(key, value)
	})
}

// Get returns a copy of the stored value, or nil when the key is absent.
func (b *BboltBackend) Get(bucket, key []byte) ([]byte, error) {
	var value []byte
	err := b.View(func(tx Transaction) error {
		bkt := tx.Bucket(bucket)
		if bkt == nil {
			return bucketNotFound(bucket)
		}
		// Copy the value since it's only valid during the transaction
		if v := bkt.Get(key); v != nil {
			value = bytes.Clone(v)
		}
		return nil
	})
	return value, err
}

func (b *BboltBackend) Delete(bucket, key []byte) error {
	return b.Update(func(tx Transaction) error {
		bkt := tx.Bucket(bucket)
		if bkt == nil {
			return bucketNotFound(bucket)
		}
		return bkt.Delete(key)
	})
}

func (b *BboltBackend) ForEach(bucket []byte, fn func(k, v []byte) error) error {
	return b.ForEachPrefix(bucket, nil, fn)
}

func (b *BboltBackend) ForEachPrefix(bucket, prefix []byte, fn func(k, v []byte) error) error {
	return b.View(func(tx Transaction) error {
		bkt := tx.Bucket(bucket)
		if bkt == nil {
			return bucketNotFound(bucket)
		}
		return bkt.ForEachPrefix(prefix, fn)
	})
}

func (b *BboltBackend) Update(fn func(tx Transaction) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.db.Update(func(boltTx *bolt.Tx) error {
		return fn(&bboltTransaction{tx: boltTx})
	})
}

func (b *BboltBackend) View(fn func(tx Transaction) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.db.View(func(boltTx *bolt.Tx) error {
		return fn(&bboltTransaction{tx: boltTx})
	})
}

// Close closes the database and releases the file lock.
func (b *BboltBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return errors.Join(b.db.Close(), b.lock.Release())
}

// Path returns the database file path.
func (b *BboltBackend) Path() string {
	return b.path
}

// Stats counts keys per bucket and reports file and page usage.
func (b *BboltBackend) Stats() (BboltStats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := BboltStats{Path: b.path, Keys: make(map[string]int)}
	err := b.db.View(func(tx *bolt.Tx) error {
		stats.SizeBytes = tx.Size()
		return tx.ForEach(func(name []byte, bkt *bolt.Bucket) error {
			stats.Keys[string(name)] = bkt.Stats().KeyN
			return nil
		})
	})
	if err != nil {
		return BboltStats{}, err
	}

	dbStats := b.db.Stats()
	stats.FreePages = dbStats.FreePageN
	stats.OpenTx = dbStats.OpenTxN
	if fi, err := os.Stat(b.path); err == nil {
		stats.SizeBytes = fi.Size()
	}
	return stats, nil
}

// Compact rewrites the database into a fresh file and swaps it in. Writers
// are blocked for the duration.
func (b *BboltBackend) Compact() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	tempPath := b.path + ".compact"
	os.Remove(tempPath)

	dst, err := bolt.Open(tempPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("open compaction target: %w", err)
	}
	if err := bolt.Compact(dst, b.db, 64<<20); err != nil {
		dst.Close()
		os.Remove(tempPath)
		return fmt.Errorf("compact: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}

	if err := b.db.Close(); err != nil {
		return err
	}
	if err := os.Rename(tempPath, b.path); err != nil {
		// Keep serving from the uncompacted file.
		db, openErr := openBolt(b.path)
		if openErr != nil {
			return errors.Join(err, openErr)
		}
		b.db = db
		return err
	}

	db, err := openBolt(b.path)
	if err != nil {
		return err
	}
	b.db = db
	return nil
}

// bboltTransaction wraps a bolt transaction
type bboltTransaction struct {
	tx *bolt.Tx
}

func (t *bboltTransaction) CreateBucket(name []byte) error {
	_, err := t.tx.CreateBucketIfNotExists(name)
	if errors.Is(err, bolt.ErrTxNotWritable) {
		return ErrTxNotWritable
	}
	return err
}

func (t *bboltTransaction) DeleteBucket(name []byte) error {
	err := t.tx.DeleteBucket(name)
	switch {
	case errors.Is(err, bolt.ErrBucketNotFound):
		return nil // Idempotent
	case errors.Is(err, bolt.ErrTxNotWritable):
		return ErrTxNotWritable
	}
	return err
}

func (t *bboltTransaction) Bucket(name []byte) Bucket {
	bkt := t.tx.Bucket(name)
	if bkt == nil {
		return nil
	}
	return &bboltBucket{bucket: bkt}
}

func (t *bboltTransaction) ForEachBucket(fn func(name []byte) error) error {
	return t.tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
		return fn(name)
	})
}

// bboltBucket wraps a bolt bucket
type bboltBucket struct {
	bucket *bolt.Bucket
}

func (b *bboltBucket) Put(key, value []byte) error {
	err := b.bucket.Put(key, value)
	if errors.Is(err, bolt.ErrTxNotWritable) {
		return ErrTxNotWritable
	}
	return err
}

func (b *bboltBucket) Get(key []byte) []byte {
	return b.bucket.Get(key)
}

func (b *bboltBucket) Delete(key []byte) error {
	err := b.bucket.Delete(key)
	if errors.Is(err, bolt.ErrTxNotWritable) {
		return ErrTxNotWritable
	}
	return err
}

func (b *bboltBucket) ForEach(fn func(k, v []byte) error) error {
	return b.bucket.ForEach(fn)
}

func (b *bboltBucket) ForEachPrefix(prefix []byte, fn func(k, v []byte) error) error {
	c := b.bucket.Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		if err := fn(k, v); err != nil {
			return err
		}
	}
	return nil
}
