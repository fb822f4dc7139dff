package storage

import (
	"bytes"
	"errors"
	"fmt"
)

var (
	ErrBucketNotFound = errors.New("bucket not found")
	ErrTxNotWritable  = errors.New("transaction not writable")
	ErrLocked         = errors.New("store is locked by another process")
)

// Backend defines a generic key-value storage interface with bucket support.
// Keys within a bucket iterate in byte order, which the prefix scans rely on.
type Backend interface {
	// Bucket operations
	CreateBucket(name []byte) error
	DeleteBucket(name []byte) error
	BucketExists(name []byte) (bool, error)

	// KV operations within buckets
	Put(bucket, key, value []byte) error
	Get(bucket, key []byte) ([]byte, error)
	Delete(bucket, key []byte) error

	// Iteration, in key order
	ForEach(bucket []byte, fn func(k, v []byte) error) error
	ForEachPrefix(bucket, prefix []byte, fn func(k, v []byte) error) error

	// Update runs fn in a read-write transaction. Nothing fn wrote survives
	// when it returns an error.
	Update(fn func(tx Transaction) error) error
	View(fn func(tx Transaction) error) error

	// Lifecycle
	Close() error
}

// Transaction provides transactional access to the backend
type Transaction interface {
	CreateBucket(name []byte) error
	DeleteBucket(name []byte) error
	Bucket(name []byte) Bucket

	// ForEachBucket iterates over all bucket names
	ForEachBucket(fn func(name []byte) error) error
}

// Bucket provides access to a single bucket within a transaction. Slices
// passed to iteration callbacks or returned by Get are only valid for the
// life of the transaction.
type Bucket interface {
	Put(key, value []byte) error
	Get(key []byte) []byte
	Delete(key []byte) error
	ForEach(fn func(k, v []byte) error) error
	ForEachPrefix(prefix []byte, fn func(k, v []byte) error) error
}

// Key joins parts with a NUL separator so that a key built from a shorter
// list is a strict prefix of every key extending it.
func Key(parts ...string) []byte {
	var buf bytes.Buffer
	for i, p := range parts {
		if i > 0 {
			buf.WriteByte(0)
		}
		buf.WriteString(p)
	}
	return buf.Bytes()
}

// Prefix is Key followed by a trailing separator, for scanning all keys that
// extend parts.
func Prefix(parts ...string) []byte {
	return append(Key(parts...), 0)
}

// SplitKey reverses Key.
func SplitKey(key []byte) []string {
	fields := bytes.Split(key, []byte{0})
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = string(f)
	}
	return out
}

// EnsureBuckets creates every named bucket in one transaction.
func EnsureBuckets(b Backend, names ...[]byte) error {
	return b.Update(func(tx Transaction) error {
		for _, name := range names {
			if err := tx.CreateBucket(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

func bucketNotFound(name []byte) error {
	return fmt.Errorf("%w: %s", ErrBucketNotFound, name)
}
