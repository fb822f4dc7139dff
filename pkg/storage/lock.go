package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

const (
	lockTimeout    = 3 * time.Second
	lockRetryDelay = 100 * time.Millisecond
)

// Lock is an exclusive cross-process lock on a sidecar file. File-backed
// stores hold one for their whole lifetime so only one writer process uses a
// store at a time.
type Lock struct {
	flock *flock.Flock
}

// AcquireLock takes the lock at path, retrying until ctx is done or the
// default timeout expires.
func AcquireLock(ctx context.Context, path string) (*Lock, error) {
	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	fl := flock.New(path)
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}
	return &Lock{flock: fl}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.flock.Path()
}

// Release unlocks. The lock file itself is left in place.
func (l *Lock) Release() error {
	return l.flock.Unlock()
}
