// Package capacity keeps running counts of issued entities per partition so
// the service does not re-run ledger count queries on every candidate.
package capacity

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"pkg.jsn.cam/synthgen/pkg/synthgen"
)

// Key identifies one counter. An empty Process counts every process.
type Key struct {
	Kind      synthgen.Kind
	Process   string
	Partition string
}

func (k Key) String() string {
	process := k.Process
	if process == "" {
		process = "ALL"
	}
	return fmt.Sprintf("%s/%s/%s", k.Kind, process, k.Partition)
}

// LoadFunc counts the issued entities for a key from the ledger.
type LoadFunc func(ctx context.Context) (int64, error)

// Cache is safe for concurrent use. Callers mutate a key's counter only while
// holding the matching contention lock.
type Cache struct {
	mu     sync.RWMutex
	counts map[Key]int64
	// loading marks keys with a ledger load in flight; true once an
	// Increment raced the load and the loaded value may be stale.
	loading map[Key]bool
	loads   singleflight.Group
}

func New() *Cache {
	return &Cache{counts: make(map[Key]int64), loading: make(map[Key]bool)}
}

// Issued returns the count for key, calling load on the first access.
// Concurrent misses for one key share a single load.
func (c *Cache) Issued(ctx context.Context, key Key, load LoadFunc) (int64, error) {
	c.mu.RLock()
	n, ok := c.counts[key]
	c.mu.RUnlock()
	if ok {
		return n, nil
	}

	v, err, _ := c.loads.Do(key.String(), func() (any, error) {
		c.mu.Lock()
		if n, ok := c.counts[key]; ok {
			c.mu.Unlock()
			return n, nil
		}
		c.loading[key] = false
		c.mu.Unlock()

		n, err := load(ctx)

		c.mu.Lock()
		defer c.mu.Unlock()
		stale, tracked := c.loading[key]
		delete(c.loading, key)
		if err != nil {
			return int64(0), err
		}
		if cur, ok := c.counts[key]; ok {
			return cur, nil
		}
		// A racing Increment may or may not be in n. Leave the key absent so
		// the next call reloads a settled count.
		if tracked && !stale {
			c.counts[key] = n
		}
		return n, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// Increment records one issuance. Absent keys are left absent: the next load
// reads a ledger that already holds the row. A load in flight for key is
// marked stale and not cached.
func (c *Cache) Increment(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.counts[key]; ok {
		c.counts[key] = n + 1
		return
	}
	if _, ok := c.loading[key]; ok {
		c.loading[key] = true
	}
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.counts)
}

// Reset drops every counter.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = make(map[Key]int64)
	c.loading = make(map[Key]bool)
}
