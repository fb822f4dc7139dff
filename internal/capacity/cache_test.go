package capacity

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"pkg.jsn.cam/synthgen/pkg/synthgen"
)

var key = Key{Kind: synthgen.KindInteger, Partition: "[2-5]"}

func constLoad(n int64, calls *atomic.Int32) LoadFunc {
	return func(context.Context) (int64, error) {
		calls.Add(1)
		return n, nil
	}
}

func TestIssuedLoadsOnceThenIncrements(t *testing.T) {
	c := New()
	var calls atomic.Int32

	n, err := c.Issued(context.Background(), key, constLoad(3, &calls))
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	c.Increment(key)
	c.Increment(key)

	n, err = c.Issued(context.Background(), key, constLoad(100, &calls))
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
	assert.EqualValues(t, 1, calls.Load())
}

func TestIncrementOnAbsentKeyIsNoop(t *testing.T) {
	c := New()
	c.Increment(key)
	assert.Zero(t, c.Len())

	var calls atomic.Int32
	n, err := c.Issued(context.Background(), key, constLoad(1, &calls))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestKeysAreScoped(t *testing.T) {
	c := New()
	var calls atomic.Int32

	_, err := c.Issued(context.Background(), key, constLoad(1, &calls))
	require.NoError(t, err)

	scoped := key
	scoped.Process = "p1"
	n, err := c.Issued(context.Background(), scoped, constLoad(7, &calls))
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "INTEGER/p1/[2-5]", scoped.String())
	assert.Equal(t, "INTEGER/ALL/[2-5]", key.String())
}

func TestConcurrentMissesShareOneLoad(t *testing.T) {
	c := New()
	var calls atomic.Int32
	gate := make(chan struct{})

	load := func(context.Context) (int64, error) {
		calls.Add(1)
		<-gate
		return 42, nil
	}

	var g errgroup.Group
	for range 8 {
		g.Go(func() error {
			n, err := c.Issued(context.Background(), key, load)
			if err == nil && n != 42 {
				return errors.New("wrong count")
			}
			return err
		})
	}
	time.Sleep(20 * time.Millisecond)
	close(gate)

	require.NoError(t, g.Wait())
	assert.EqualValues(t, 1, calls.Load())
}

func TestLoadErrorIsNotCached(t *testing.T) {
	c := New()
	boom := errors.New("boom")

	_, err := c.Issued(context.Background(), key, func(context.Context) (int64, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, c.Len())

	var calls atomic.Int32
	n, err := c.Issued(context.Background(), key, constLoad(2, &calls))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestReset(t *testing.T) {
	c := New()
	var calls atomic.Int32
	_, err := c.Issued(context.Background(), key, constLoad(2, &calls))
	require.NoError(t, err)

	c.Reset()
	assert.Zero(t, c.Len())
}

func TestIncrementDuringLoadForcesReload(t *testing.T) {
	c := New()
	started := make(chan struct{})
	proceed := make(chan struct{})

	var g errgroup.Group
	g.Go(func() error {
		n, err := c.Issued(context.Background(), key, func(context.Context) (int64, error) {
			close(started)
			<-proceed
			return 3, nil
		})
		if err == nil && n != 3 {
			return errors.New("first load must report what it read")
		}
		return err
	})

	<-started
	c.Increment(key)
	close(proceed)
	require.NoError(t, g.Wait())
	assert.Zero(t, c.Len(), "a count raced by an increment is not cached")

	var calls atomic.Int32
	n, err := c.Issued(context.Background(), key, constLoad(4, &calls))
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
	assert.EqualValues(t, 1, calls.Load())

	c.Increment(key)
	n, err = c.Issued(context.Background(), key, constLoad(100, &calls))
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
}
