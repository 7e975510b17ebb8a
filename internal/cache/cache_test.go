package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"membuddy/internal/recordstore"
)

func countingFetcher(calls *int32) Fetcher {
	return func(_ context.Context, _ string) (*recordstore.Snapshot, error) {
		atomic.AddInt32(calls, 1)
		return &recordstore.Snapshot{FetchedAt: time.Now()}, nil
	}
}

func TestGet_ServesSameSnapshotWithinTTL(t *testing.T) {
	var calls int32
	c := New(countingFetcher(&calls), time.Minute)
	ctx := context.Background()

	first, err := c.Get(ctx, DatasetKey)
	require.NoError(t, err)
	second, err := c.Get(ctx, DatasetKey)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGet_RefetchesAfterInvalidate(t *testing.T) {
	var calls int32
	c := New(countingFetcher(&calls), time.Minute)
	ctx := context.Background()

	first, err := c.Get(ctx, DatasetKey)
	require.NoError(t, err)

	c.Invalidate(DatasetKey)

	second, err := c.Get(ctx, DatasetKey)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGet_RefetchesAfterExpiry(t *testing.T) {
	var calls int32
	c := New(countingFetcher(&calls), 10*time.Millisecond)
	ctx := context.Background()

	_, err := c.Get(ctx, DatasetKey)
	require.NoError(t, err)

	time.Sleep(25 * time.Millisecond)

	_, err = c.Get(ctx, DatasetKey)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGet_ErrorIsNotCached(t *testing.T) {
	var calls int32
	fail := errors.New("store down")
	fetch := func(_ context.Context, _ string) (*recordstore.Snapshot, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, fail
		}
		return &recordstore.Snapshot{FetchedAt: time.Now()}, nil
	}
	c := New(fetch, time.Minute)
	ctx := context.Background()

	_, err := c.Get(ctx, DatasetKey)
	require.ErrorIs(t, err, fail)

	snap, err := c.Get(ctx, DatasetKey)
	require.NoError(t, err)
	assert.NotNil(t, snap)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGet_ConcurrentMissesCollapse(t *testing.T) {
	var calls int32
	slow := func(_ context.Context, _ string) (*recordstore.Snapshot, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return &recordstore.Snapshot{FetchedAt: time.Now()}, nil
	}
	c := New(slow, time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	snaps := make([]*recordstore.Snapshot, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snap, err := c.Get(ctx, DatasetKey)
			assert.NoError(t, err)
			snaps[i] = snap
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, snap := range snaps[1:] {
		assert.Same(t, snaps[0], snap)
	}
}

func TestNew_DefaultTTL(t *testing.T) {
	c := New(countingFetcher(new(int32)), 0)
	assert.Equal(t, DefaultTTL, c.ttl)
}
