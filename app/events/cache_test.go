package events

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSingleFlightOnColdStart(t *testing.T) {
	now := time.Now()
	server := newFeedServer(t, func(w http.ResponseWriter, query string) {
		time.Sleep(50 * time.Millisecond)
		_, _ = w.Write([]byte(rssDocument(rssItem("元宝红包", now.Add(-time.Hour), "https://example.com/1"))))
	})

	c := testCatalog(t, server.URL)
	aggregator := NewAggregator(c, newTestFetcher(time.Second, c), Options{WindowDays: 7, MaxEvents: 120}, nil)
	cache := NewCache(aggregator.Aggregate, time.Minute)

	const readers = 20
	results := make([]*Result, readers)
	var wg sync.WaitGroup
	wg.Add(readers)
	for i := range readers {
		go func() {
			defer wg.Done()
			result, err := cache.Get(context.Background())
			assert.NoError(t, err)
			results[i] = result
		}()
	}
	wg.Wait()

	assert.EqualValues(t, len(aggregator.Sources()), server.hits.Load())
	for _, result := range results {
		assert.Same(t, results[0], result)
	}
}

func TestCacheExpiresAfterTTL(t *testing.T) {
	var calls atomic.Int64
	cache := NewCache(func(ctx context.Context) (*Result, error) {
		calls.Add(1)
		return &Result{}, nil
	}, 30*time.Millisecond)

	assert.Equal(t, StateEmpty, cache.State())

	_, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateFresh, cache.State())

	_, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load())

	assert.Eventually(t, func() bool { return cache.State() == StateStale }, time.Second, 5*time.Millisecond)

	_, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
}

func TestCacheDoesNotStoreErrors(t *testing.T) {
	var calls atomic.Int64
	cache := NewCache(func(ctx context.Context) (*Result, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("boom")
		}
		return &Result{Total: 1}, nil
	}, time.Minute)

	_, err := cache.Get(context.Background())
	assert.EqualError(t, err, "boom")
	assert.Equal(t, StateEmpty, cache.State())

	result, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
}

func TestCacheCallerCancellationDoesNotAbortRefresh(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var calls atomic.Int64

	cache := NewCache(func(ctx context.Context) (*Result, error) {
		calls.Add(1)
		close(started)
		<-release
		return &Result{Total: 7}, ctx.Err()
	}, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := cache.Get(ctx)
		done <- err
	}()

	<-started
	assert.Equal(t, StateRefreshing, cache.State())
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(release)
	assert.Eventually(t, func() bool { return cache.State() == StateFresh }, time.Second, 5*time.Millisecond)

	result, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, result.Total)
	assert.EqualValues(t, 1, calls.Load())
}
