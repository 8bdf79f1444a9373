package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

type State string

const (
	StateEmpty      State = "empty"
	StateFresh      State = "fresh"
	StateStale      State = "stale"
	StateRefreshing State = "refreshing"
)

const cacheKey = "aggregation"

type LoadFunc func(ctx context.Context) (*Result, error)

// Cache holds the latest aggregation for a TTL. Reads past expiry trigger a
// refresh; concurrent readers share one in-flight refresh.
type Cache struct {
	load  LoadFunc
	store *expirable.LRU[string, *Result]
	group singleflight.Group

	refreshing atomic.Bool
	mu         sync.Mutex
	last       *Result
}

func NewCache(load LoadFunc, ttl time.Duration) *Cache {
	return &Cache{
		load:  load,
		store: expirable.NewLRU[string, *Result](1, nil, ttl),
	}
}

// Get returns the cached result or waits for a refresh. The refresh itself
// is not bound to ctx, so a caller giving up does not cancel it for others.
func (c *Cache) Get(ctx context.Context) (*Result, error) {
	if result, ok := c.store.Get(cacheKey); ok {
		return result, nil
	}

	ch := c.group.DoChan(cacheKey, func() (any, error) {
		if result, ok := c.store.Get(cacheKey); ok {
			return result, nil
		}

		c.refreshing.Store(true)
		defer c.refreshing.Store(false)

		result, err := c.load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		c.store.Add(cacheKey, result)
		c.mu.Lock()
		c.last = result
		c.mu.Unlock()
		return result, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Result), nil
	}
}

func (c *Cache) State() State {
	if c.refreshing.Load() {
		return StateRefreshing
	}
	if _, ok := c.store.Peek(cacheKey); ok {
		return StateFresh
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last != nil {
		return StateStale
	}
	return StateEmpty
}
