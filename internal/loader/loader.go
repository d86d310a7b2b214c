// Package loader caches dataset tables per session in front of the store.
//
// A Loader fetches each dataset at most once until it is invalidated.
// Concurrent Get calls for the same dataset share a single store fetch.
package loader

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/tphakala/birdobs/internal/errors"
	"github.com/tphakala/birdobs/internal/logger"
	"github.com/tphakala/birdobs/internal/observability/metrics"
	"github.com/tphakala/birdobs/internal/table"
	"golang.org/x/sync/singleflight"
)

// Fetcher loads a whole dataset. datastore.Interface satisfies it.
type Fetcher interface {
	FetchAll(ctx context.Context, dataset string) (*table.Table, error)
}

// Loader is a session-owned dataset cache. It is safe for concurrent use.
type Loader struct {
	fetcher Fetcher
	cache   *cache.Cache
	group   singleflight.Group
	metrics *metrics.LoaderMetrics
	log     logger.Logger

	mu         sync.Mutex
	generation map[string]uint64 // bumped on invalidation so in-flight results are not stored
	epoch      uint64            // bumped on Flush
}

// Option configures a Loader
type Option func(*Loader)

// WithMetrics records cache lookups
func WithMetrics(m *metrics.LoaderMetrics) Option {
	return func(l *Loader) { l.metrics = m }
}

// WithLogger overrides the module logger
func WithLogger(log logger.Logger) Option {
	return func(l *Loader) { l.log = log }
}

// New creates an empty Loader
func New(fetcher Fetcher, opts ...Option) *Loader {
	l := &Loader{
		fetcher: fetcher,
		// entries live until Invalidate or Flush, no janitor goroutine
		cache:      cache.New(cache.NoExpiration, 0),
		generation: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = logger.Global().Module("loader")
	}
	return l
}

func cacheKey(dataset string) string {
	return strings.ToLower(strings.TrimSpace(dataset))
}

// Get returns the cached table for dataset, fetching it on first use.
// Fetch errors are returned to every waiting caller and never cached.
func (l *Loader) Get(ctx context.Context, dataset string) (*table.Table, error) {
	key := cacheKey(dataset)
	if v, ok := l.cache.Get(key); ok {
		l.record(dataset, metrics.CacheHit)
		return v.(*table.Table), nil
	}

	l.mu.Lock()
	gen, epoch := l.generation[key], l.epoch
	l.mu.Unlock()

	// The fetch outlives a canceled caller so that other waiters still get a result
	fetchCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(key, func() (any, error) {
		l.record(dataset, metrics.CacheMiss)
		start := time.Now()
		t, err := l.fetcher.FetchAll(fetchCtx, dataset)
		if l.metrics != nil {
			l.metrics.RecordFetchDuration(dataset, time.Since(start).Seconds())
		}
		if err != nil {
			return nil, err
		}

		l.mu.Lock()
		if l.generation[key] == gen && l.epoch == epoch {
			l.cache.Set(key, t, cache.NoExpiration)
		}
		l.mu.Unlock()

		l.log.Debug("dataset loaded",
			logger.String("dataset", dataset),
			logger.Int("rows", t.Len()),
			logger.Duration("elapsed", time.Since(start)))
		return t, nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			l.record(dataset, metrics.CacheShared)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*table.Table), nil
	case <-ctx.Done():
		return nil, errors.New(ctx.Err()).
			Component("loader").
			Category(errors.CategoryCancellation).
			DatasetContext(dataset).
			Build()
	}
}

// Cached reports whether dataset is currently held
func (l *Loader) Cached(dataset string) bool {
	_, ok := l.cache.Get(cacheKey(dataset))
	return ok
}

// Invalidate drops dataset so the next Get refetches it
func (l *Loader) Invalidate(dataset string) {
	key := cacheKey(dataset)
	l.mu.Lock()
	l.generation[key]++
	l.cache.Delete(key)
	l.mu.Unlock()
	l.group.Forget(key)

	if l.metrics != nil {
		l.metrics.RecordInvalidation(dataset)
	}
	l.log.Debug("dataset invalidated", logger.String("dataset", dataset))
}

// Flush drops every cached dataset
func (l *Loader) Flush() {
	l.mu.Lock()
	l.epoch++
	for key := range l.cache.Items() {
		l.group.Forget(key)
	}
	l.cache.Flush()
	l.mu.Unlock()

	if l.metrics != nil {
		l.metrics.RecordInvalidation("*")
	}
}

// Len returns the number of cached datasets
func (l *Loader) Len() int {
	return l.cache.ItemCount()
}

func (l *Loader) record(dataset, result string) {
	if l.metrics != nil {
		l.metrics.RecordLookup(dataset, result)
	}
}
