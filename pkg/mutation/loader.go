package mutation

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/kitchenboard/pkg/cache"
	"github.com/matzehuels/kitchenboard/pkg/kitchen"
	"github.com/matzehuels/kitchenboard/pkg/observability"
	"github.com/matzehuels/kitchenboard/pkg/store"
)

const (
	invalidateAttempts = 3
	invalidateDelay    = 50 * time.Millisecond
)

// Loader reads restaurant graphs through the cache.
//
// The Loader holds no graph state of its own. Multiple goroutines can use
// the same Loader.
type Loader struct {
	Store  store.Store
	Cache  cache.Cache
	Keyer  cache.Keyer
	TTL    time.Duration
	Logger *log.Logger
}

// NewLoader creates a loader. A nil cache disables caching, a nil keyer
// uses the default key layout.
func NewLoader(st store.Store, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Loader {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Loader{
		Store:  st,
		Cache:  c,
		Keyer:  keyer,
		TTL:    cache.GraphTTL,
		Logger: logger,
	}
}

// Graph returns the restaurant's graph. refresh bypasses the cached snapshot
// and replaces it.
func (l *Loader) Graph(ctx context.Context, restaurantID string, refresh bool) (*kitchen.Graph, error) {
	g, _, err := l.GraphWithCacheInfo(ctx, restaurantID, refresh)
	return g, err
}

// GraphWithCacheInfo is Graph that also reports whether the cache served it.
func (l *Loader) GraphWithCacheInfo(ctx context.Context, restaurantID string, refresh bool) (*kitchen.Graph, bool, error) {
	start := time.Now()
	key := l.Keyer.GraphKey(restaurantID)

	if !refresh {
		if data, hit, err := l.Cache.Get(ctx, key); err == nil && hit {
			if g, err := kitchen.UnmarshalGraph(data); err == nil {
				observability.Cache().OnCacheHit(ctx, "graph")
				observability.Mutation().OnGraphLoad(ctx, restaurantID, len(g.Nodes), true, time.Since(start), nil)
				return g, true, nil
			}
		} else if err != nil {
			l.Logger.Warn("graph cache read failed", "restaurant", restaurantID, "err", err)
		}
		observability.Cache().OnCacheMiss(ctx, "graph")
	}

	g, err := l.Store.Graph(ctx, restaurantID)
	observability.Mutation().OnGraphLoad(ctx, restaurantID, nodeCount(g), false, time.Since(start), err)
	if err != nil {
		return nil, false, fmt.Errorf("load graph %s: %w", restaurantID, err)
	}

	if data, err := kitchen.MarshalGraph(g); err == nil {
		if err := l.Cache.Set(ctx, key, data, l.TTL); err != nil {
			l.Logger.Warn("graph cache write failed", "restaurant", restaurantID, "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "graph", len(data))
		}
	}
	return g, false, nil
}

// Invalidate drops the cached snapshot of the restaurant. Transient cache
// failures are retried; a snapshot left behind is served until its TTL.
func (l *Loader) Invalidate(ctx context.Context, restaurantID string) error {
	observability.Cache().OnCacheInvalidate(ctx, "graph")
	key := l.Keyer.GraphKey(restaurantID)
	return cache.RetryWithBackoff(ctx, invalidateAttempts, invalidateDelay, func() error {
		return l.Cache.Delete(ctx, key)
	})
}

func nodeCount(g *kitchen.Graph) int {
	if g == nil {
		return 0
	}
	return len(g.Nodes)
}
