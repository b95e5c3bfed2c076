// Package observability carries the events kitchenboard emits while it
// loads graphs, writes mutations, touches the snapshot cache and calls a
// remote Graph Store.
//
// Packages report through the accessors [Mutation], [Cache] and [HTTP].
// Until a binary installs something else every accessor returns a no-op, so
// library code never checks for nil and never depends on a metrics backend.
//
// The CLI installs [LogHooks] when run with --verbose and the server always
// does; both route events to a charmbracelet logger:
//
//	observability.NewLogHooks(logger).Register()
//
// A façade write is reported as a start/complete pair keyed by operation
// name ("move", "toggle", "delete", ...) and the affected entity id:
//
//	observability.Mutation().OnMutationStart(ctx, "toggle", nodeID)
//	err := store.SetAvailability(ctx, nodeID, available)
//	observability.Mutation().OnMutationComplete(ctx, "toggle", nodeID, time.Since(start), err)
package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// MutationHooks observes the mutation façade and the graph loader.
type MutationHooks interface {
	OnMutationStart(ctx context.Context, op, entityID string)
	// OnMutationComplete fires once the store answered, err is its answer.
	OnMutationComplete(ctx context.Context, op, entityID string, duration time.Duration, err error)
	// OnGraphLoad fires after a snapshot was fetched from the store or
	// served from cache.
	OnGraphLoad(ctx context.Context, restaurantID string, nodeCount int, cacheHit bool, duration time.Duration, err error)
}

// CacheHooks observes the snapshot cache. keyType is the key prefix
// ("graph", "render").
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
	OnCacheInvalidate(ctx context.Context, keyType string)
}

// HTTPHooks observes requests made by the remote store client.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, host, path string)
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)
	// OnError fires when no response arrived at all.
	OnError(ctx context.Context, method, host, path string, err error)
}

// NoopMutationHooks discards mutation events.
type NoopMutationHooks struct{}

func (NoopMutationHooks) OnMutationStart(context.Context, string, string)                       {}
func (NoopMutationHooks) OnMutationComplete(context.Context, string, string, time.Duration, error) {}
func (NoopMutationHooks) OnGraphLoad(context.Context, string, int, bool, time.Duration, error)     {}

// NoopCacheHooks discards cache events.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)        {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)       {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int)   {}
func (NoopCacheHooks) OnCacheInvalidate(context.Context, string) {}

// NoopHTTPHooks discards HTTP events.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// installed is the set of hooks in effect. It is replaced whole, never
// mutated, so readers need no lock.
type installed struct {
	mutation MutationHooks
	cache    CacheHooks
	http     HTTPHooks
}

var current atomic.Pointer[installed]

func init() { Reset() }

// swap copies the installed set, lets edit change the copy and publishes it.
func swap(edit func(*installed)) {
	for {
		old := current.Load()
		next := *old
		edit(&next)
		if current.CompareAndSwap(old, &next) {
			return
		}
	}
}

// SetMutationHooks installs h. A nil h is ignored.
func SetMutationHooks(h MutationHooks) {
	if h != nil {
		swap(func(s *installed) { s.mutation = h })
	}
}

// SetCacheHooks installs h. A nil h is ignored.
func SetCacheHooks(h CacheHooks) {
	if h != nil {
		swap(func(s *installed) { s.cache = h })
	}
}

// SetHTTPHooks installs h. A nil h is ignored.
func SetHTTPHooks(h HTTPHooks) {
	if h != nil {
		swap(func(s *installed) { s.http = h })
	}
}

func Mutation() MutationHooks { return current.Load().mutation }
func Cache() CacheHooks       { return current.Load().cache }
func HTTP() HTTPHooks         { return current.Load().http }

// Reset puts the no-op hooks back. Tests call it to undo a Register.
func Reset() {
	current.Store(&installed{
		mutation: NoopMutationHooks{},
		cache:    NoopCacheHooks{},
		http:     NoopHTTPHooks{},
	})
}
