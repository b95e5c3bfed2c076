// Package cache provides the byte-level caches behind the graph loader and
// the render pipeline.
//
// Three backends implement [Cache]:
//
//   - [NullCache] never stores anything (tests, --no-cache)
//   - [FileCache] keeps entries as JSON files under a directory (CLI)
//   - [RedisCache] shares snapshots between processes (server deployments)
//
// Keys are built by a [Keyer] so that every component agrees on the layout
// of the key space. Use [NewScopedKeyer] to isolate tenants or environments.
package cache

import (
	"context"
	"time"
)

// Default time-to-live values.
const (
	// GraphTTL bounds how long a restaurant snapshot is served from cache.
	// Every successful mutation invalidates the snapshot, so the TTL only
	// matters for changes made by other clients.
	GraphTTL = 30 * time.Second

	// RenderTTL is used for rendered artifacts (DOT, SVG), which are keyed
	// by content hash and never go stale.
	RenderTTL = 24 * time.Hour
)

// Cache is a byte-oriented key-value store with expiry.
type Cache interface {
	// Get returns the value and true on a hit. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Keyer builds cache keys.
type Keyer interface {
	// GraphKey is the key for a restaurant's graph snapshot.
	GraphKey(restaurantID string) string
	// RenderKey is the key for a rendered artifact of a scene.
	RenderKey(sceneHash string, opts RenderKeyOpts) string
}

// RenderKeyOpts are the render options that change the output bytes.
type RenderKeyOpts struct {
	Format string  `json:"format"`
	Width  int     `json:"width,omitempty"`
	Height int     `json:"height,omitempty"`
	Scale  float64 `json:"scale,omitempty"`
}
