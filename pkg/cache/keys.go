package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// DefaultKeyer is the standard key layout:
//
//	graph:<restaurantID>
//	render:<sha256 of scene hash and options>
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// GraphKey is left unhashed so snapshots stay readable in redis-cli.
// Restaurant ids are validated before they reach the cache.
func (DefaultKeyer) GraphKey(restaurantID string) string {
	return "graph:" + restaurantID
}

// RenderKey hashes the scene hash together with the options.
func (DefaultKeyer) RenderKey(sceneHash string, opts RenderKeyOpts) string {
	return hashKey("render", sceneHash, opts)
}

// ScopedKeyer prefixes every key of an inner Keyer, so several deployments
// can share one Redis:
//
//	staging := NewScopedKeyer(NewDefaultKeyer(), "staging:")
//	staging.GraphKey("r1") // "staging:graph:r1"
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner, or the default layout when inner is nil.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) GraphKey(restaurantID string) string {
	return k.prefix + k.inner.GraphKey(restaurantID)
}

func (k *ScopedKeyer) RenderKey(sceneHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(sceneHash, opts)
}

var (
	_ Keyer = DefaultKeyer{}
	_ Keyer = (*ScopedKeyer)(nil)
)

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// hashKey builds "<prefix>:<Hash(json(parts))>". The parts are plain values,
// so marshalling cannot fail.
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return prefix + ":" + Hash(data)
}
