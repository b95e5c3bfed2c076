package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/kitchenboard/pkg/board"
	"github.com/matzehuels/kitchenboard/pkg/cache"
	"github.com/matzehuels/kitchenboard/pkg/observability"
	"github.com/matzehuels/kitchenboard/pkg/render/nodelink"
)

// Runner renders scenes with caching. Both the CLI and the API use it.
//
// The Runner is stateless except for the cache and logger, so multiple
// goroutines can share one Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute renders the board's current scene.
func (r *Runner) Execute(ctx context.Context, b *board.Board, opts Options) (*Result, error) {
	if opts.Colors == nil && b.Snapshot() != nil {
		opts.Colors = nodelink.CategoryColors(b.Snapshot().Categories)
	}
	return r.RenderScene(ctx, b.Scene(), opts)
}

// RenderScene renders a scene in every requested format.
func (r *Runner) RenderScene(ctx context.Context, s board.Scene, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	logger := r.logger(opts)

	start := time.Now()
	dot := DOT(s, opts)
	result := &Result{
		SceneHash: cache.Hash([]byte(dot)),
		Stats: Stats{
			NodeCount: len(s.Nodes),
			EdgeCount: len(s.Edges),
		},
	}

	artifacts, hit, err := r.RenderWithCacheInfo(ctx, s, dot, result.SceneHash, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.CacheInfo.RenderHit = hit
	result.Stats.RenderTime = time.Since(start)

	logger.Info("rendered scene",
		"nodes", result.Stats.NodeCount,
		"edges", result.Stats.EdgeCount,
		"formats", opts.Formats,
		"cached", hit,
		"duration", result.Stats.RenderTime)
	return result, nil
}

// RenderWithCacheInfo returns artifacts for dot, reporting whether all of
// them came from cache. Missing formats are rendered and stored.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, s board.Scene, dot, sceneHash string, opts Options) (map[string][]byte, bool, error) {
	hooks := observability.Cache()
	artifacts := make(map[string][]byte, len(opts.Formats))
	var missing []string

	for _, format := range opts.Formats {
		key := r.Keyer.RenderKey(sceneHash, r.keyOpts(format, opts))
		if !opts.Refresh {
			if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
				hooks.OnCacheHit(ctx, "render")
				artifacts[format] = data
				continue
			}
		}
		hooks.OnCacheMiss(ctx, "render")
		missing = append(missing, format)
	}
	if len(missing) == 0 {
		return artifacts, true, nil
	}

	sub := opts
	sub.Formats = missing
	rendered, err := Render(s, dot, sub)
	if err != nil {
		return nil, false, err
	}
	for format, data := range rendered {
		artifacts[format] = data
		key := r.Keyer.RenderKey(sceneHash, r.keyOpts(format, opts))
		if err := r.Cache.Set(ctx, key, data, cache.RenderTTL); err != nil {
			r.logger(opts).Debug("render cache write failed", "format", format, "error", err)
			continue
		}
		hooks.OnCacheSet(ctx, "render", len(data))
	}
	return artifacts, false, nil
}

func (r *Runner) keyOpts(format string, opts Options) cache.RenderKeyOpts {
	k := cache.RenderKeyOpts{Format: format, Width: int(opts.Width), Height: int(opts.Height)}
	if format == FormatPNG {
		k.Scale = opts.Scale
	}
	return k
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) logger(opts Options) *log.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return r.Logger
}
