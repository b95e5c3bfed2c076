package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks writes every event to a logger at debug level, errors at warn.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks returns hooks that log through logger.
func NewLogHooks(logger *log.Logger) *LogHooks {
	if logger == nil {
		logger = log.Default()
	}
	return &LogHooks{logger: logger.WithPrefix("obs")}
}

// Register installs h for every hook category.
func (h *LogHooks) Register() {
	SetMutationHooks(h)
	SetCacheHooks(h)
	SetHTTPHooks(h)
}

func (h *LogHooks) OnMutationStart(_ context.Context, op, entityID string) {
	h.logger.Debug("mutation start", "op", op, "id", entityID)
}

func (h *LogHooks) OnMutationComplete(_ context.Context, op, entityID string, d time.Duration, err error) {
	if err != nil {
		h.logger.Warn("mutation failed", "op", op, "id", entityID, "duration", d, "err", err)
		return
	}
	h.logger.Debug("mutation done", "op", op, "id", entityID, "duration", d)
}

func (h *LogHooks) OnGraphLoad(_ context.Context, restaurantID string, nodes int, hit bool, d time.Duration, err error) {
	if err != nil {
		h.logger.Warn("graph load failed", "restaurant", restaurantID, "err", err)
		return
	}
	h.logger.Debug("graph loaded", "restaurant", restaurantID, "nodes", nodes, "cached", hit, "duration", d)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *LogHooks) OnCacheInvalidate(_ context.Context, keyType string) {
	h.logger.Debug("cache invalidate", "type", keyType)
}

func (h *LogHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("http request", "method", method, "host", host, "path", path)
}

func (h *LogHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("http response", "method", method, "path", path, "status", status, "duration", d)
}

func (h *LogHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Warn("http error", "method", method, "host", host, "path", path, "err", err)
}

var (
	_ MutationHooks = (*LogHooks)(nil)
	_ CacheHooks    = (*LogHooks)(nil)
	_ HTTPHooks     = (*LogHooks)(nil)
)
