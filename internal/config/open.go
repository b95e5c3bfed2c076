package config

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/kitchenboard/pkg/cache"
	"github.com/matzehuels/kitchenboard/pkg/kitchen"
	"github.com/matzehuels/kitchenboard/pkg/store"
	"github.com/matzehuels/kitchenboard/pkg/store/memory"
	"github.com/matzehuels/kitchenboard/pkg/store/mongo"
	"github.com/matzehuels/kitchenboard/pkg/store/postgres"
	"github.com/matzehuels/kitchenboard/pkg/store/remote"
)

// OpenStore connects the configured Graph Store. The caller closes it.
func (s StoreConfig) OpenStore(ctx context.Context, logger *log.Logger) (store.Store, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	switch s.Driver {
	case StorePostgres:
		pg, err := postgres.Open(ctx, s.DSN, logger)
		if err != nil {
			return nil, err
		}
		if s.Migrate {
			if err := pg.Migrate(ctx); err != nil {
				pg.Close()
				return nil, err
			}
		}
		return pg, nil

	case StoreMongo:
		m, err := mongo.Connect(ctx, s.DSN, s.Database, logger)
		if err != nil {
			return nil, err
		}
		if s.Migrate {
			if err := m.EnsureIndexes(ctx); err != nil {
				m.Close()
				return nil, err
			}
		}
		return m, nil

	case StoreRemote:
		r, err := remote.New(remote.Options{Endpoint: s.Endpoint, Token: s.Token, Logger: logger})
		if err != nil {
			return nil, err
		}
		return r, nil

	default:
		if s.Seed == "" {
			return memory.New(), nil
		}
		g, err := kitchen.ReadGraphFile(s.Seed)
		if err != nil {
			return nil, fmt.Errorf("seed: %w", err)
		}
		logger.Debug("seeded memory store", "file", s.Seed, "nodes", len(g.Nodes), "edges", len(g.Edges))
		return memory.Seed(g), nil
	}
}

// OpenCache builds the configured cache and its keyer. Failing to reach
// Redis is an error; a file cache without a usable directory degrades to
// no caching.
func (c CacheConfig) OpenCache(ctx context.Context) (cache.Cache, cache.Keyer, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	var keyer cache.Keyer = cache.NewDefaultKeyer()
	if c.Prefix != "" {
		keyer = cache.NewScopedKeyer(keyer, c.Prefix)
	}

	switch c.Driver {
	case CacheNull:
		return cache.NewNullCache(), keyer, nil
	case CacheMemory:
		return cache.NewMemoryCache(), keyer, nil
	case CacheRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return rc, keyer, nil
	default:
		dir, err := c.CacheDir()
		if err != nil {
			return cache.NewNullCache(), keyer, nil
		}
		fc, err := cache.NewFileCache(dir)
		if err != nil {
			return nil, nil, err
		}
		return fc, keyer, nil
	}
}
