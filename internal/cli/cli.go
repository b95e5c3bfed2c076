// Package cli implements the kitchenboard command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/kitchenboard/internal/config"
	"github.com/matzehuels/kitchenboard/pkg/board"
	"github.com/matzehuels/kitchenboard/pkg/buildinfo"
	"github.com/matzehuels/kitchenboard/pkg/cache"
	"github.com/matzehuels/kitchenboard/pkg/mutation"
	"github.com/matzehuels/kitchenboard/pkg/observability"
	"github.com/matzehuels/kitchenboard/pkg/pipeline"
	"github.com/matzehuels/kitchenboard/pkg/session"
	"github.com/matzehuels/kitchenboard/pkg/store"
	"github.com/matzehuels/kitchenboard/pkg/visibility"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "kitchenboard"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// ConfigPath is the --config flag; empty means the default location.
	ConfigPath string

	// Restaurant is the --restaurant flag, overriding the configured one.
	Restaurant string

	// Verbose is the --verbose flag.
	Verbose bool

	cfg    *config.Config
	sessFn func() (*session.CLIStore, error)
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		sessFn: session.NewCLIStore,
	}
}

// SetLogLevel updates the logger's level. At debug level store, cache and
// HTTP events are logged too.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
	if level <= log.DebugLevel {
		observability.NewLogHooks(c.Logger).Register()
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Kitchenboard lays out and edits restaurant kitchen graphs",
		Long: `Kitchenboard is a board for a restaurant's kitchen graph: dishes,
modifications and categories placed on a canvas and linked by edges.

It reads the graph from a Graph Store (in memory, PostgreSQL, MongoDB or a
remote kitchenboard server), lets you move, toggle and delete nodes from the
terminal, renders the board, and serves the store over HTTP.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if c.Verbose {
				c.SetLogLevel(LogDebug)
			}
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.ConfigPath, "config", "", "config file (default ~/.config/kitchenboard/config.toml)")
	root.PersistentFlags().StringVarP(&c.Restaurant, "restaurant", "r", "", "restaurant id (overrides config)")
	root.PersistentFlags().BoolVarP(&c.Verbose, "verbose", "v", false, "log store, cache and HTTP events")

	root.AddCommand(c.boardCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.nodeCommand())
	root.AddCommand(c.edgeCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.loginCommand())
	root.AddCommand(c.logoutCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// config loads the configuration once per process.
func (c *CLI) config() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return nil, err
	}
	c.cfg = &cfg
	return c.cfg, nil
}

// restaurantID resolves the restaurant from the flag or the config.
func (c *CLI) restaurantID() (string, error) {
	if c.Restaurant != "" {
		return c.Restaurant, nil
	}
	cfg, err := c.config()
	if err != nil {
		return "", err
	}
	if cfg.Board.RestaurantID == "" {
		return "", fmt.Errorf("no restaurant selected (use --restaurant or set [board] restaurant)")
	}
	return cfg.Board.RestaurantID, nil
}

// =============================================================================
// Backend Factory
// =============================================================================

// openStore connects the configured Graph Store. A remote store without an
// endpoint falls back to the saved login session.
func (c *CLI) openStore(ctx context.Context) (store.Store, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	sc := cfg.Store
	if sc.Driver == config.StoreRemote && (sc.Endpoint == "" || sc.Token == "") {
		sess, err := c.loadSession(ctx)
		if err != nil {
			return nil, err
		}
		if sc.Endpoint == "" {
			sc.Endpoint = sess.Endpoint
		}
		if sc.Token == "" {
			sc.Token = sess.Token
		}
	}
	st, err := sc.OpenStore(ctx, c.Logger)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", sc.Driver, err)
	}
	c.Logger.Debug("opened store", "driver", sc.Driver)
	return st, nil
}

// openCache builds the configured cache. noCache disables it.
func (c *CLI) openCache(ctx context.Context, noCache bool) (cache.Cache, cache.Keyer, error) {
	if noCache {
		return cache.NewNullCache(), cache.NewDefaultKeyer(), nil
	}
	cfg, err := c.config()
	if err != nil {
		return nil, nil, err
	}
	return cfg.Cache.OpenCache(ctx)
}

// backend bundles what a command needs to read and write one restaurant.
type backend struct {
	store  store.Store
	cache  cache.Cache
	loader *mutation.Loader
	facade *mutation.Facade
}

func (b *backend) Close() error {
	b.facade.Wait()
	cerr := b.cache.Close()
	if err := b.store.Close(); err != nil {
		return err
	}
	return cerr
}

// newBackend opens the store and cache and wires the loader and façade.
func (c *CLI) newBackend(ctx context.Context, noCache bool) (*backend, error) {
	st, err := c.openStore(ctx)
	if err != nil {
		return nil, err
	}
	ch, keyer, err := c.openCache(ctx, noCache)
	if err != nil {
		st.Close()
		return nil, err
	}
	loader := mutation.NewLoader(st, ch, keyer, c.Logger)
	return &backend{
		store:  st,
		cache:  ch,
		loader: loader,
		facade: mutation.NewFacade(st, loader, c.Logger),
	}, nil
}

// newBoard creates and loads the board of the selected restaurant.
func (c *CLI) newBoard(ctx context.Context, be *backend, refresh bool) (*board.Board, error) {
	rid, err := c.restaurantID()
	if err != nil {
		return nil, err
	}
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	filter := visibility.DefaultFilter()
	if a, err := visibility.ParseAvailability(cfg.Board.Availability); err == nil {
		filter.Availability = a
	}
	b := board.New(be.facade, board.Options{
		RestaurantID: rid,
		Layout:       cfg.Board.Layout,
		Filter:       &filter,
		Logger:       c.Logger,
	})
	load := b.Load
	if refresh {
		load = b.Refresh
	}
	if err := load(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// newRunner creates a render pipeline runner sharing the configured cache.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	ch, keyer, err := c.openCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(ch, keyer, c.Logger), nil
}
