package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kitchenboard/internal/config"
	"github.com/matzehuels/kitchenboard/pkg/cache"
	"github.com/matzehuels/kitchenboard/pkg/mutation"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached graph snapshots and renders",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheInvalidateCommand())

	return cmd
}

// fileCacheDir returns the file cache directory of the loaded config.
func (c *CLI) fileCacheDir() (string, error) {
	cfg, err := c.config()
	if err != nil {
		return "", err
	}
	dir, err := cfg.Cache.CacheDir()
	if err != nil {
		return "", fmt.Errorf("get cache dir: %w", err)
	}
	return dir, nil
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every entry of the file cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if cfg.Cache.Driver != config.CacheFile {
				printWarning("The %s cache cannot be cleared from here", cfg.Cache.Driver)
				printNextStep("Drop one restaurant's snapshot with", "kitchenboard cache invalidate -r <restaurant>")
				return nil
			}
			dir, err := c.fileCacheDir()
			if err != nil {
				return err
			}
			fc, err := cache.NewFileCache(dir)
			if err != nil {
				return err
			}
			count, err := fc.Clear()
			if err != nil {
				return err
			}
			if count == 0 {
				printInfo("Cache is empty")
				return nil
			}
			printSuccess("Cleared %d cached entries", count)
			printDetail("Directory: %s", fc.Dir())
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the file cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := c.fileCacheDir()
			if err != nil {
				return err
			}
			printLine(dir)
			return nil
		},
	}
}

// cacheInvalidateCommand drops the cached snapshot of one restaurant in
// whichever cache is configured.
func (c *CLI) cacheInvalidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate",
		Short: "Drop the cached graph snapshot of the selected restaurant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rid, err := c.restaurantID()
			if err != nil {
				return err
			}
			ch, keyer, err := c.openCache(ctx, false)
			if err != nil {
				return err
			}
			defer ch.Close()
			if err := mutation.NewLoader(nil, ch, keyer, c.Logger).Invalidate(ctx, rid); err != nil {
				return err
			}
			printSuccess("Invalidated cached snapshot of %s", StyleHighlight.Render(rid))
			return nil
		},
	}
}
