package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/neuralviz/pkg/cache"
	"github.com/matzehuels/neuralviz/pkg/config"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached diagrams and renders",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePruneCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			cch, err := newCache(c.Config.Cache, false)
			if err != nil {
				return err
			}
			defer cch.Close()

			clearer, ok := cch.(cache.Clearer)
			if !ok {
				printInfo("Cache backend %q cannot be cleared", c.Config.Cache.Backend)
				return nil
			}
			n, err := clearer.Clear(cmd.Context())
			if err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			printSuccess("Cleared %d cache entries", n)
			printCacheLocation(c.Config.Cache, cch)
			return nil
		},
	}
}

// cachePruneCommand creates the "cache prune" subcommand. Redis expires
// entries by itself, so only the file backend has anything to prune.
func (c *CLI) cachePruneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove expired and unreadable cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cch, err := newCache(c.Config.Cache, false)
			if err != nil {
				return err
			}
			defer cch.Close()

			fc, ok := cch.(*cache.FileCache)
			if !ok {
				printInfo("Nothing to prune for the %s backend", c.Config.Cache.Backend)
				return nil
			}
			n, err := fc.Prune(cmd.Context())
			if err != nil {
				return fmt.Errorf("prune cache: %w", err)
			}
			printSuccess("Pruned %d expired entries", n)
			printDetail("Directory: %s", fc.Dir())
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir(c.Config.Cache)
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(stdout, dir)
			return nil
		},
	}
}

func printCacheLocation(cfg config.CacheConfig, cch cache.Cache) {
	switch v := cch.(type) {
	case *cache.FileCache:
		printDetail("Directory: %s", v.Dir())
	case *cache.RedisCache:
		printDetail("Redis: %s (db %d)", cfg.RedisAddr, cfg.RedisDB)
	}
}
