package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/neuralviz/pkg/buildinfo"
	"github.com/matzehuels/neuralviz/pkg/cache"
	"github.com/matzehuels/neuralviz/pkg/config"
	"github.com/matzehuels/neuralviz/pkg/errors"
	"github.com/matzehuels/neuralviz/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = config.AppName

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

	// Config is loaded before any subcommand runs.
	Config config.Config

	verbose    bool
	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "neuralviz checks and draws neural network definitions",
		Long: `neuralviz reads a small language for describing neural networks, reports
syntax and shape errors with their source positions, and draws each network
as a layered diagram.`,
		Version:           buildinfo.Current(),
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/neuralviz/config.toml)")

	root.AddCommand(c.parseCommand())
	root.AddCommand(c.checkCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.describeCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// setup applies the log level, loads the configuration and attaches the
// logger to the command context.
func (c *CLI) setup(cmd *cobra.Command, args []string) error {
	if c.verbose {
		c.SetLogLevel(LogDebug)
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	c.Config = cfg

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(withLogger(ctx, c.Logger))
	return nil
}

func (c *CLI) loadConfig() (config.Config, error) {
	if c.configPath != "" {
		c.Logger.Debug("loading config", "path", c.configPath)
		return config.Load(c.configPath)
	}
	return config.LoadDefault()
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cch, err := newCache(c.Config.Cache, noCache)
	if err != nil {
		return nil, err
	}
	runner := pipeline.NewRunner(cch, nil, loggerFromContext(ctx))
	runner.TTL = c.Config.Cache.TTL.Duration
	return runner, nil
}

// newCache builds the configured cache backend.
func newCache(cfg config.CacheConfig, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil
	case config.BackendRedis:
		return cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), nil
	default:
		dir, err := cacheDir(cfg)
		if err != nil {
			return cache.NewNullCache(), nil
		}
		return cache.NewFileCache(dir)
	}
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the file cache directory: the configured one, or the XDG
// standard location (~/.cache/neuralviz/).
func cacheDir(cfg config.CacheConfig) (string, error) {
	if cfg.Dir != "" {
		return cfg.Dir, nil
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// outputBase strips the extension from input so that derived files land
// next to it (model.nv -> model).
func outputBase(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input))
}

// =============================================================================
// Input Helpers
// =============================================================================

// readSource reads a DSL file.
func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", errors.New(errors.ErrCodeFileNotFound, "file not found: %s", path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// sourceOptions returns pipeline options for path with the configured
// defaults applied.
func (c *CLI) sourceOptions(path string) (pipeline.Options, error) {
	src, err := readSource(path)
	if err != nil {
		return pipeline.Options{}, err
	}
	opts := c.Config.Options()
	opts.Source = src
	opts.Filename = filepath.Base(path)
	return opts, nil
}

// writeOutput writes data to path, creating parent directories.
func writeOutput(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// outputPath derives the file for one network's artifact next to base. A
// single network writes <base>.<ext>; several add the network name so that
// files do not collide (model.Encoder.svg).
func outputPath(base, network string, multi bool, ext string) (string, error) {
	name := filepath.Base(base)
	if multi {
		name += "." + network
	}
	name += "." + ext
	if err := errors.ValidatePath(name); err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(base), name), nil
}
