// Package config loads the neuralviz configuration file.
//
// The file lives at $XDG_CONFIG_HOME/neuralviz/config.toml (or
// ~/.config/neuralviz/config.toml). TOML is the default format; a path
// ending in .yaml or .yml is read as YAML with the same keys:
//
//	[layout]
//	direction = "LR"
//	font_size = 14.0
//	rank_gap = 48.0
//
//	[validate]
//	unknown_kinds = "error"
//
//	[render]
//	formats = ["svg"]
//	engine = "native"
//
//	[cache]
//	backend = "file"
//	redis_addr = "localhost:6379"
//	ttl = "24h"
//
//	[server]
//	addr = ":8080"
//
// Missing keys keep their defaults. Command-line flags override the file.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/neuralviz/pkg/errors"
	"github.com/matzehuels/neuralviz/pkg/layout"
	"github.com/matzehuels/neuralviz/pkg/pipeline"
	"github.com/matzehuels/neuralviz/pkg/validate"
)

// AppName names the configuration and cache directories.
const AppName = "neuralviz"

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Config is the decoded configuration file.
type Config struct {
	Layout   LayoutConfig   `toml:"layout" yaml:"layout"`
	Validate ValidateConfig `toml:"validate" yaml:"validate"`
	Render   RenderConfig   `toml:"render" yaml:"render"`
	Cache    CacheConfig    `toml:"cache" yaml:"cache"`
	Server   ServerConfig   `toml:"server" yaml:"server"`
}

type LayoutConfig struct {
	Direction string  `toml:"direction" yaml:"direction"`
	FontSize  float64 `toml:"font_size" yaml:"font_size"`
	RankGap   float64 `toml:"rank_gap" yaml:"rank_gap"`
}

type ValidateConfig struct {
	UnknownKinds string `toml:"unknown_kinds" yaml:"unknown_kinds"`
}

type RenderConfig struct {
	Formats     []string `toml:"formats" yaml:"formats"`
	Engine      string   `toml:"engine" yaml:"engine"`
	Diagnostics bool     `toml:"diagnostics" yaml:"diagnostics"`
}

type CacheConfig struct {
	Backend       string   `toml:"backend" yaml:"backend"`
	Dir           string   `toml:"dir" yaml:"dir"` // file backend; empty means the user cache dir
	RedisAddr     string   `toml:"redis_addr" yaml:"redis_addr"`
	RedisPassword string   `toml:"redis_password" yaml:"redis_password"`
	RedisDB       int      `toml:"redis_db" yaml:"redis_db"`
	TTL           Duration `toml:"ttl" yaml:"ttl"`
}

type ServerConfig struct {
	Addr           string   `toml:"addr" yaml:"addr"`
	MaxSourceBytes int      `toml:"max_source_bytes" yaml:"max_source_bytes"`
	RequestTimeout Duration `toml:"request_timeout" yaml:"request_timeout"`
}

// Duration is a time.Duration written as a string such as "24h".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for both decoders.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Layout: LayoutConfig{
			Direction: pipeline.DefaultDirection,
			FontSize:  layout.DefaultFontSize,
			RankGap:   layout.DefaultRankGap,
		},
		Validate: ValidateConfig{UnknownKinds: pipeline.DefaultUnknownKinds},
		Render: RenderConfig{
			Formats: []string{pipeline.DefaultFormat},
			Engine:  pipeline.DefaultEngine,
		},
		Cache: CacheConfig{
			Backend:   BackendFile,
			RedisAddr: "localhost:6379",
			TTL:       Duration{24 * time.Hour},
		},
		Server: ServerConfig{
			Addr:           ":8080",
			MaxSourceBytes: errors.MaxSourceBytes,
			RequestTimeout: Duration{30 * time.Second},
		},
	}
}

// Path returns the default configuration file path.
func Path() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home dir: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, AppName, "config.toml"), nil
}

// Load reads the configuration file at path over the defaults. A missing
// file is an error; use [LoadDefault] for the optional default file.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := Decode(data, filepath.Ext(path), &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault reads the file at [Path] if it exists and returns the
// defaults otherwise.
func LoadDefault() (Config, error) {
	path, err := Path()
	if err != nil {
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Decode decodes data into cfg. ext selects the format: ".yaml" and ".yml"
// are YAML, anything else is TOML. Unknown keys are rejected so that typos
// do not go unnoticed.
func Decode(data []byte, ext string, cfg *Config) error {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && err != io.EOF {
			return fmt.Errorf("parse yaml: %w", err)
		}
		return nil
	}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return fmt.Errorf("parse toml: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown key %q", undecoded[0].String())
	}
	return nil
}

// Validate checks enumerated values and ranges.
func (c Config) Validate() error {
	if _, err := layout.ValidateDirection(c.Layout.Direction); err != nil {
		return err
	}
	if _, err := validate.ParsePolicy(c.Validate.UnknownKinds); err != nil {
		return err
	}
	if err := pipeline.ValidateFormats(c.Render.Formats); err != nil {
		return err
	}
	if c.Render.Engine != "" {
		if err := pipeline.ValidateEngine(c.Render.Engine); err != nil {
			return err
		}
	}
	switch c.Cache.Backend {
	case BackendFile, BackendRedis, BackendNone, "":
	default:
		return fmt.Errorf("invalid cache backend %q (must be file, redis or none)", c.Cache.Backend)
	}
	if c.Cache.TTL.Duration < 0 {
		return fmt.Errorf("cache ttl must not be negative")
	}
	return nil
}

// Options returns pipeline options carrying the configured defaults.
// Source, network and per-run flags are left for the caller to fill in.
func (c Config) Options() pipeline.Options {
	return pipeline.Options{
		UnknownKinds: c.Validate.UnknownKinds,
		Direction:    c.Layout.Direction,
		FontSize:     c.Layout.FontSize,
		RankGap:      c.Layout.RankGap,
		Formats:      append([]string(nil), c.Render.Formats...),
		Engine:       c.Render.Engine,
		Diagnostics:  c.Render.Diagnostics,
	}
}
