package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Layout.Direction != "LR" {
		t.Errorf("direction = %q, want LR", cfg.Layout.Direction)
	}
	if cfg.Cache.Backend != BackendFile {
		t.Errorf("backend = %q, want %q", cfg.Cache.Backend, BackendFile)
	}
	if cfg.Cache.TTL.Duration != 24*time.Hour {
		t.Errorf("ttl = %v, want 24h", cfg.Cache.TTL)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "config.toml", `
[layout]
direction = "TB"
rank_gap = 60.0

[validate]
unknown_kinds = "warn"

[render]
formats = ["svg", "dot"]
engine = "graphviz"

[cache]
backend = "redis"
redis_addr = "cache:6379"
ttl = "1h30m"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Layout.Direction != "TB" {
		t.Errorf("direction = %q, want TB", cfg.Layout.Direction)
	}
	if cfg.Layout.RankGap != 60 {
		t.Errorf("rank_gap = %v, want 60", cfg.Layout.RankGap)
	}
	if cfg.Layout.FontSize != 14 {
		t.Errorf("font_size = %v, want default 14", cfg.Layout.FontSize)
	}
	if cfg.Validate.UnknownKinds != "warn" {
		t.Errorf("unknown_kinds = %q, want warn", cfg.Validate.UnknownKinds)
	}
	if len(cfg.Render.Formats) != 2 || cfg.Render.Engine != "graphviz" {
		t.Errorf("render = %+v", cfg.Render)
	}
	if cfg.Cache.Backend != BackendRedis || cfg.Cache.RedisAddr != "cache:6379" {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Cache.TTL.Duration != 90*time.Minute {
		t.Errorf("ttl = %v, want 1h30m", cfg.Cache.TTL)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("server addr = %q, want default :8080", cfg.Server.Addr)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
layout:
  direction: TB
render:
  formats: [json]
cache:
  backend: none
  ttl: 10m
server:
  addr: ":9090"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Layout.Direction != "TB" {
		t.Errorf("direction = %q, want TB", cfg.Layout.Direction)
	}
	if len(cfg.Render.Formats) != 1 || cfg.Render.Formats[0] != "json" {
		t.Errorf("formats = %v, want [json]", cfg.Render.Formats)
	}
	if cfg.Cache.Backend != BackendNone {
		t.Errorf("backend = %q, want none", cfg.Cache.Backend)
	}
	if cfg.Cache.TTL.Duration != 10*time.Minute {
		t.Errorf("ttl = %v, want 10m", cfg.Cache.TTL)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q, want :9090", cfg.Server.Addr)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name, file, content, want string
	}{
		{"unknown toml key", "c.toml", "[layout]\ndirektion = \"TB\"\n", "unknown key"},
		{"unknown yaml key", "c.yml", "layout:\n  direktion: TB\n", "direktion"},
		{"bad direction", "c.toml", "[layout]\ndirection = \"RL\"\n", "invalid direction"},
		{"bad policy", "c.toml", "[validate]\nunknown_kinds = \"ignore\"\n", "unknown-kind policy"},
		{"bad format", "c.toml", "[render]\nformats = [\"gif\"]\n", "invalid format"},
		{"bad backend", "c.toml", "[cache]\nbackend = \"memcached\"\n", "invalid cache backend"},
		{"bad ttl", "c.toml", "[cache]\nttl = \"soon\"\n", "soon"},
		{"bad syntax", "c.toml", "[layout\n", "parse toml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("Load() of a missing file should fail")
	}
}

func TestPathXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	path, err := Path()
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join("/tmp/xdg", AppName, "config.toml")
	if path != want {
		t.Errorf("Path() = %q, want %q", path, want)
	}
}

func TestLoadDefault(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault() without a file: %v", err)
	}
	if cfg.Layout.Direction != "LR" {
		t.Errorf("direction = %q, want LR", cfg.Layout.Direction)
	}

	if err := os.MkdirAll(filepath.Join(dir, AppName), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, AppName, "config.toml"), []byte("[layout]\ndirection = \"TB\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault(): %v", err)
	}
	if cfg.Layout.Direction != "TB" {
		t.Errorf("direction = %q, want TB", cfg.Layout.Direction)
	}
}

func TestOptions(t *testing.T) {
	cfg := Default()
	cfg.Render.Formats = []string{"dot"}
	cfg.Validate.UnknownKinds = "warn"

	opts := cfg.Options()
	if opts.UnknownKinds != "warn" || opts.Formats[0] != "dot" {
		t.Errorf("Options() = %+v", opts)
	}
	opts.Formats[0] = "svg"
	if cfg.Render.Formats[0] != "dot" {
		t.Error("Options() shares the formats slice with the config")
	}
}
