package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/neuralviz/pkg/cache"
	"github.com/matzehuels/neuralviz/pkg/dsl"
	"github.com/matzehuels/neuralviz/pkg/graph"
	"github.com/matzehuels/neuralviz/pkg/observability"
)

// Cache key types reported to the cache hooks.
const (
	keyTypeDiagram  = "diagram"
	keyTypeArtifact = "artifact"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// TTL replaces the default entry lifetimes when positive.
	TTL time.Duration
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

// Execute runs the complete analyze → layout → render pipeline with caching.
//
// When the source selects no network, Execute returns a NO_NETWORK error
// together with a result that still carries the document and diagnostics.
// Error diagnostics do not make Execute fail; see [Result.Err].
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	// Stage 1: Analyze
	start := time.Now()
	a := r.Analyze(ctx, opts)
	result := &Result{
		Document:    a.Document,
		Networks:    a.Networks,
		Diagnostics: a.Diagnostics,
	}
	result.Stats.AnalyzeTime = time.Since(start)
	result.Stats.Networks = len(a.Networks)
	result.Stats.Errors, result.Stats.Warnings = dsl.Count(a.Diagnostics)
	for _, n := range a.Networks {
		result.Stats.Layers += len(n.Network.Layers)
	}

	opts.Logger.Info("analyzed source",
		"source", sourceLabel(opts),
		"networks", result.Stats.Networks,
		"errors", result.Stats.Errors,
		"warnings", result.Stats.Warnings,
		"duration", result.Stats.AnalyzeTime)

	if err := a.RequireNetworks(opts.Network); err != nil {
		return result, err
	}

	// Stage 2: Layout
	start = time.Now()
	diagrams, layoutHit, err := r.LayoutWithCacheInfo(ctx, a, opts)
	if err != nil {
		return result, fmt.Errorf("layout: %w", err)
	}
	result.Stats.LayoutTime = time.Since(start)
	result.CacheInfo.LayoutHit = layoutHit

	opts.Logger.Info("computed layout",
		"diagrams", len(diagrams),
		"layers", result.Stats.Layers,
		"cached", layoutHit,
		"duration", result.Stats.LayoutTime)

	// Stage 3: Render
	start = time.Now()
	result.CacheInfo.RenderHit = true
	for _, d := range diagrams {
		out := Output{Diagram: d, Hash: diagramHash(d)}
		artifacts, hit, err := r.RenderWithCacheInfo(ctx, d, opts)
		if err != nil {
			return result, err
		}
		out.Artifacts = artifacts
		for _, data := range artifacts {
			result.Stats.ArtifactSize += len(data)
		}
		result.CacheInfo.RenderHit = result.CacheInfo.RenderHit && hit
		result.Outputs = append(result.Outputs, out)
	}
	result.Stats.RenderTime = time.Since(start)

	opts.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"engine", opts.Engine,
		"bytes", result.Stats.ArtifactSize,
		"cached", result.CacheInfo.RenderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Analyze parses and validates the source. Analysis is never cached: it is
// cheap and its diagnostics must always be reported.
func (r *Runner) Analyze(ctx context.Context, opts Options) *Analysis {
	r.applyLogger(&opts)
	a := Analyze(ctx, opts.Source, opts)
	for _, d := range a.Diagnostics {
		opts.Logger.Debug("diagnostic", "pos", d.Pos, "severity", d.Severity, "rule", d.Rule, "message", d.Message)
	}
	return a
}

// LayoutWithCacheInfo lays out the analysed networks with caching and
// returns cache hit info.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, a *Analysis, opts Options) ([]graph.Diagram, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLayout(); err != nil {
		return nil, false, err
	}

	cacheKey := r.Keyer.DiagramKey(cache.Hash([]byte(opts.Source)), opts.DiagramKeyOpts())

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err != nil {
			opts.Logger.Warn("cache read failed", "key", cacheKey, "error", err)
		} else if hit {
			var cached []graph.Diagram
			if err := json.Unmarshal(data, &cached); err == nil && len(cached) == len(a.Networks) {
				observability.Cache().OnCacheHit(ctx, keyTypeDiagram)
				return cached, true, nil
			}
			// Stale or undecodable entries fall through to recompute
		}
		observability.Cache().OnCacheMiss(ctx, keyTypeDiagram)
	}

	diagrams := Layout(ctx, a, opts)

	if data, err := json.Marshal(diagrams); err == nil {
		r.store(ctx, opts, keyTypeDiagram, cacheKey, data, cache.TTLDiagram)
	}
	return diagrams, false, nil
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit info.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, d graph.Diagram, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	hash := diagramHash(d)
	artifacts := make(map[string][]byte, len(opts.Formats))
	allCached := true

	for _, format := range opts.Formats {
		cacheKey := r.Keyer.ArtifactKey(hash, opts.ArtifactKeyOpts(format))
		if !opts.Refresh {
			if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
				observability.Cache().OnCacheHit(ctx, keyTypeArtifact)
				artifacts[format] = data
				continue
			}
			observability.Cache().OnCacheMiss(ctx, keyTypeArtifact)
		}
		allCached = false

		data, err := RenderFormat(ctx, d, format, opts)
		if err != nil {
			return nil, false, err
		}
		artifacts[format] = data
		r.store(ctx, opts, keyTypeArtifact, cacheKey, data, cache.TTLArtifact)
	}

	return artifacts, allCached, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, d graph.Diagram, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, d, opts)
	return artifacts, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// store writes a cache entry. Cache failures are logged, never returned:
// a broken cache only costs recomputation.
func (r *Runner) store(ctx context.Context, opts Options, keyType, key string, data []byte, ttl time.Duration) {
	if r.TTL > 0 {
		ttl = r.TTL
	}
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		opts.Logger.Warn("cache write failed", "key", key, "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func diagramHash(d graph.Diagram) string {
	data, err := graph.MarshalDiagram(d)
	if err != nil {
		return ""
	}
	return cache.Hash(data)
}

func sourceLabel(opts Options) string {
	if opts.Filename != "" {
		return opts.Filename
	}
	return "<input>"
}
