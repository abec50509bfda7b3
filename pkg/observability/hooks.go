// Package observability carries instrumentation events out of the
// pipeline, the caches and the API server.
//
// Each event category has a hook interface with a no-op implementation that
// is active until main installs something else. Library code only ever
// calls the accessors ([Pipeline], [Cache], [HTTP]) and never imports a
// metrics backend. [PrometheusHooks] implements all three interfaces and is
// what "neuralviz serve" installs.
//
//	hooks := observability.NewPrometheusHooks(prometheus.NewRegistry())
//	observability.SetPipelineHooks(hooks)
//	observability.SetCacheHooks(hooks)
//	observability.SetHTTPHooks(hooks)
//
// Emitting an event:
//
//	start := time.Now()
//	doc, diags := dsl.Parse(tokens)
//	observability.Pipeline().OnParseComplete(ctx, filename, len(doc.Blocks), len(diags), time.Since(start))
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the visualization pipeline.
type PipelineHooks interface {
	// OnParseComplete records a finished parse of one source.
	OnParseComplete(ctx context.Context, source string, blocks, diagnostics int, duration time.Duration)

	// OnValidateComplete records validation of one network.
	OnValidateComplete(ctx context.Context, network string, errors, warnings int, duration time.Duration)

	// OnLayoutComplete records the layout of one network.
	OnLayoutComplete(ctx context.Context, network string, nodes int, duration time.Duration)

	// OnRenderComplete records one rendered artifact.
	OnRenderComplete(ctx context.Context, network, format string, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the API server.
type HTTPHooks interface {
	// OnRequest records an incoming request. route is the matched pattern,
	// not the raw path.
	OnRequest(ctx context.Context, method, route string)

	// OnResponse records the response sent for a request.
	OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnParseComplete(context.Context, string, int, int, time.Duration)    {}
func (NoopPipelineHooks) OnValidateComplete(context.Context, string, int, int, time.Duration) {}
func (NoopPipelineHooks) OnLayoutComplete(context.Context, string, int, time.Duration)        {}
func (NoopPipelineHooks) OnRenderComplete(context.Context, string, string, time.Duration, error) {
}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                       {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

// registry holds the active hooks. The zero value is never used; defaults
// are installed by init and Reset.
type registry struct {
	mu       sync.RWMutex
	pipeline PipelineHooks
	cache    CacheHooks
	http     HTTPHooks
}

var hooks registry

func init() { Reset() }

// SetPipelineHooks registers pipeline hooks. A nil value is ignored.
// Call it once at startup, before the first pipeline run.
func SetPipelineHooks(h PipelineHooks) {
	if h == nil {
		return
	}
	hooks.mu.Lock()
	hooks.pipeline = h
	hooks.mu.Unlock()
}

// SetCacheHooks registers cache hooks. A nil value is ignored.
func SetCacheHooks(h CacheHooks) {
	if h == nil {
		return
	}
	hooks.mu.Lock()
	hooks.cache = h
	hooks.mu.Unlock()
}

// SetHTTPHooks registers HTTP hooks. A nil value is ignored.
func SetHTTPHooks(h HTTPHooks) {
	if h == nil {
		return
	}
	hooks.mu.Lock()
	hooks.http = h
	hooks.mu.Unlock()
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooks.mu.RLock()
	defer hooks.mu.RUnlock()
	return hooks.pipeline
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooks.mu.RLock()
	defer hooks.mu.RUnlock()
	return hooks.cache
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooks.mu.RLock()
	defer hooks.mu.RUnlock()
	return hooks.http
}

// Reset restores the no-op hooks. Tests that install hooks call it in
// t.Cleanup.
func Reset() {
	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	hooks.pipeline = NoopPipelineHooks{}
	hooks.cache = NoopCacheHooks{}
	hooks.http = NoopHTTPHooks{}
}
