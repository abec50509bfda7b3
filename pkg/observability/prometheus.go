package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusHooks records pipeline, cache and HTTP events as Prometheus
// metrics. It implements PipelineHooks, CacheHooks and HTTPHooks.
type PrometheusHooks struct {
	stageDuration *prometheus.HistogramVec
	diagnostics   *prometheus.CounterVec
	layoutNodes   prometheus.Histogram
	renders       *prometheus.CounterVec
	cacheEvents   *prometheus.CounterVec
	cacheBytes    *prometheus.CounterVec
	requests      *prometheus.CounterVec
	reqDuration   *prometheus.HistogramVec
}

// NewPrometheusHooks creates the metrics and registers them with reg.
func NewPrometheusHooks(reg prometheus.Registerer) *PrometheusHooks {
	h := &PrometheusHooks{
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "neuralviz_stage_duration_seconds",
				Help:    "Duration of pipeline stages",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"stage"},
		),
		diagnostics: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neuralviz_diagnostics_total",
				Help: "Diagnostics reported, by phase and severity",
			},
			[]string{"phase", "severity"},
		),
		layoutNodes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "neuralviz_layout_nodes",
				Help:    "Number of nodes per laid-out network",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
		renders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neuralviz_renders_total",
				Help: "Rendered artifacts by format and result",
			},
			[]string{"format", "result"},
		),
		cacheEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neuralviz_cache_events_total",
				Help: "Cache lookups and writes",
			},
			[]string{"key_type", "event"},
		),
		cacheBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neuralviz_cache_written_bytes_total",
				Help: "Bytes written to the cache",
			},
			[]string{"key_type"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neuralviz_http_requests_total",
				Help: "API requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		reqDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "neuralviz_http_request_duration_seconds",
				Help: "API request latency",
			},
			[]string{"method", "route"},
		),
	}
	reg.MustRegister(h.stageDuration, h.diagnostics, h.layoutNodes, h.renders,
		h.cacheEvents, h.cacheBytes, h.requests, h.reqDuration)
	return h
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (h *PrometheusHooks) OnParseComplete(_ context.Context, _ string, _, diagnostics int, d time.Duration) {
	h.stageDuration.WithLabelValues("parse").Observe(d.Seconds())
	h.diagnostics.WithLabelValues("syntax", "any").Add(float64(diagnostics))
}

func (h *PrometheusHooks) OnValidateComplete(_ context.Context, _ string, errors, warnings int, d time.Duration) {
	h.stageDuration.WithLabelValues("validate").Observe(d.Seconds())
	h.diagnostics.WithLabelValues("semantic", "error").Add(float64(errors))
	h.diagnostics.WithLabelValues("semantic", "warning").Add(float64(warnings))
}

func (h *PrometheusHooks) OnLayoutComplete(_ context.Context, _ string, nodes int, d time.Duration) {
	h.stageDuration.WithLabelValues("layout").Observe(d.Seconds())
	h.layoutNodes.Observe(float64(nodes))
}

func (h *PrometheusHooks) OnRenderComplete(_ context.Context, _, format string, d time.Duration, err error) {
	h.stageDuration.WithLabelValues("render").Observe(d.Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	h.renders.WithLabelValues(format, result).Inc()
}

func (h *PrometheusHooks) OnCacheHit(_ context.Context, keyType string) {
	h.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (h *PrometheusHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (h *PrometheusHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.cacheEvents.WithLabelValues(keyType, "set").Inc()
	h.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (h *PrometheusHooks) OnRequest(context.Context, string, string) {}

func (h *PrometheusHooks) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	h.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	h.reqDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ PipelineHooks = (*PrometheusHooks)(nil)
	_ CacheHooks    = (*PrometheusHooks)(nil)
	_ HTTPHooks     = (*PrometheusHooks)(nil)
)
