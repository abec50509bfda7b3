package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/matzehuels/neuralviz/pkg/buildinfo"
	"github.com/matzehuels/neuralviz/pkg/dsl"
	apierr "github.com/matzehuels/neuralviz/pkg/errors"
	"github.com/matzehuels/neuralviz/pkg/graph"
	"github.com/matzehuels/neuralviz/pkg/pipeline"
)

// =============================================================================
// Wire Types
// =============================================================================

// VisualizeRequest is the body of both API endpoints. Unset fields take
// the server's configured defaults.
type VisualizeRequest struct {
	Source       string  `json:"source"`
	Filename     string  `json:"filename,omitempty"`
	Network      string  `json:"network,omitempty"`
	Direction    string  `json:"direction,omitempty"`
	FontSize     float64 `json:"font_size,omitempty"`
	RankGap      float64 `json:"rank_gap,omitempty"`
	UnknownKinds string  `json:"unknown_kinds,omitempty"`

	// Render only.
	Engine      string  `json:"engine,omitempty"`
	Diagnostics bool    `json:"diagnostics,omitempty"`
	Detailed    bool    `json:"detailed,omitempty"`
	ShowInput   bool    `json:"show_input,omitempty"`
	Scale       float64 `json:"scale,omitempty"`
}

// VisualizeResponse is returned by POST /api/v1/visualize. Diagnostics are
// reported once for the whole source rather than per diagram.
type VisualizeResponse struct {
	RequestID   string           `json:"request_id"`
	Diagrams    []graph.Diagram  `json:"diagrams"`
	Diagnostics []dsl.Diagnostic `json:"diagnostics"`
	Cached      bool             `json:"cached"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	RequestID   string           `json:"request_id"`
	Error       ErrorBody        `json:"error"`
	Diagnostics []dsl.Diagnostic `json:"diagnostics,omitempty"`
}

// ErrorBody carries a pkg/errors code and its message.
type ErrorBody struct {
	Code    apierr.Code `json:"code"`
	Message string      `json:"message"`
}

// contentTypes maps render formats to response content types.
var contentTypes = map[string]string{
	graph.FormatSVG:  "image/svg+xml",
	graph.FormatDOT:  "text/vnd.graphviz; charset=utf-8",
	graph.FormatPNG:  "image/png",
	graph.FormatPDF:  "application/pdf",
	graph.FormatJSON: "application/json",
}

// Response headers of the render endpoint.
const (
	headerNetwork  = "X-Network"
	headerErrors   = "X-Diagnostic-Errors"
	headerWarnings = "X-Diagnostic-Warnings"
)

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok", "version": buildinfo.Current()}
	code := http.StatusOK
	if p, ok := s.runner.Cache.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			status["status"], status["cache"] = "degraded", err.Error()
			code = http.StatusServiceUnavailable
		} else {
			status["cache"] = "ok"
		}
	}
	writeJSON(w, code, status)
}

// handleVisualize lays out the source and returns the diagrams together
// with every diagnostic. Error diagnostics do not fail the request.
func (s *Server) handleVisualize(w http.ResponseWriter, r *http.Request) {
	req, err := s.decode(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	opts := s.options(req)
	if err := opts.ValidateForAnalyze(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := opts.ValidateForLayout(); err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	a := s.runner.Analyze(ctx, opts)
	if err := a.RequireNetworks(opts.Network); err != nil {
		writeError(w, r, err, a.Diagnostics...)
		return
	}
	diagrams, hit, err := s.runner.LayoutWithCacheInfo(ctx, a, opts)
	if err != nil {
		writeError(w, r, err, a.Diagnostics...)
		return
	}
	for i := range diagrams {
		diagrams[i].Diagnostics = nil
	}

	diags := a.Diagnostics
	if diags == nil {
		diags = []dsl.Diagnostic{}
	}
	writeJSON(w, http.StatusOK, VisualizeResponse{
		RequestID:   requestIDFrom(ctx),
		Diagrams:    diagrams,
		Diagnostics: diags,
		Cached:      hit,
	})
}

// handleRender renders one network in the format named by the format
// query parameter (svg by default). When the source declares several
// networks the first one selected is rendered; its name is reported in
// the X-Network header.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = graph.FormatSVG
	}
	if err := pipeline.ValidateFormat(format); err != nil {
		writeError(w, r, err)
		return
	}

	req, err := s.decode(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	opts := s.options(req)
	opts.Formats = []string{format}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	a := s.runner.Analyze(ctx, opts)
	if err := a.RequireNetworks(opts.Network); err != nil {
		writeError(w, r, err, a.Diagnostics...)
		return
	}
	diagrams, _, err := s.runner.LayoutWithCacheInfo(ctx, a, opts)
	if err != nil {
		writeError(w, r, err, a.Diagnostics...)
		return
	}
	d := diagrams[0]
	artifacts, _, err := s.runner.RenderWithCacheInfo(ctx, d, opts)
	if err != nil {
		writeError(w, r, err, a.Diagnostics...)
		return
	}

	errs, warns := dsl.Count(a.Diagnostics)
	h := w.Header()
	h.Set("Content-Type", contentTypes[format])
	h.Set(headerNetwork, d.Network)
	h.Set(headerErrors, strconv.Itoa(errs))
	h.Set(headerWarnings, strconv.Itoa(warns))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifacts[format])
}

// =============================================================================
// Helpers
// =============================================================================

// pinger is implemented by caches that can report their reachability.
type pinger interface {
	Ping(ctx context.Context) error
}

// decode reads the request body, which may not exceed the source limit
// plus room for the surrounding JSON.
func (s *Server) decode(w http.ResponseWriter, r *http.Request) (VisualizeRequest, error) {
	var req VisualizeRequest
	limit := int64(s.maxSourceBytes()) + bodyOverhead
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return req, apierr.New(apierr.ErrCodeInvalidInput, "request body too large (max %d bytes)", limit)
		}
		return req, apierr.Wrap(apierr.ErrCodeInvalidInput, err, "invalid request body: %v", err)
	}
	return req, nil
}

// options merges a request over the configured defaults.
func (s *Server) options(req VisualizeRequest) pipeline.Options {
	opts := s.cfg.Defaults
	opts.Formats = append([]string(nil), s.cfg.Defaults.Formats...)
	opts.Source = req.Source
	opts.Filename = req.Filename
	opts.Network = req.Network
	opts.MaxSourceBytes = s.maxSourceBytes()
	opts.Logger = s.logger
	if req.Direction != "" {
		opts.Direction = strings.ToUpper(req.Direction)
	}
	if req.FontSize > 0 {
		opts.FontSize = req.FontSize
	}
	if req.RankGap > 0 {
		opts.RankGap = req.RankGap
	}
	if req.UnknownKinds != "" {
		opts.UnknownKinds = req.UnknownKinds
	}
	if req.Engine != "" {
		opts.Engine = strings.ToLower(req.Engine)
	}
	opts.Diagnostics = opts.Diagnostics || req.Diagnostics
	opts.Detailed = req.Detailed
	opts.ShowInput = req.ShowInput
	if req.Scale > 0 {
		opts.Scale = req.Scale
	}
	return opts
}

func (s *Server) maxSourceBytes() int {
	if s.cfg.MaxSourceBytes > 0 {
		return s.cfg.MaxSourceBytes
	}
	return apierr.MaxSourceBytes
}

func errNotFound(path string) error {
	return apierr.New(apierr.ErrCodeNotFound, "no route for %s", path)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// writeError responds with the status and code of err. Errors without a
// code are reported as internal errors without their details.
func writeError(w http.ResponseWriter, r *http.Request, err error, diags ...dsl.Diagnostic) {
	code := apierr.GetCode(err)
	msg := apierr.UserMessage(err)
	if code == "" {
		code = apierr.ErrCodeInternal
		msg = "internal error"
	}
	writeJSON(w, apierr.HTTPStatus(err), ErrorResponse{
		RequestID:   requestIDFrom(r.Context()),
		Error:       ErrorBody{Code: code, Message: msg},
		Diagnostics: diags,
	})
}
