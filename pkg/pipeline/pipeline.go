// Package pipeline runs the complete neuralviz chain for the CLI and the
// API server.
//
// This package implements tokenize → parse → validate → layout → render so
// that every entry point behaves the same way. The core packages (dsl,
// validate, layout) are pure; the pipeline adds what sits around them:
// defaults, option validation, caching, logging and observability hooks.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Analyze: Parse the source and validate every network in it
//  2. Layout: Position the layers of each network
//  3. Render: Produce SVG, DOT, PNG, PDF or JSON for each diagram
//
// Source problems never fail a stage; they are collected as diagnostics in
// the [Result]. Errors are reserved for bad options and for renderer or I/O
// failures.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Source:  src,
//	    Formats: []string{"svg"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Outputs[0].Artifacts["svg"]
//
// Run individual stages:
//
//	analysis := pipeline.Analyze(ctx, src, opts)
//	diagrams := pipeline.Layout(ctx, analysis, opts)
//	artifacts, err := pipeline.Render(ctx, diagrams[0], opts)
package pipeline

import (
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/neuralviz/pkg/cache"
	"github.com/matzehuels/neuralviz/pkg/dsl"
	"github.com/matzehuels/neuralviz/pkg/errors"
	"github.com/matzehuels/neuralviz/pkg/graph"
	"github.com/matzehuels/neuralviz/pkg/layout"
	"github.com/matzehuels/neuralviz/pkg/validate"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultDirection is the default rank direction.
	DefaultDirection = graph.DirectionLR

	// DefaultFontSize is the label size used for node measurement.
	DefaultFontSize = layout.DefaultFontSize

	// DefaultRankGap is the space between consecutive ranks.
	DefaultRankGap = layout.DefaultRankGap

	// DefaultUnknownKinds reports unknown layer kinds as errors.
	DefaultUnknownKinds = string(validate.UnknownKindError)

	// DefaultEngine is the default rendering engine.
	DefaultEngine = graph.EngineNative

	// DefaultScale is the PNG scale factor.
	DefaultScale = 2.0
)

// DefaultFormat is the format rendered when none is requested.
const DefaultFormat = graph.FormatSVG

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	graph.FormatSVG:  true,
	graph.FormatDOT:  true,
	graph.FormatPNG:  true,
	graph.FormatPDF:  true,
	graph.FormatJSON: true,
}

// ValidEngines is the set of supported rendering engines.
var ValidEngines = map[string]bool{
	graph.EngineNative:   true,
	graph.EngineGraphviz: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the visualization pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Input
	Source   string `json:"source"`
	Filename string `json:"filename,omitempty"` // label used in logs and output names
	Network  string `json:"network,omitempty"`  // only this network; empty means all

	// Validate options
	UnknownKinds string `json:"unknown_kinds,omitempty"`

	// Layout options
	Direction string  `json:"direction,omitempty"`
	FontSize  float64 `json:"font_size,omitempty"`
	RankGap   float64 `json:"rank_gap,omitempty"`

	// Render options
	Formats     []string `json:"formats,omitempty"`
	Engine      string   `json:"engine,omitempty"`
	Diagnostics bool     `json:"diagnostics,omitempty"` // draw the diagnostics panel
	ShowInput   bool     `json:"show_input,omitempty"`  // graphviz: draw an input node
	Detailed    bool     `json:"detailed,omitempty"`    // graphviz: params and line in labels
	Scale       float64  `json:"scale,omitempty"`
	Refresh     bool     `json:"refresh,omitempty"` // bypass cache reads

	// Runtime options (not serialized)
	MaxSourceBytes int         `json:"-"`
	Logger         *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Document is the parsed source.
	Document *dsl.Document

	// Networks holds one validation result per selected network, in
	// declaration order.
	Networks []*validate.Result

	// Outputs holds one diagram per entry of Networks, with its artifacts.
	Outputs []Output

	// Diagnostics merges syntax and semantic diagnostics, sorted by position.
	Diagnostics []dsl.Diagnostic

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Output is one laid-out network and its rendered files.
type Output struct {
	Diagram graph.Diagram

	// Hash is the content hash of the encoded diagram.
	Hash string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Networks     int
	Layers       int
	Errors       int
	Warnings     int
	AnalyzeTime  time.Duration
	LayoutTime   time.Duration
	RenderTime   time.Duration
	ArtifactSize int
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayoutHit bool // Whether all diagrams came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// HasErrors reports whether any error diagnostic was found.
func (r *Result) HasErrors() bool {
	return dsl.HasErrors(r.Diagnostics)
}

// Err returns a SOURCE_ERRORS error when the source has error diagnostics.
func (r *Result) Err() error {
	errs, _ := dsl.Count(r.Diagnostics)
	if errs == 0 {
		return nil
	}
	noun := "errors"
	if errs == 1 {
		noun = "error"
	}
	return errors.New(errors.ErrCodeSourceErrors, "source has %d %s", errs, noun)
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: svg, dot, png, pdf, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateEngine checks that a rendering engine is valid.
func ValidateEngine(engine string) error {
	if !ValidEngines[engine] {
		return errors.New(errors.ErrCodeInvalidOption, "invalid engine: %q (must be one of: native, graphviz)", engine)
	}
	return nil
}

// ParseFormats splits a comma-separated format list as given on the
// command line or in a query string. Duplicates are dropped.
func ParseFormats(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, f := range strings.Split(s, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForAnalyze(); err != nil {
		return err
	}
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForAnalyze checks the source and the validation options.
func (o *Options) ValidateForAnalyze() error {
	if err := errors.ValidateSource(o.Source, o.MaxSourceBytes); err != nil {
		return err
	}
	if err := errors.ValidateNetworkName(o.Network); err != nil {
		return err
	}
	if err := errors.ValidateFilename(o.Filename); err != nil {
		return err
	}
	if o.UnknownKinds == "" {
		o.UnknownKinds = DefaultUnknownKinds
	}
	if _, err := validate.ParsePolicy(o.UnknownKinds); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOption, err, "%v", err)
	}
	o.setLogger()
	return nil
}

// SetLayoutDefaults sets default values for layout computation.
func (o *Options) SetLayoutDefaults() {
	if o.Direction == "" {
		o.Direction = DefaultDirection
	}
	if o.FontSize <= 0 {
		o.FontSize = DefaultFontSize
	}
	if o.RankGap <= 0 {
		o.RankGap = DefaultRankGap
	}
	o.setLogger()
}

// ValidateForLayout validates and sets defaults for layout computation.
func (o *Options) ValidateForLayout() error {
	o.SetLayoutDefaults()
	dir, err := layout.ValidateDirection(o.Direction)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOption, err, "%v", err)
	}
	o.Direction = dir
	return nil
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{DefaultFormat}
	}
	if o.Engine == "" {
		o.Engine = DefaultEngine
	}
	if o.Scale <= 0 {
		o.Scale = DefaultScale
	}
	o.setLogger()
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	return ValidateEngine(o.Engine)
}

func (o *Options) setLogger() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateOptions returns the validator settings.
func (o *Options) ValidateOptions() validate.Options {
	policy, _ := validate.ParsePolicy(o.UnknownKinds)
	return validate.Options{UnknownKinds: policy}
}

// LayoutOptions returns the layout engine settings.
func (o *Options) LayoutOptions() layout.Options {
	return layout.Options{
		Direction: o.Direction,
		FontSize:  o.FontSize,
		RankGap:   o.RankGap,
	}
}

// DiagramKeyOpts returns cache key options for layout computation.
func (o *Options) DiagramKeyOpts() cache.DiagramKeyOpts {
	return cache.DiagramKeyOpts{
		Network:      o.Network,
		Direction:    o.Direction,
		FontSize:     o.FontSize,
		RankGap:      o.RankGap,
		UnknownKinds: o.UnknownKinds,
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
// Options that cannot change the given format are left out so that, for
// example, JSON output is shared between engines.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	k := cache.ArtifactKeyOpts{Format: format}
	switch format {
	case graph.FormatJSON:
		return k
	case graph.FormatDOT:
		k.ShowInput, k.Detailed = o.ShowInput, o.Detailed
		return k
	}
	k.Engine = o.Engine
	if o.Engine == graph.EngineGraphviz {
		k.ShowInput, k.Detailed = o.ShowInput, o.Detailed
	} else {
		k.Diagnostics = o.Diagnostics
	}
	if format == graph.FormatPNG {
		k.Scale = o.Scale
	}
	return k
}
