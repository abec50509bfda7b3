package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/neuralviz/pkg/errors"
	"github.com/matzehuels/neuralviz/pkg/graph"
	"github.com/matzehuels/neuralviz/pkg/observability"
	"github.com/matzehuels/neuralviz/pkg/render/nodelink"
	"github.com/matzehuels/neuralviz/pkg/render/sink"
)

// Render generates output artifacts for one diagram in the requested formats.
func Render(ctx context.Context, d graph.Diagram, opts Options) (map[string][]byte, error) {
	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		data, err := RenderFormat(ctx, d, format, opts)
		if err != nil {
			return nil, err
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

// RenderFormat renders a single format. DOT and JSON are the same for both
// engines.
func RenderFormat(ctx context.Context, d graph.Diagram, format string, opts Options) ([]byte, error) {
	start := time.Now()
	data, err := renderFormat(ctx, d, format, opts)
	observability.Pipeline().OnRenderComplete(ctx, d.Network, format, time.Since(start), err)
	return data, err
}

func renderFormat(ctx context.Context, d graph.Diagram, format string, opts Options) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case graph.FormatJSON:
		data, err = sink.RenderJSON(d)
	case graph.FormatDOT:
		data = []byte(nodelink.ToDOT(d, nodelinkOptions(opts)))
	case graph.FormatSVG, graph.FormatPNG, graph.FormatPDF:
		if opts.Engine == graph.EngineGraphviz {
			data, err = renderGraphviz(ctx, d, format, opts)
		} else {
			data, err = renderNative(ctx, d, format, opts)
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported format: %s", format)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRenderFailed, err, "render %s", format)
	}
	return data, nil
}

func renderNative(ctx context.Context, d graph.Diagram, format string, opts Options) ([]byte, error) {
	svgOpts := svgOptions(opts)
	switch format {
	case graph.FormatPNG:
		return sink.RenderPNG(ctx, d, sink.WithScale(opts.Scale), sink.WithPNGSVGOptions(svgOpts...))
	case graph.FormatPDF:
		return sink.RenderPDF(ctx, d, sink.WithPDFSVGOptions(svgOpts...))
	}
	return sink.RenderSVG(d, svgOpts...), nil
}

func renderGraphviz(ctx context.Context, d graph.Diagram, format string, opts Options) ([]byte, error) {
	dot := nodelink.ToDOT(d, nodelinkOptions(opts))
	switch format {
	case graph.FormatPNG:
		return nodelink.RenderPNG(ctx, dot, opts.Scale)
	case graph.FormatPDF:
		return nodelink.RenderPDF(ctx, dot)
	case graph.FormatSVG:
		return nodelink.RenderSVG(ctx, dot)
	}
	return nil, fmt.Errorf("graphviz cannot produce %s", format)
}

func svgOptions(opts Options) []sink.SVGOption {
	var out []sink.SVGOption
	if opts.Diagnostics {
		out = append(out, sink.WithDiagnostics())
	}
	return out
}

func nodelinkOptions(opts Options) nodelink.Options {
	return nodelink.Options{Detailed: opts.Detailed, ShowInput: opts.ShowInput}
}
