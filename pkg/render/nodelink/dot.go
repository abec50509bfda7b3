package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/neuralviz/pkg/graph"
	"github.com/matzehuels/neuralviz/pkg/render"
)

// InputNodeID is the ID of the synthetic node drawn for the network input.
const InputNodeID = "input"

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds the parameter estimate and source line to node labels.
	Detailed bool

	// ShowInput draws the network's input shape as an extra node feeding
	// the first layer.
	ShowInput bool
}

// ToDOT converts a diagram to Graphviz DOT format for node-link visualization.
// The resulting DOT string can be rendered using [RenderSVG], [RenderPDF], or [RenderPNG].
//
// Only the structure of the diagram is used; Graphviz computes its own
// positions. Layers whose shape is unknown are filled red.
func ToDOT(d graph.Diagram, opts Options) string {
	rankdir := "LR"
	if !d.Horizontal() {
		rankdir = "TB"
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph %q {\n", graphName(d))
	fmt.Fprintf(&buf, "  rankdir=%s;\n", rankdir)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"Helvetica\", fontsize=12, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [arrowsize=0.7];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	showInput := opts.ShowInput && d.InputShape != "" && len(d.Nodes) > 0
	if showInput {
		fmt.Fprintf(&buf, "  %q [label=%q, shape=ellipse, fillcolor=%q];\n",
			InputNodeID, "Input\n"+d.InputShape, render.ColorDefault)
	}
	for _, n := range d.Nodes {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(fmtAttrs(n, opts.Detailed), ", "))
	}

	buf.WriteString("\n")
	if showInput {
		fmt.Fprintf(&buf, "  %q -> %q;\n", InputNodeID, d.Nodes[0].ID)
	}
	for _, e := range d.Edges {
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func graphName(d graph.Diagram) string {
	if d.Network == "" {
		return "network"
	}
	return d.Network
}

func fmtLabel(n graph.Node, detailed bool) string {
	lines := []string{n.Label, n.ShapeText}
	if detailed {
		params := "?"
		if n.Params >= 0 {
			params = strconv.FormatInt(n.Params, 10)
		}
		lines = append(lines, "params: "+params, fmt.Sprintf("line: %d", n.Line))
	}
	return strings.Join(lines, "\n")
}

func fmtAttrs(n graph.Node, detailed bool) []string {
	fill := render.KindColor(n.Kind)
	if n.ShapeText == "?" {
		fill = render.ColorInvalid
	}
	return []string{
		fmt.Sprintf("label=%q", fmtLabel(n, detailed)),
		fmt.Sprintf("fillcolor=%q", fill),
		fmt.Sprintf("tooltip=%q", n.Kind),
	}
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
// Returns the SVG bytes ready for display or further conversion with [render.ToPDF] or [render.ToPNG].
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-sized root element with one whose
// width and height match the viewBox in pixels.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
// This is a convenience wrapper around [RenderSVG] and [render.ToPDF].
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion.
// This is a convenience wrapper around [RenderSVG] and [render.ToPNG].
//
// A scale of 2.0 produces a 2x resolution image suitable for high-DPI displays.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(ctx, svg, scale)
}
