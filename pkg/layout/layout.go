package layout

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/matzehuels/neuralviz/pkg/dsl"
	"github.com/matzehuels/neuralviz/pkg/graph"
	"github.com/matzehuels/neuralviz/pkg/validate"
)

// Default layout settings.
const (
	DefaultDirection = graph.DirectionLR
	DefaultFontSize  = 14.0
	DefaultRankGap   = 48.0
	DefaultPadding   = 12.0
	DefaultMargin    = 24.0
)

const (
	charWidthRatio  = 0.6 // average glyph advance relative to font size
	lineHeightRatio = 1.4
	labelLines      = 2 // signature and output shape
)

// Options controls node sizing and spacing. Zero values take the defaults.
type Options struct {
	Direction string  `json:"direction,omitempty"`
	FontSize  float64 `json:"font_size,omitempty"`
	RankGap   float64 `json:"rank_gap,omitempty"`
	Padding   float64 `json:"padding,omitempty"`
	Margin    float64 `json:"margin,omitempty"`
}

// DefaultOptions returns the settings used for zero Options.
func DefaultOptions() Options {
	return Options{
		Direction: DefaultDirection,
		FontSize:  DefaultFontSize,
		RankGap:   DefaultRankGap,
		Padding:   DefaultPadding,
		Margin:    DefaultMargin,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Direction != graph.DirectionTB {
		o.Direction = d.Direction
	}
	if o.FontSize <= 0 {
		o.FontSize = d.FontSize
	}
	if o.RankGap <= 0 {
		o.RankGap = d.RankGap
	}
	if o.Padding <= 0 {
		o.Padding = d.Padding
	}
	if o.Margin <= 0 {
		o.Margin = d.Margin
	}
	return o
}

// ValidateDirection normalizes a user-supplied direction ("lr", "TB", ...).
func ValidateDirection(dir string) (string, error) {
	switch d := strings.ToUpper(dir); d {
	case "":
		return DefaultDirection, nil
	case graph.DirectionLR, graph.DirectionTB:
		return d, nil
	}
	return "", fmt.Errorf("invalid direction %q (must be LR or TB)", dir)
}

// TextWidth estimates the rendered width of s at the given font size.
func TextWidth(s string, fontSize float64) float64 {
	return float64(utf8.RuneCountInString(s)) * fontSize * charWidthRatio
}

// LineHeight returns the vertical advance of one text line.
func LineHeight(fontSize float64) float64 {
	return fontSize * lineHeightRatio
}

// Compute lays out the annotated network in res. It never fails: a network
// without layers yields a diagram with no nodes whose size is twice the
// margin. The validation diagnostics are copied onto the diagram.
func Compute(res *validate.Result, opts Options) graph.Diagram {
	opts = opts.withDefaults()
	net := res.Network

	d := graph.Diagram{
		Network:     net.Name,
		Direction:   opts.Direction,
		FontSize:    opts.FontSize,
		TotalParams: res.TotalParams,
		ParamsExact: res.ParamsExact,
		Nodes:       make([]graph.Node, len(net.Layers)),
		Edges:       make([]graph.Edge, 0, max(0, len(net.Layers)-1)),
		Diagnostics: append([]dsl.Diagnostic(nil), res.Diagnostics...),
	}
	if net.InputShape != nil {
		d.InputShape = net.InputShape.String()
	}

	// Size every node, then find the largest extent on each axis.
	var maxW, maxH float64
	for i := range net.Layers {
		l := &net.Layers[i]
		n := graph.Node{
			ID:        NodeID(i),
			Label:     l.Signature(),
			Kind:      l.Kind,
			ShapeText: shapeText(l.OutputShape),
			Rank:      i,
			Line:      l.Pos.Line,
			Params:    l.Params,
		}
		n.Width = max(TextWidth(n.Label, opts.FontSize), TextWidth(n.ShapeText, opts.FontSize)) + 2*opts.Padding
		n.Height = labelLines*LineHeight(opts.FontSize) + 2*opts.Padding
		maxW, maxH = max(maxW, n.Width), max(maxH, n.Height)
		d.Nodes[i] = n
	}

	horizontal := opts.Direction == graph.DirectionLR
	slot := maxH
	if horizontal {
		slot = maxW
	}
	for i := range d.Nodes {
		n := &d.Nodes[i]
		offset := opts.Margin + float64(i)*(slot+opts.RankGap)
		if horizontal {
			n.X = offset + (slot-n.Width)/2
			n.Y = opts.Margin + (maxH-n.Height)/2
		} else {
			n.X = opts.Margin + (maxW-n.Width)/2
			n.Y = offset + (slot-n.Height)/2
		}
		n.X, n.Y = round(n.X), round(n.Y)
		n.Width, n.Height = round(n.Width), round(n.Height)
	}

	for i := 1; i < len(d.Nodes); i++ {
		d.Edges = append(d.Edges, connect(&d.Nodes[i-1], &d.Nodes[i], horizontal))
	}

	n := float64(len(d.Nodes))
	extent := 0.0
	if n > 0 {
		extent = n*slot + (n-1)*opts.RankGap
	}
	if horizontal {
		d.Width, d.Height = extent, maxH
	} else {
		d.Width, d.Height = maxW, extent
	}
	d.Width = round(d.Width + 2*opts.Margin)
	d.Height = round(d.Height + 2*opts.Margin)
	return d
}

// NodeID returns the ID of the node for layer i.
func NodeID(i int) string {
	return fmt.Sprintf("layer%d", i)
}

// connect joins the facing borders of two consecutive nodes.
func connect(from, to *graph.Node, horizontal bool) graph.Edge {
	fc, tc := from.Center(), to.Center()
	var a, b graph.Point
	if horizontal {
		a = graph.Point{X: from.X + from.Width, Y: fc.Y}
		b = graph.Point{X: to.X, Y: tc.Y}
	} else {
		a = graph.Point{X: fc.X, Y: from.Y + from.Height}
		b = graph.Point{X: tc.X, Y: to.Y}
	}
	a.X, a.Y, b.X, b.Y = round(a.X), round(a.Y), round(b.X), round(b.Y)
	return graph.Edge{From: from.ID, To: to.ID, Points: []graph.Point{a, b}}
}

func shapeText(s dsl.Shape) string {
	if s == nil {
		return "?"
	}
	return s.String()
}

// round keeps two decimals so encoded diagrams stay short and stable.
func round(v float64) float64 {
	return math.Round(v*100) / 100
}
