package graph

import (
	"github.com/matzehuels/neuralviz/pkg/dsl"
)

// =============================================================================
// Constants - Single Source of Truth
// =============================================================================

// Layout directions.
const (
	DirectionLR = "LR" // ranks run left to right
	DirectionTB = "TB" // ranks run top to bottom
)

// Output formats.
const (
	FormatSVG  = "svg"
	FormatDOT  = "dot"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
	FormatJSON = "json"
)

// Rendering engines.
const (
	EngineNative   = "native"   // positioned SVG straight from the computed layout
	EngineGraphviz = "graphviz" // DOT laid out again by Graphviz
)

// =============================================================================
// Diagram - Renderer Input
// =============================================================================

// Diagram is the laid-out form of one network and the only thing a renderer
// needs. It holds plain values and no references into the parsed document,
// so it can be serialized, cached and compared byte for byte.
type Diagram struct {
	Network    string  `json:"network"`
	Direction  string  `json:"direction"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	InputShape string  `json:"input_shape,omitempty"`
	FontSize   float64 `json:"font_size,omitempty"` // label size the nodes were measured with

	// TotalParams sums the known per-layer parameter estimates.
	// ParamsExact is false when some layer's count is unknown.
	TotalParams int64 `json:"total_params"`
	ParamsExact bool  `json:"params_exact"`

	Nodes       []Node           `json:"nodes"`
	Edges       []Edge           `json:"edges"`
	Diagnostics []dsl.Diagnostic `json:"diagnostics,omitempty"`
}

// Horizontal reports whether ranks advance along the x axis.
func (d *Diagram) Horizontal() bool { return d.Direction != DirectionTB }

// Node returns the node with the given ID.
func (d *Diagram) Node(id string) (*Node, bool) {
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return &d.Nodes[i], true
		}
	}
	return nil, false
}

// HasErrors reports whether any attached diagnostic is an error.
func (d *Diagram) HasErrors() bool {
	return dsl.HasErrors(d.Diagnostics)
}

// =============================================================================
// Node - Positioned Layer
// =============================================================================

// Node is one layer placed on the canvas. X and Y are the top-left corner.
type Node struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	Kind      string  `json:"kind"`
	ShapeText string  `json:"shape"`
	Rank      int     `json:"rank"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Line      int     `json:"line"` // source line of the layer declaration
	Params    int64   `json:"params"`
}

// Center returns the midpoint of the node's box.
func (n *Node) Center() Point {
	return Point{X: n.X + n.Width/2, Y: n.Y + n.Height/2}
}

// Contains reports whether p lies inside the node's box, borders included.
func (n *Node) Contains(p Point) bool {
	return p.X >= n.X && p.X <= n.X+n.Width && p.Y >= n.Y && p.Y <= n.Y+n.Height
}

// Overlaps reports whether two node boxes share any interior area.
func (n *Node) Overlaps(o *Node) bool {
	return n.X < o.X+o.Width && o.X < n.X+n.Width &&
		n.Y < o.Y+o.Height && o.Y < n.Y+n.Height
}

// =============================================================================
// Edge - Data Flow
// =============================================================================

// Edge carries a tensor from one layer to the next. Points holds the
// polyline from the source border to the target border.
type Edge struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Points []Point `json:"points"`
}

// Point is a canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
