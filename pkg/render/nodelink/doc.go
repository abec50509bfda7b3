// Package nodelink renders network diagrams through Graphviz.
//
// # Overview
//
// The native renderer in [sink] draws the geometry computed by the layout
// engine. This package instead hands the layer chain to Graphviz as DOT,
// which is handy when the diagram is going to be post-processed with
// Graphviz tools or pasted into other DOT documents.
//
// # Usage
//
// Convert a diagram to DOT format, then render to SVG:
//
//	dot := nodelink.ToDOT(diagram, nodelink.Options{ShowInput: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// For PDF or PNG output, use the render functions:
//
//	pdf, err := nodelink.RenderPDF(ctx, dot)
//	png, err := nodelink.RenderPNG(ctx, dot, 2.0)  // 2x scale
//
// # DOT Format
//
// Nodes are rounded boxes named after the diagram's node IDs ("layer0",
// "layer1", ...) and labelled with the layer signature and output shape.
// The rank direction follows the diagram's direction (LR or TB).
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
//
// [sink]: github.com/matzehuels/neuralviz/pkg/render/sink
package nodelink
