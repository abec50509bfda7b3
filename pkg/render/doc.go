// Package render turns laid-out network diagrams into files.
//
// # Overview
//
// The renderers consume a [graph.Diagram] produced by the layout engine and
// never look back at the parsed document. Two engines are available:
//
//   - [sink]: draws the diagram straight from the computed geometry as SVG,
//     with an optional panel listing diagnostics. It also writes the
//     diagram as JSON.
//   - [nodelink]: emits Graphviz DOT and lets Graphviz lay the graph out
//     again. Useful when the output will be edited or embedded in other
//     Graphviz documents.
//
// # Format Conversion
//
// The [ToPDF] and [ToPNG] functions convert any SVG to other formats using
// the external rsvg-convert tool (from librsvg). Both engines use them.
//
//	svg := sink.RenderSVG(diagram)
//	pdf, err := render.ToPDF(ctx, svg)
//	png, err := render.ToPNG(ctx, svg, 2.0)  // 2x scale
//
// [graph.Diagram]: github.com/matzehuels/neuralviz/pkg/graph.Diagram
// [sink]: github.com/matzehuels/neuralviz/pkg/render/sink
// [nodelink]: github.com/matzehuels/neuralviz/pkg/render/nodelink
package render
