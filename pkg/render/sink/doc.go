// Package sink writes laid-out diagrams to output formats.
//
// [RenderSVG] draws each layer as a rounded box at the coordinates chosen by
// the layout engine, labelled with its signature and output shape, and
// joins consecutive layers with arrows. Fill colors follow the layer
// family (see [render.KindColor]). With [WithDiagnostics], a panel below
// the canvas lists every diagnostic and layers on an error line get a red
// outline.
//
// [RenderJSON] writes the diagram itself; [RenderPNG] and [RenderPDF]
// convert the SVG with rsvg-convert.
//
// [render.KindColor]: github.com/matzehuels/neuralviz/pkg/render.KindColor
package sink
