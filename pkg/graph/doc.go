// Package graph defines the diagram model that sits between layout and
// rendering.
//
// A [Diagram] is the positioned form of one validated network: one [Node]
// per layer, one [Edge] between each pair of consecutive layers, and the
// diagnostics that were found while building it. Renderers consume a
// Diagram and never look at the parsed document.
//
// # Coordinates
//
// Node X/Y is the top-left corner of the node's box in canvas units.
// Edge Points run from the border of the source box facing the target to
// the border of the target box facing the source. Width and Height of the
// Diagram cover every node plus the layout margin.
//
// # Serialization
//
// Diagrams use a stable JSON encoding (fixed field order, no maps), so
// laying out the same source twice gives byte-identical output:
//
//	data, _ := graph.MarshalDiagram(d)      // Diagram → []byte
//	d, err := graph.UnmarshalDiagram(data)  // []byte → Diagram (validated)
//	graph.WriteDiagramFile(d, "mnist.diagram.json")
//
// # Constants
//
// This package is the single source of truth for layout directions
// ([DirectionLR], [DirectionTB]), output formats and rendering engines.
package graph
