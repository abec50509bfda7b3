// Package layout places the layers of a validated network on a canvas.
//
// The layout is a single chain: layer i sits on rank i and an edge joins
// rank i to rank i+1. Ranks are spaced evenly along the primary axis
// (left to right by default, top to bottom with [graph.DirectionTB]) at the
// width of the largest node plus a fixed gap, so nodes never overlap no
// matter how long their labels are. Every node is centred on the secondary
// axis.
//
// Node sizes come from a fixed font-metric estimate rather than real font
// measurements, which keeps [Compute] pure and deterministic: the same
// validation result always yields the same [graph.Diagram].
package layout
