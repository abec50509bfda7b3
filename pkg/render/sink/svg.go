package sink

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/matzehuels/neuralviz/pkg/dsl"
	"github.com/matzehuels/neuralviz/pkg/graph"
	"github.com/matzehuels/neuralviz/pkg/layout"
	"github.com/matzehuels/neuralviz/pkg/render"
)

const (
	fontFamily = `'Inter', 'Helvetica Neue', Helvetica, Arial, sans-serif`
	monoFamily = `'JetBrains Mono', Menlo, Consolas, monospace`

	strokeColor  = "#334155"
	errorColor   = "#dc2626"
	warningColor = "#d97706"
	cornerRadius = 6.0
	panelPadding = 16.0
)

const layerCSS = `
    .layer rect { stroke: ` + strokeColor + `; stroke-width: 1.5; }
    .layer.invalid rect { stroke: ` + errorColor + `; stroke-width: 2.5; }
    .layer text { text-anchor: middle; dominant-baseline: central; fill: #0f172a; }
    .layer .shape { fill: #475569; }
    .edge { stroke: ` + strokeColor + `; stroke-width: 1.5; fill: none; }
    .diag { dominant-baseline: hanging; }`

// SVGOption configures [RenderSVG].
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	diagnostics bool
	background  string
}

// WithDiagnostics appends a panel listing the diagram's diagnostics and
// outlines the layers declared on a line that has an error.
func WithDiagnostics() SVGOption { return func(r *svgRenderer) { r.diagnostics = true } }

// WithBackground fills the canvas with the given CSS color.
func WithBackground(color string) SVGOption {
	return func(r *svgRenderer) { r.background = color }
}

// RenderSVG draws the diagram at the positions computed by the layout
// engine. Output is deterministic for equal diagrams and options.
func RenderSVG(d graph.Diagram, opts ...SVGOption) []byte {
	r := svgRenderer{}
	for _, opt := range opts {
		opt(&r)
	}

	fontSize := d.FontSize
	if fontSize <= 0 {
		fontSize = layout.DefaultFontSize
	}

	var shown []dsl.Diagnostic
	if r.diagnostics {
		shown = d.Diagnostics
	}
	width, height := d.Width, d.Height+panelHeight(len(shown), fontSize)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %s %s" width="%.0f" height="%.0f" font-family="%s" font-size="%s">`+"\n",
		num(width), num(height), width, height, fontFamily, num(fontSize))
	fmt.Fprintf(&buf, "  <title>%s</title>\n", escapeXML(title(d)))
	renderDefs(&buf)
	fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", layerCSS)
	if r.background != "" {
		fmt.Fprintf(&buf, `  <rect width="100%%" height="100%%" fill="%s"/>`+"\n", escapeXML(r.background))
	}

	for _, e := range d.Edges {
		renderEdge(&buf, e)
	}
	bad := errorLines(shown)
	for _, n := range d.Nodes {
		renderNode(&buf, n, fontSize, bad[n.Line])
	}
	if len(shown) > 0 {
		renderDiagnostics(&buf, shown, d.Height, width, fontSize)
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func title(d graph.Diagram) string {
	if d.Network == "" {
		return "network"
	}
	return d.Network
}

func renderDefs(buf *bytes.Buffer) {
	buf.WriteString("  <defs>\n")
	fmt.Fprintf(buf, `    <marker id="arrow" viewBox="0 0 10 10" refX="10" refY="5" markerWidth="8" markerHeight="8" orient="auto-start-reverse"><path d="M 0 0 L 10 5 L 0 10 z" fill="%s"/></marker>`+"\n", strokeColor)
	buf.WriteString("  </defs>\n")
}

func renderEdge(buf *bytes.Buffer, e graph.Edge) {
	if len(e.Points) < 2 {
		return
	}
	var path bytes.Buffer
	for i, p := range e.Points {
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		if i > 0 {
			path.WriteByte(' ')
		}
		fmt.Fprintf(&path, "%s %s %s", cmd, num(p.X), num(p.Y))
	}
	fmt.Fprintf(buf, `  <path class="edge" d="%s" marker-end="url(#arrow)" data-from="%s" data-to="%s"/>`+"\n",
		path.String(), escapeXML(e.From), escapeXML(e.To))
}

func renderNode(buf *bytes.Buffer, n graph.Node, fontSize float64, invalid bool) {
	class := "layer"
	fill := render.KindColor(n.Kind)
	if n.ShapeText == "?" {
		fill = render.ColorInvalid
	}
	if invalid {
		class += " invalid"
	}
	c := n.Center()
	half := layout.LineHeight(fontSize) / 2

	fmt.Fprintf(buf, `  <g class="%s" id="%s" data-kind="%s" data-line="%d">`+"\n", class, escapeXML(n.ID), escapeXML(n.Kind), n.Line)
	fmt.Fprintf(buf, "    <title>%s</title>\n", escapeXML(tooltip(n)))
	fmt.Fprintf(buf, `    <rect x="%s" y="%s" width="%s" height="%s" rx="%s" fill="%s"/>`+"\n",
		num(n.X), num(n.Y), num(n.Width), num(n.Height), num(cornerRadius), fill)
	fmt.Fprintf(buf, `    <text x="%s" y="%s">%s</text>`+"\n", num(c.X), num(c.Y-half), escapeXML(n.Label))
	fmt.Fprintf(buf, `    <text class="shape" x="%s" y="%s">%s</text>`+"\n", num(c.X), num(c.Y+half), escapeXML(n.ShapeText))
	buf.WriteString("  </g>\n")
}

func tooltip(n graph.Node) string {
	if n.Params < 0 {
		return fmt.Sprintf("%s, line %d", n.Kind, n.Line)
	}
	return fmt.Sprintf("%s, line %d, %d params", n.Kind, n.Line, n.Params)
}

// errorLines collects the source lines that carry an error.
func errorLines(diags []dsl.Diagnostic) map[int]bool {
	lines := make(map[int]bool)
	for _, d := range diags {
		if d.Severity == dsl.SeverityError {
			lines[d.Pos.Line] = true
		}
	}
	return lines
}

func panelHeight(n int, fontSize float64) float64 {
	if n == 0 {
		return 0
	}
	return 2*panelPadding + float64(n+1)*layout.LineHeight(fontSize)
}

func renderDiagnostics(buf *bytes.Buffer, diags []dsl.Diagnostic, top, width, fontSize float64) {
	lh := layout.LineHeight(fontSize)
	x := panelPadding
	y := top + panelPadding

	fmt.Fprintf(buf, `  <g class="diagnostics" font-family="%s">`+"\n", monoFamily)
	fmt.Fprintf(buf, `    <line x1="0" y1="%s" x2="%s" y2="%s" stroke="#cbd5e1"/>`+"\n", num(top), num(width), num(top))
	fmt.Fprintf(buf, `    <text class="diag" x="%s" y="%s" font-weight="bold">Diagnostics (%d)</text>`+"\n", num(x), num(y), len(diags))
	for i, d := range diags {
		color := warningColor
		if d.Severity == dsl.SeverityError {
			color = errorColor
		}
		fmt.Fprintf(buf, `    <text class="diag" x="%s" y="%s" fill="%s">%s</text>`+"\n",
			num(x), num(y+float64(i+1)*lh), color, escapeXML(d.String()))
	}
	buf.WriteString("  </g>\n")
}

// num formats a coordinate without trailing zeros.
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
