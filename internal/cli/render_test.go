package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/neuralviz/pkg/graph"
	"github.com/matzehuels/neuralviz/pkg/pipeline"
)

const twoNetworks = `network Enc { input: (8,) layers: Dense(4) Output(2) loss: "mse" optimizer: "sgd" }
network Dec { input: (2,) layers: Dense(4) Output(8) loss: "mse" optimizer: "sgd" }`

func TestOutputPath(t *testing.T) {
	tests := []struct {
		base    string
		network string
		multi   bool
		ext     string
		want    string
	}{
		{"out/model", "T", false, "svg", filepath.Join("out", "model.svg")},
		{"out/model", "Enc", true, "svg", filepath.Join("out", "model.Enc.svg")},
		{"model", "T", false, diagramExt, "model.diagram.json"},
	}
	for _, tt := range tests {
		got, err := outputPath(tt.base, tt.network, tt.multi, tt.ext)
		if err != nil {
			t.Errorf("outputPath(%q, %q) error: %v", tt.base, tt.network, err)
			continue
		}
		if got != tt.want {
			t.Errorf("outputPath(%q, %q, %v, %q) = %q, want %q", tt.base, tt.network, tt.multi, tt.ext, got, tt.want)
		}
	}
}

func TestTrimFormatExt(t *testing.T) {
	tests := []struct{ in, want string }{
		{"out/model.svg", "out/model"},
		{"out/model.png", "out/model"},
		{"out/model.v2", "out/model.v2"},
		{"model", "model"},
	}
	for _, tt := range tests {
		if got := trimFormatExt(tt.in); got != tt.want {
			t.Errorf("trimFormatExt(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsDiagramFile(t *testing.T) {
	if !isDiagramFile("a/model.diagram.json") {
		t.Error("model.diagram.json should be a diagram file")
	}
	if isDiagramFile("model.json") || isDiagramFile("model.nv") {
		t.Error("only *.diagram.json are diagram files")
	}
}

func TestDiagramPaths(t *testing.T) {
	one := []graph.Diagram{{Network: "T"}}
	two := []graph.Diagram{{Network: "Enc"}, {Network: "Dec"}}

	got, _ := diagramPaths("src/model.nv", "", one)
	if want := filepath.Join("src", "model.diagram.json"); got[0] != want {
		t.Errorf("single = %q, want %q", got[0], want)
	}

	got, _ = diagramPaths("src/model.nv", "custom.json", one)
	if got[0] != "custom.json" {
		t.Errorf("explicit output = %q, want custom.json", got[0])
	}

	got, _ = diagramPaths("src/model.nv", "", two)
	if want := filepath.Join("src", "model.Dec.diagram.json"); got[1] != want {
		t.Errorf("multi = %q, want %q", got[1], want)
	}

	got, _ = diagramPaths("src/model.nv", "out/ae.diagram.json", two)
	if want := filepath.Join("out", "ae.Enc.diagram.json"); got[0] != want {
		t.Errorf("multi with output = %q, want %q", got[0], want)
	}
}

func TestWriteArtifacts(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "model")
	outputs := []pipeline.Output{
		{Diagram: graph.Diagram{Network: "Enc"}, Artifacts: map[string][]byte{"svg": []byte("<svg/>"), "dot": []byte("digraph")}},
		{Diagram: graph.Diagram{Network: "Dec"}, Artifacts: map[string][]byte{"svg": []byte("<svg/>")}},
	}

	paths, err := writeArtifacts(base, "", outputs)
	if err != nil {
		t.Fatalf("writeArtifacts: %v", err)
	}
	want := []string{base + ".Enc.dot", base + ".Enc.svg", base + ".Dec.svg"}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
		if _, err := os.Stat(want[i]); err != nil {
			t.Errorf("%s not written: %v", want[i], err)
		}
	}
}

func TestWriteArtifactsSingleOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "diagram.svg")
	outputs := []pipeline.Output{
		{Diagram: graph.Diagram{Network: "T"}, Artifacts: map[string][]byte{"svg": []byte("<svg/>")}},
	}
	paths, err := writeArtifacts("ignored", out, outputs)
	if err != nil {
		t.Fatalf("writeArtifacts: %v", err)
	}
	if len(paths) != 1 || paths[0] != out {
		t.Errorf("paths = %v, want [%s]", paths, out)
	}
}

func TestRunRenderSVG(t *testing.T) {
	isolate(t)
	captureStdout(t)
	input := writeSource(t, "model.nv", tinySource)

	c := New(io.Discard, LogInfo)
	flags := renderFlags{formats: "svg,dot"}
	flags.noCache = true
	if err := c.runRender(context.Background(), input, flags); err != nil {
		t.Fatalf("runRender: %v", err)
	}

	base := strings.TrimSuffix(input, ".nv")
	svg, err := os.ReadFile(base + ".svg")
	if err != nil {
		t.Fatalf("read svg: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Error("svg output missing <svg")
	}
	dot, err := os.ReadFile(base + ".dot")
	if err != nil {
		t.Fatalf("read dot: %v", err)
	}
	if !strings.Contains(string(dot), `digraph "T"`) {
		t.Errorf("dot output = %s", dot)
	}
}

func TestRunRenderMultipleNetworks(t *testing.T) {
	isolate(t)
	captureStdout(t)
	input := writeSource(t, "ae.nv", twoNetworks)

	c := New(io.Discard, LogInfo)
	if err := c.runRender(context.Background(), input, renderFlags{formats: "dot"}); err != nil {
		t.Fatalf("runRender: %v", err)
	}
	base := strings.TrimSuffix(input, ".nv")
	for _, name := range []string{"Enc", "Dec"} {
		if _, err := os.Stat(base + "." + name + ".dot"); err != nil {
			t.Errorf("%s not rendered: %v", name, err)
		}
	}
}

func TestLayoutThenRender(t *testing.T) {
	isolate(t)
	captureStdout(t)
	input := writeSource(t, "model.nv", tinySource)
	c := New(io.Discard, LogInfo)

	if err := c.runLayout(context.Background(), input, layoutFlags{direction: "tb"}); err != nil {
		t.Fatalf("runLayout: %v", err)
	}
	diagramFile := strings.TrimSuffix(input, ".nv") + ".diagram.json"
	d, err := graph.ReadDiagramFile(diagramFile)
	if err != nil {
		t.Fatalf("ReadDiagramFile: %v", err)
	}
	if d.Direction != graph.DirectionTB || len(d.Nodes) != 2 {
		t.Errorf("diagram = %s with %d nodes, want TB with 2", d.Direction, len(d.Nodes))
	}

	if err := c.runRender(context.Background(), diagramFile, renderFlags{formats: "json"}); err != nil {
		t.Fatalf("render diagram file: %v", err)
	}
	if _, err := os.Stat(strings.TrimSuffix(input, ".nv") + ".json"); err != nil {
		t.Errorf("json artifact not written: %v", err)
	}
}
