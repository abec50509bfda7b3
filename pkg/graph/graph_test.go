package graph

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/neuralviz/pkg/dsl"
)

func sampleDiagram() Diagram {
	return Diagram{
		Network:     "Tiny",
		Direction:   DirectionLR,
		Width:       300,
		Height:      100,
		InputShape:  "(4, 4, 1)",
		TotalParams: 192,
		ParamsExact: true,
		Nodes: []Node{
			{ID: "layer0", Label: `Dense(10, "relu")`, Kind: "Dense", ShapeText: "(10,)", Rank: 0, X: 24, Y: 24, Width: 120, Height: 52, Line: 4, Params: 170},
			{ID: "layer1", Label: `Output(2, "softmax")`, Kind: "Output", ShapeText: "(2,)", Rank: 1, X: 192, Y: 24, Width: 120, Height: 52, Line: 5, Params: 22},
		},
		Edges: []Edge{
			{From: "layer0", To: "layer1", Points: []Point{{X: 144, Y: 50}, {X: 192, Y: 50}}},
		},
		Diagnostics: []dsl.Diagnostic{
			dsl.SemanticWarning(dsl.Position{Line: 2, Column: 1}, "missing-loss", "network %q has no loss", "Tiny"),
		},
	}
}

func TestMarshalDiagramRoundTrip(t *testing.T) {
	want := sampleDiagram()
	data, err := MarshalDiagram(want)
	if err != nil {
		t.Fatalf("MarshalDiagram: %v", err)
	}

	got, err := UnmarshalDiagram(data)
	if err != nil {
		t.Fatalf("UnmarshalDiagram: %v", err)
	}
	again, err := MarshalDiagram(got)
	if err != nil {
		t.Fatalf("MarshalDiagram: %v", err)
	}
	if !bytes.Equal(data, again) {
		t.Errorf("round trip changed encoding:\n%s\n---\n%s", data, again)
	}
	if got.Diagnostics[0].Severity != dsl.SeverityWarning {
		t.Errorf("severity = %v, want warning", got.Diagnostics[0].Severity)
	}
}

func TestMarshalDiagramDeterministic(t *testing.T) {
	a, _ := MarshalDiagram(sampleDiagram())
	b, _ := MarshalDiagram(sampleDiagram())
	if !bytes.Equal(a, b) {
		t.Error("equal diagrams encoded differently")
	}
	if !strings.Contains(string(a), `"shape": "(10,)"`) {
		t.Errorf("encoding missing shape text:\n%s", a)
	}
}

func TestUnmarshalDiagramErrors(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantErr string
	}{
		{"InvalidJSON", `{not json`, "unmarshal diagram"},
		{"BadDirection", `{"network":"n","direction":"RL","nodes":[],"edges":[]}`, "invalid direction"},
		{"EmptyID", `{"network":"n","direction":"LR","nodes":[{"id":""}],"edges":[]}`, "node without id"},
		{"DuplicateNode", `{"network":"n","direction":"LR","nodes":[{"id":"a"},{"id":"a"}],"edges":[]}`, "duplicate node"},
		{"DanglingEdge", `{"network":"n","direction":"TB","nodes":[{"id":"a"}],"edges":[{"from":"a","to":"b"}]}`, "unknown node"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalDiagram([]byte(tt.json))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestDiagramFileIO(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.diagram.json")
	if err := WriteDiagramFile(sampleDiagram(), path); err != nil {
		t.Fatalf("WriteDiagramFile: %v", err)
	}
	d, err := ReadDiagramFile(path)
	if err != nil {
		t.Fatalf("ReadDiagramFile: %v", err)
	}
	if len(d.Nodes) != 2 || len(d.Edges) != 1 {
		t.Errorf("got %d nodes, %d edges; want 2, 1", len(d.Nodes), len(d.Edges))
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := ReadDiagram(f); err != nil {
		t.Errorf("ReadDiagram: %v", err)
	}

	if _, err := ReadDiagramFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDiagramHelpers(t *testing.T) {
	d := sampleDiagram()
	if !d.Horizontal() {
		t.Error("LR diagram should be horizontal")
	}
	if d.HasErrors() {
		t.Error("warnings only, HasErrors should be false")
	}

	n, ok := d.Node("layer1")
	if !ok || n.Kind != "Output" {
		t.Fatalf("Node(layer1) = %v, %v", n, ok)
	}
	if _, ok := d.Node("layer9"); ok {
		t.Error("Node(layer9) should not exist")
	}

	c := d.Nodes[0].Center()
	if c.X != 84 || c.Y != 50 {
		t.Errorf("Center = %+v, want {84 50}", c)
	}
	if !d.Nodes[0].Contains(c) {
		t.Error("node should contain its center")
	}
	if d.Nodes[0].Overlaps(&d.Nodes[1]) {
		t.Error("disjoint nodes reported as overlapping")
	}
	touching := d.Nodes[0]
	touching.X += touching.Width
	if d.Nodes[0].Overlaps(&touching) {
		t.Error("nodes sharing a border should not overlap")
	}
}
