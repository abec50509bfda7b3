package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/neuralviz/pkg/dsl"
)

// The sources under examples/ double as documentation and must stay free
// of errors.
func TestExampleSources(t *testing.T) {
	tests := []struct {
		file    string
		network string
		layers  int
		output  string
		checks  map[int]string
	}{
		{"mnist.nv", "MNIST", 8, "(10,)", map[int]string{0: "(26, 26, 32)", 3: "(5, 5, 64)", 4: "(1600,)"}},
		{"sentiment.nv", "Sentiment", 5, "(1,)", map[int]string{0: "(200, 128)", 1: "(200, 128)", 2: "(32,)"}},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			src, err := os.ReadFile(filepath.Join("..", "..", "examples", tt.file))
			if err != nil {
				t.Fatalf("read example: %v", err)
			}
			ctx := context.Background()
			a := Analyze(ctx, string(src), Options{Filename: tt.file})
			if dsl.HasErrors(a.Diagnostics) {
				t.Fatalf("diagnostics = %v, want no errors", a.Diagnostics)
			}
			if len(a.Networks) != 1 {
				t.Fatalf("networks = %d, want 1", len(a.Networks))
			}
			res := a.Networks[0]
			if res.Network.Name != tt.network {
				t.Errorf("name = %q, want %q", res.Network.Name, tt.network)
			}
			if len(res.Network.Layers) != tt.layers {
				t.Fatalf("layers = %d, want %d", len(res.Network.Layers), tt.layers)
			}
			if got := res.OutputShape().String(); got != tt.output {
				t.Errorf("output shape = %s, want %s", got, tt.output)
			}
			for i, want := range tt.checks {
				if got := res.Network.Layers[i].OutputShape.String(); got != want {
					t.Errorf("layer %d (%s) shape = %s, want %s", i, res.Network.Layers[i].Kind, got, want)
				}
			}

			diagrams := Layout(ctx, a, Options{})
			if len(diagrams) != 1 || len(diagrams[0].Nodes) != tt.layers {
				t.Errorf("layout produced %d diagrams, want 1 with %d nodes", len(diagrams), tt.layers)
			}
		})
	}
}
