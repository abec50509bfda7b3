package pipeline

import (
	"context"
	"time"

	"github.com/matzehuels/neuralviz/pkg/graph"
	"github.com/matzehuels/neuralviz/pkg/layout"
	"github.com/matzehuels/neuralviz/pkg/observability"
)

// Layout positions every network of the analysis. Networks with error
// diagnostics are laid out too, with unknown shapes drawn as "?".
func Layout(ctx context.Context, a *Analysis, opts Options) []graph.Diagram {
	lopts := opts.LayoutOptions()
	diagrams := make([]graph.Diagram, len(a.Networks))
	for i, res := range a.Networks {
		start := time.Now()
		diagrams[i] = layout.Compute(res, lopts)
		observability.Pipeline().OnLayoutComplete(ctx, res.Network.Name, len(diagrams[i].Nodes), time.Since(start))
	}
	return diagrams
}
