package sink

import (
	"fmt"

	"github.com/matzehuels/neuralviz/pkg/graph"
)

// JSONOption configures [RenderJSON].
type JSONOption func(*jsonRenderer)

type jsonRenderer struct {
	dropDiagnostics bool
}

// WithoutDiagnostics leaves the diagnostics out of the JSON document. Used
// when they are reported separately, as the API does.
func WithoutDiagnostics() JSONOption {
	return func(r *jsonRenderer) { r.dropDiagnostics = true }
}

// RenderJSON exports the diagram as a pretty-printed JSON document. The
// output can be read back with [graph.UnmarshalDiagram] and rendered again
// without re-parsing the source.
func RenderJSON(d graph.Diagram, opts ...JSONOption) ([]byte, error) {
	r := jsonRenderer{}
	for _, opt := range opts {
		opt(&r)
	}
	if r.dropDiagnostics {
		d.Diagnostics = nil
	}
	data, err := graph.MarshalDiagram(d)
	if err != nil {
		return nil, fmt.Errorf("render json: %w", err)
	}
	return data, nil
}
