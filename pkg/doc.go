// Package pkg provides the core libraries for neuralviz, a checker and
// diagram generator for neural network definitions.
//
// # Overview
//
// neuralviz reads a small language that describes networks as a stack of
// layers together with their training setup, reports every syntax and shape
// problem with its source position, and draws each network as a layered
// diagram. The pkg directory is organized into four areas:
//
//  1. Language: [dsl] (lexer, parser, syntax tree) and [validate] (shape
//     inference, parameter estimates, semantic diagnostics)
//  2. Geometry: [layout] (rank assignment and node placement) and [graph]
//     (the serializable diagram model)
//  3. Output: [render] and its engines [render/sink] and [render/nodelink]
//  4. Infrastructure: [pipeline], [cache], [config], [observability],
//     [errors] and [buildinfo]
//
// # Architecture
//
// The typical data flow:
//
//	source text
//	     ↓
//	[dsl] Tokenize → Parse          (syntax diagnostics, recovered document)
//	     ↓
//	[validate] Document / Network   (shapes, params, semantic diagnostics)
//	     ↓
//	[layout] Compute                (graph.Diagram with positions)
//	     ↓
//	[render] sink / nodelink        (SVG, DOT, PNG, PDF, JSON)
//
// Diagnostics never abort the flow. A source with errors still produces a
// document, a validated network with unknown shapes marked, and a diagram.
//
// # Quick Start
//
// Run the whole pipeline:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/neuralviz/pkg/pipeline"
//	)
//
//	runner := pipeline.NewRunner(nil, nil, nil)
//	result, err := runner.Execute(context.Background(), pipeline.Options{
//	    Source:  src,
//	    Formats: []string{"svg"},
//	})
//	if err != nil {
//	    return err
//	}
//	for _, d := range result.Diagnostics {
//	    fmt.Println(d)
//	}
//	svg := result.Outputs[0].Artifacts["svg"]
//
// Or use the stages directly:
//
//	doc, diags := dsl.ParseString(src)
//	res, more := validate.Network(doc.Networks()[0], validate.Options{})
//	diagram := layout.Compute(res, layout.DefaultOptions())
//
// # Main Packages
//
// [dsl] - Tokens, the recovering recursive-descent parser, the syntax tree
// (Document, NetworkSpec, LayerSpec, ResearchSpec), shapes and diagnostics.
//
// [validate] - Per-layer shape rules, parameter estimates, training and
// optimizer checks, and document-level checks such as duplicate names.
//
// [layout] - Places one node per layer on consecutive ranks, left to right
// or top to bottom, sized from the label text.
//
// [graph] - The Diagram, Node and Edge types with their JSON encoding.
//
// [render] - SVG to PDF/PNG conversion. [render/sink] draws diagrams from
// the computed geometry; [render/nodelink] emits Graphviz DOT.
//
// [pipeline] - The analyze → layout → render pipeline shared by the CLI and
// the HTTP API, with caching of layouts and artifacts.
//
// [cache] - File, Redis and null cache backends behind one interface.
//
// [config] - TOML or YAML configuration with defaults for every option.
//
// [observability] - Hook interfaces for pipeline, cache and HTTP events and a
// Prometheus implementation.
//
// [errors] - Error codes shared by the CLI and the API, and input checks.
//
// # Testing
//
//	go test ./pkg/...           # All tests
//	go test ./pkg/validate/...  # Specific package
//	go test -run Example ./...  # Examples only
//
// [dsl]: https://pkg.go.dev/github.com/matzehuels/neuralviz/pkg/dsl
// [validate]: https://pkg.go.dev/github.com/matzehuels/neuralviz/pkg/validate
// [layout]: https://pkg.go.dev/github.com/matzehuels/neuralviz/pkg/layout
// [graph]: https://pkg.go.dev/github.com/matzehuels/neuralviz/pkg/graph
// [render]: https://pkg.go.dev/github.com/matzehuels/neuralviz/pkg/render
// [render/sink]: https://pkg.go.dev/github.com/matzehuels/neuralviz/pkg/render/sink
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/neuralviz/pkg/render/nodelink
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/neuralviz/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/neuralviz/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/neuralviz/pkg/config
// [observability]: https://pkg.go.dev/github.com/matzehuels/neuralviz/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/neuralviz/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/neuralviz/pkg/buildinfo
package pkg
