package sink_test

import (
	"bytes"
	"fmt"

	"github.com/matzehuels/neuralviz/pkg/dsl"
	"github.com/matzehuels/neuralviz/pkg/layout"
	"github.com/matzehuels/neuralviz/pkg/render/sink"
	"github.com/matzehuels/neuralviz/pkg/validate"
)

func ExampleRenderSVG() {
	doc, _ := dsl.ParseString(`NETWORK T { input: (4,4,1) layers: Dense(10,"relu") Output(2,"softmax") loss:"mse" optimizer:"sgd" }`)
	res, _ := validate.Network(doc.Networks()[0], validate.DefaultOptions())
	d := layout.Compute(res, layout.DefaultOptions())

	svg := sink.RenderSVG(d, sink.WithDiagnostics())
	fmt.Println("layers:", bytes.Count(svg, []byte(`<g class="layer"`)))
	fmt.Println("arrows:", bytes.Count(svg, []byte(`class="edge"`)))
	fmt.Println("panel:", bytes.Contains(svg, []byte("Diagnostics (")))
	// Output:
	// layers: 2
	// arrows: 1
	// panel: false
}
