package pipeline

import (
	"bytes"
	"context"
	"testing"

	"github.com/matzehuels/neuralviz/pkg/cache"
	"github.com/matzehuels/neuralviz/pkg/dsl"
	"github.com/matzehuels/neuralviz/pkg/errors"
	"github.com/matzehuels/neuralviz/pkg/graph"
)

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	r := NewRunner(c, nil, nil)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestExecute(t *testing.T) {
	r := newTestRunner(t)
	res, err := r.Execute(context.Background(), Options{
		Source:   digits,
		Filename: "digits.nn",
		Formats:  []string{"svg", "dot", "json"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(res.Outputs) != 1 {
		t.Fatalf("outputs = %d, want 1", len(res.Outputs))
	}
	out := res.Outputs[0]
	if got := len(out.Diagram.Nodes); got != 4 {
		t.Errorf("nodes = %d, want 4", got)
	}
	if got := out.Diagram.Nodes[1].ShapeText; got != "(13, 13, 32)" {
		t.Errorf("pool shape = %s, want (13, 13, 32)", got)
	}
	for _, f := range []string{"svg", "dot", "json"} {
		if len(out.Artifacts[f]) == 0 {
			t.Errorf("artifact %s is empty", f)
		}
	}
	if !bytes.HasPrefix(out.Artifacts["svg"], []byte("<svg")) {
		t.Error("svg artifact is not SVG")
	}
	if !bytes.Contains(out.Artifacts["dot"], []byte(`"layer2" -> "layer3"`)) {
		t.Error("dot artifact missing edge")
	}
	if out.Hash == "" {
		t.Error("output hash is empty")
	}
	if res.HasErrors() || res.Err() != nil {
		t.Errorf("unexpected errors: %v", res.Diagnostics)
	}
	if res.Stats.Networks != 1 || res.Stats.Layers != 4 {
		t.Errorf("stats = %+v", res.Stats)
	}
	if res.CacheInfo.LayoutHit || res.CacheInfo.RenderHit {
		t.Errorf("first run hit the cache: %+v", res.CacheInfo)
	}
}

func TestExecuteCached(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()
	opts := Options{Source: digits, Formats: []string{"svg", "json"}}

	first, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	second, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if !second.CacheInfo.LayoutHit || !second.CacheInfo.RenderHit {
		t.Errorf("second run cache info = %+v, want all hits", second.CacheInfo)
	}
	if !bytes.Equal(first.Outputs[0].Artifacts["svg"], second.Outputs[0].Artifacts["svg"]) {
		t.Error("cached svg differs from rendered svg")
	}

	opts.Refresh = true
	third, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("refresh Execute: %v", err)
	}
	if third.CacheInfo.LayoutHit || third.CacheInfo.RenderHit {
		t.Errorf("refresh run cache info = %+v, want no hits", third.CacheInfo)
	}

	// A different direction is a different layout.
	opts.Refresh = false
	opts.Direction = graph.DirectionTB
	fourth, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("TB Execute: %v", err)
	}
	if fourth.CacheInfo.LayoutHit {
		t.Error("TB layout served from the LR cache entry")
	}
}

func TestExecuteDeterministic(t *testing.T) {
	ctx := context.Background()
	opts := Options{Source: digits, Formats: []string{"json"}}

	a, err := NewRunner(nil, nil, nil).Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewRunner(nil, nil, nil).Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Outputs[0].Artifacts["json"], b.Outputs[0].Artifacts["json"]) {
		t.Error("diagram JSON differs between runs")
	}
}

func TestExecuteSourceErrors(t *testing.T) {
	src := `network A { input: (4,) layers: Frobnicate(1) Dense(3) Output(2) loss: "mse" optimizer: "sgd" }`
	res, err := NewRunner(nil, nil, nil).Execute(context.Background(), Options{Source: src})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.HasErrors() {
		t.Fatal("expected error diagnostics")
	}
	if !errors.Is(res.Err(), errors.ErrCodeSourceErrors) {
		t.Errorf("Err() = %v, want SOURCE_ERRORS", res.Err())
	}
	// Layout still runs: the unknown layer is drawn with an unknown shape.
	d := res.Outputs[0].Diagram
	if len(d.Nodes) != 3 {
		t.Fatalf("nodes = %d, want 3", len(d.Nodes))
	}
	if d.Nodes[0].ShapeText != "?" {
		t.Errorf("unknown layer shape = %s, want ?", d.Nodes[0].ShapeText)
	}
}

func TestExecuteNoNetwork(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	ctx := context.Background()

	res, err := r.Execute(ctx, Options{Source: `research { metrics { accuracy: 0.9 } }`})
	if !errors.Is(err, errors.ErrCodeNoNetwork) {
		t.Fatalf("err = %v, want NO_NETWORK", err)
	}
	if res == nil || res.Document == nil {
		t.Fatal("result should carry the parsed document")
	}

	_, err = r.Execute(ctx, Options{Source: digits, Network: "Missing"})
	if !errors.Is(err, errors.ErrCodeNoNetwork) {
		t.Errorf("err = %v, want NO_NETWORK", err)
	}
}

func TestExecuteSelectsNetwork(t *testing.T) {
	src := digits + `
network Tiny { input: (4,) layers: Dense(8) Output(1) loss: "mse" optimizer: "sgd" }`
	r := NewRunner(nil, nil, nil)
	ctx := context.Background()

	all, err := r.Execute(ctx, Options{Source: src, Formats: []string{"json"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(all.Outputs) != 2 {
		t.Errorf("outputs = %d, want 2", len(all.Outputs))
	}

	one, err := r.Execute(ctx, Options{Source: src, Network: "Tiny", Formats: []string{"json"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(one.Outputs) != 1 || one.Outputs[0].Diagram.Network != "Tiny" {
		t.Errorf("selected outputs = %+v", one.Outputs)
	}
}

func TestAnalyzeKeepsSyntaxErrors(t *testing.T) {
	a := Analyze(context.Background(), `network A { input: (4,) layers: Dense(3) Output(2)`, Options{})
	if a.Document == nil {
		t.Fatal("document is nil")
	}
	if a.SyntaxCount == 0 {
		t.Error("missing } should be a syntax error")
	}
	var syntax int
	for _, d := range a.Diagnostics {
		if d.Phase == dsl.PhaseSyntax {
			syntax++
		}
	}
	if syntax != a.SyntaxCount {
		t.Errorf("syntax diagnostics = %d, want %d", syntax, a.SyntaxCount)
	}
}

func TestRenderFormatGraphviz(t *testing.T) {
	a := Analyze(context.Background(), digits, Options{})
	opts := Options{Source: digits, Engine: "graphviz", ShowInput: true}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	d := Layout(context.Background(), a, opts)[0]

	svg, err := RenderFormat(context.Background(), d, "svg", opts)
	if err != nil {
		t.Fatalf("RenderFormat: %v", err)
	}
	if !bytes.Contains(svg, []byte("<svg")) {
		t.Error("graphviz output is not SVG")
	}

	if _, err := RenderFormat(context.Background(), d, "gif", opts); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("RenderFormat(gif) err = %v, want INVALID_FORMAT", err)
	}
}
