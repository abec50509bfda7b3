package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/matzehuels/neuralviz/pkg/dsl"
)

// UnknownKindPolicy decides how layers of an unregistered kind are reported.
type UnknownKindPolicy string

const (
	// UnknownKindError reports unknown layer kinds as errors.
	UnknownKindError UnknownKindPolicy = "error"
	// UnknownKindWarn reports them as warnings so that newer layer kinds can
	// be drawn before a shape rule exists for them.
	UnknownKindWarn UnknownKindPolicy = "warn"
)

// ParsePolicy converts a configuration string into a policy.
func ParsePolicy(s string) (UnknownKindPolicy, error) {
	switch p := UnknownKindPolicy(strings.ToLower(s)); p {
	case "":
		return UnknownKindError, nil
	case UnknownKindError, UnknownKindWarn:
		return p, nil
	}
	return "", fmt.Errorf("invalid unknown-kind policy %q (must be error or warn)", s)
}

// Options configures validation.
type Options struct {
	UnknownKinds UnknownKindPolicy
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{UnknownKinds: UnknownKindError}
}

// Result is an annotated copy of a network.
type Result struct {
	// Network is a deep copy of the input with shapes and parameter
	// counts filled in on every layer.
	Network *dsl.NetworkSpec

	// Training is the decoded train block, nil when there is none.
	Training *TrainingConfig

	// TotalParams sums the per-layer estimates. ParamsExact is false when
	// at least one layer's count could not be determined.
	TotalParams int64
	ParamsExact bool

	// Diagnostics found in this network, in source order.
	Diagnostics []dsl.Diagnostic
}

// OutputShape returns the shape produced by the last layer.
func (r *Result) OutputShape() dsl.Shape {
	if n := len(r.Network.Layers); n > 0 {
		return r.Network.Layers[n-1].OutputShape
	}
	return r.Network.InputShape
}

// HasErrors reports whether validation found any error.
func (r *Result) HasErrors() bool {
	return dsl.HasErrors(r.Diagnostics)
}

// knownDevices are the accepted values of execution.device.
var knownDevices = map[string]bool{
	"cpu": true, "gpu": true, "cuda": true, "tpu": true, "mps": true, "auto": true,
}

// Network validates net and infers its layer shapes. It returns the
// annotated copy together with the diagnostics, which are also stored in
// the result. net is not modified.
func Network(net *dsl.NetworkSpec, opts Options) (*Result, []dsl.Diagnostic) {
	if opts.UnknownKinds == "" {
		opts.UnknownKinds = UnknownKindError
	}
	out := net.Clone()
	rep := &reporter{}

	if out.InputShape == nil {
		rep.warn(out.Pos, "missing-input", "network %q declares no input shape; shapes stay unknown until a layer fixes them", out.Name)
	}

	total, exact := inferShapes(out, opts, rep)
	checkOutput(out, rep)

	if out.Loss == "" {
		rep.warn(out.Pos, "missing-loss", "network %q has no loss", out.Name)
	}
	if out.Optimizer == "" {
		rep.warn(out.Pos, "missing-optimizer", "network %q has no optimizer", out.Name)
	}
	for _, f := range out.Fields {
		rep.warn(f.Pos, "unknown-field", "unknown field %q is ignored", f.Name)
	}

	training := decodeTraining(out.TrainConfig, rep)
	checkExecution(out.ExecutionConfig, rep)

	diags := rep.sorted()
	return &Result{
		Network:     out,
		Training:    training,
		TotalParams: total,
		ParamsExact: exact,
		Diagnostics: diags,
	}, diags
}

// inferShapes threads the current shape through the layers. Every layer's
// InputShape is its predecessor's OutputShape (the network input for the
// first layer) and is set exactly once.
func inferShapes(net *dsl.NetworkSpec, opts Options, rep *reporter) (total int64, exact bool) {
	exact = true
	current := net.InputShape
	for i := range net.Layers {
		l := &net.Layers[i]
		l.InputShape = current.Clone()

		rule, ok := lookup(l.Kind)
		if !ok {
			if opts.UnknownKinds == UnknownKindWarn {
				rep.warn(l.Pos, "unknown-layer", "unknown layer kind %q; its shape is assumed to be unchanged", l.Kind)
			} else {
				rep.errorf(l.Pos, "unknown-layer", "unknown layer kind %q", l.Kind)
			}
			l.OutputShape = current.Clone()
			l.Params = -1
			exact = false
			continue
		}

		outShape, params := rule(&layerCtx{layer: l, in: current, rep: rep})
		l.OutputShape = outShape
		l.Params = params
		if sum := addParams(total, params); sum < 0 {
			exact = false
		} else {
			total = sum
		}
		current = outShape
	}
	return total, exact
}

// checkOutput enforces the terminal layer policy: at least one layer, at
// most one Output layer and only in last position, and a final shape whose
// last dimension is a known positive size.
func checkOutput(net *dsl.NetworkSpec, rep *reporter) {
	n := len(net.Layers)
	if n == 0 {
		rep.errorf(net.Pos, "no-layers", "network %q has no layers", net.Name)
		return
	}

	outputs := 0
	for i := range net.Layers {
		l := &net.Layers[i]
		if !isOutputKind(l.Kind) {
			continue
		}
		outputs++
		switch {
		case outputs > 1:
			rep.errorf(l.Pos, "multiple-outputs", "network %q has more than one Output layer", net.Name)
		case i != n-1:
			rep.errorf(l.Pos, "output-not-last", "Output layer must be the last layer")
		}
	}

	last := &net.Layers[n-1]
	if outputs == 0 {
		rep.warn(last.Pos, "missing-output", "network %q does not end with an Output layer", net.Name)
	}
	if d := last.OutputShape.Last(); !d.IsKnown() || d <= 0 {
		rep.errorf(last.Pos, "bad-output-shape", "final layer %s produces %s; its last dimension must be a known positive size",
			last.Kind, shapeText(last.OutputShape))
	}
}

func isOutputKind(kind string) bool {
	return strings.EqualFold(kind, "Output")
}

func checkExecution(cfg map[string]dsl.Value, rep *reporter) {
	for _, key := range sortedKeys(cfg) {
		v := cfg[key]
		if key != "device" {
			rep.warn(v.Pos, "unknown-execution-option", "unknown execution option %q is ignored", key)
			continue
		}
		name, ok := v.Name()
		if !ok {
			rep.warn(v.Pos, "bad-device", "device must be a name such as \"gpu\", found %s", v.Kind)
			continue
		}
		if !knownDevices[strings.ToLower(name)] {
			rep.warn(v.Pos, "bad-device", "unknown device %q (expected cpu, gpu, cuda, tpu, mps or auto)", name)
		}
	}
}

func sortedKeys(m map[string]dsl.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func shapeText(s dsl.Shape) string {
	if s == nil {
		return "an unknown shape"
	}
	return s.String()
}

// reporter accumulates semantic diagnostics.
type reporter struct {
	diags []dsl.Diagnostic
}

func (r *reporter) errorf(pos dsl.Position, rule, format string, args ...any) {
	r.diags = append(r.diags, dsl.SemanticError(pos, rule, format, args...))
}

func (r *reporter) warn(pos dsl.Position, rule, format string, args ...any) {
	r.diags = append(r.diags, dsl.SemanticWarning(pos, rule, format, args...))
}

func (r *reporter) sorted() []dsl.Diagnostic {
	dsl.SortByPosition(r.diags)
	return r.diags
}
