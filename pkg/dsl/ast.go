package dsl

import (
	"encoding/json"
	"strings"
)

// Document is a parsed source file: an ordered sequence of blocks.
type Document struct {
	Blocks []Block
}

// Block is a top-level declaration, either *NetworkSpec or *ResearchSpec.
type Block interface {
	BlockKind() string
	BlockName() string
	Position() Position
	block()
}

// Networks returns the network blocks in declaration order.
func (d *Document) Networks() []*NetworkSpec {
	var out []*NetworkSpec
	for _, b := range d.Blocks {
		if n, ok := b.(*NetworkSpec); ok {
			out = append(out, n)
		}
	}
	return out
}

// Research returns the research blocks in declaration order.
func (d *Document) Research() []*ResearchSpec {
	var out []*ResearchSpec
	for _, b := range d.Blocks {
		if r, ok := b.(*ResearchSpec); ok {
			out = append(out, r)
		}
	}
	return out
}

// Network returns the first network called name. An empty name selects the
// first network of the document.
func (d *Document) Network(name string) (*NetworkSpec, bool) {
	for _, n := range d.Networks() {
		if name == "" || n.Name == name {
			return n, true
		}
	}
	return nil, false
}

// MarshalJSON tags each block with its kind.
func (d *Document) MarshalJSON() ([]byte, error) {
	type tagged struct {
		Type  string `json:"type"`
		Block Block  `json:"block"`
	}
	blocks := make([]tagged, len(d.Blocks))
	for i, b := range d.Blocks {
		blocks[i] = tagged{Type: b.BlockKind(), Block: b}
	}
	return json.Marshal(struct {
		Blocks []tagged `json:"blocks"`
	}{blocks})
}

// NetworkSpec is a parsed network block.
type NetworkSpec struct {
	Name            string           `json:"name"`
	InputShape      Shape            `json:"input_shape"`
	InputPos        Position         `json:"-"`
	Layers          []LayerSpec      `json:"layers"`
	Loss            string           `json:"loss,omitempty"`
	Optimizer       string           `json:"optimizer,omitempty"`
	OptimizerParams []NamedArg       `json:"optimizer_params,omitempty"`
	TrainConfig     map[string]Value `json:"train,omitempty"`
	ExecutionConfig map[string]Value `json:"execution,omitempty"`
	Fields          []Field          `json:"fields,omitempty"`
	Pos             Position         `json:"pos"`

	// Incomplete is set when the block's body needed error recovery.
	Incomplete bool `json:"incomplete,omitempty"`
}

func (*NetworkSpec) BlockKind() string    { return "network" }
func (n *NetworkSpec) BlockName() string  { return n.Name }
func (n *NetworkSpec) Position() Position { return n.Pos }
func (*NetworkSpec) block()               {}

// Clone returns a deep copy of the network.
func (n *NetworkSpec) Clone() *NetworkSpec {
	c := *n
	c.InputShape = n.InputShape.Clone()
	c.Layers = make([]LayerSpec, len(n.Layers))
	for i := range n.Layers {
		c.Layers[i] = n.Layers[i].Clone()
	}
	c.OptimizerParams = append([]NamedArg(nil), n.OptimizerParams...)
	c.TrainConfig = cloneValues(n.TrainConfig)
	c.ExecutionConfig = cloneValues(n.ExecutionConfig)
	c.Fields = append([]Field(nil), n.Fields...)
	return &c
}

func cloneValues(m map[string]Value) map[string]Value {
	if m == nil {
		return nil
	}
	out := make(map[string]Value, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Field is a network field the parser does not interpret.
type Field struct {
	Name  string   `json:"name"`
	Value Value    `json:"value"`
	Pos   Position `json:"pos"`
}

// LayerSpec is one layer declaration such as Conv2D(32, (3, 3)). The shape
// and parameter fields are filled in by validation, never by the parser.
type LayerSpec struct {
	Kind  string     `json:"kind"`
	Args  []Value    `json:"args,omitempty"`
	Named []NamedArg `json:"named,omitempty"`
	Pos   Position   `json:"pos"`

	InputShape  Shape `json:"input_shape,omitempty"`
	OutputShape Shape `json:"output_shape,omitempty"`
	Params      int64 `json:"params,omitempty"`
}

// Clone returns a copy with its own argument and shape slices.
func (l LayerSpec) Clone() LayerSpec {
	l.Args = append([]Value(nil), l.Args...)
	l.Named = append([]NamedArg(nil), l.Named...)
	l.InputShape = l.InputShape.Clone()
	l.OutputShape = l.OutputShape.Clone()
	return l
}

// Arg returns the i-th positional argument.
func (l *LayerSpec) Arg(i int) (Value, bool) {
	if i < 0 || i >= len(l.Args) {
		return Value{}, false
	}
	return l.Args[i], true
}

// Kwarg returns the named argument called name; repeated names resolve to
// the last occurrence.
func (l *LayerSpec) Kwarg(name string) (Value, bool) {
	return lookupNamed(l.Named, name)
}

// Param resolves a parameter that may be given by name or at position i.
// The named form wins. Pass a negative i for keyword-only parameters.
func (l *LayerSpec) Param(i int, name string) (Value, bool) {
	if v, ok := l.Kwarg(name); ok {
		return v, true
	}
	return l.Arg(i)
}

// Signature renders the layer as written, e.g. Dense(10, "relu").
func (l *LayerSpec) Signature() string {
	return l.Kind + "(" + formatArgs(l.Args, l.Named) + ")"
}

// LayerFromCall converts a call value such as the argument of
// TimeDistributed(Dense(10)) into a layer declaration.
func LayerFromCall(v Value) (LayerSpec, bool) {
	if v.Kind != CallValue {
		return LayerSpec{}, false
	}
	return LayerSpec{Kind: v.Str, Args: v.Items, Named: v.Named, Pos: v.Pos}, true
}

// ResearchSpec is a parsed research block. It is descriptive only.
type ResearchSpec struct {
	Name       string             `json:"name,omitempty"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
	References []Reference        `json:"references,omitempty"`
	Pos        Position           `json:"pos"`
	Incomplete bool               `json:"incomplete,omitempty"`
}

func (*ResearchSpec) BlockKind() string    { return "research" }
func (r *ResearchSpec) BlockName() string  { return r.Name }
func (r *ResearchSpec) Position() Position { return r.Pos }
func (*ResearchSpec) block()               {}

// Reference is one entry of a references section. Keys may repeat.
type Reference struct {
	Key   string   `json:"key"`
	Value string   `json:"value"`
	Pos   Position `json:"pos"`
}

// ReferenceMap returns the references as a mapping; the last entry of a
// repeated key wins.
func (r *ResearchSpec) ReferenceMap() map[string]string {
	out := make(map[string]string, len(r.References))
	for _, ref := range r.References {
		out[ref.Key] = ref.Value
	}
	return out
}

// Papers returns the values of all "paper" references in order.
func (r *ResearchSpec) Papers() []string {
	var out []string
	for _, ref := range r.References {
		if strings.EqualFold(ref.Key, "paper") {
			out = append(out, ref.Value)
		}
	}
	return out
}
