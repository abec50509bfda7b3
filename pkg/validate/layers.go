package validate

import (
	"math"
	"strings"

	"github.com/matzehuels/neuralviz/pkg/dsl"
)

// shapeRule computes a layer's output shape and trainable parameter count
// (-1 when unknown) from its input shape. Problems with the layer's
// arguments are reported through the context; a rule always returns a
// shape, using Unknown for dimensions it cannot determine.
type shapeRule func(c *layerCtx) (dsl.Shape, int64)

// registry maps lower-cased layer kinds to their shape rules. It is filled
// once by init and only read afterwards.
var registry map[string]shapeRule

func init() {
	registry = make(map[string]shapeRule)
	register := func(rule shapeRule, kinds ...string) {
		for _, k := range kinds {
			registry[strings.ToLower(k)] = rule
		}
	}

	register(denseRule, "Dense", "Output")
	register(convRule(1, convStandard), "Conv1D")
	register(convRule(2, convStandard), "Conv2D")
	register(convRule(3, convStandard), "Conv3D")
	register(convRule(1, convTransposed), "Conv1DTranspose")
	register(convRule(2, convTransposed), "Conv2DTranspose")
	register(convRule(3, convTransposed), "Conv3DTranspose")
	register(convRule(1, convSeparable), "SeparableConv1D")
	register(convRule(2, convSeparable), "SeparableConv2D")
	register(depthwiseRule(1), "DepthwiseConv1D")
	register(depthwiseRule(2), "DepthwiseConv2D")
	register(convRNNRule(1, 4), "ConvLSTM1D")
	register(convRNNRule(2, 4), "ConvLSTM2D")
	register(convRNNRule(3, 4), "ConvLSTM3D")
	register(convRNNRule(2, 3), "ConvGRU2D")
	register(poolRule(1), "MaxPooling1D", "AveragePooling1D", "MaxPool1D", "AvgPool1D")
	register(poolRule(2), "MaxPooling2D", "AveragePooling2D", "MaxPool2D", "AvgPool2D")
	register(poolRule(3), "MaxPooling3D", "AveragePooling3D", "MaxPool3D", "AvgPool3D")
	register(globalPoolRule(1), "GlobalMaxPooling1D", "GlobalAveragePooling1D")
	register(globalPoolRule(2), "GlobalMaxPooling2D", "GlobalAveragePooling2D")
	register(globalPoolRule(3), "GlobalMaxPooling3D", "GlobalAveragePooling3D")
	register(adaptivePoolRule(1), "AdaptiveMaxPooling1D", "AdaptiveAveragePooling1D")
	register(adaptivePoolRule(2), "AdaptiveMaxPooling2D", "AdaptiveAveragePooling2D")
	register(adaptivePoolRule(3), "AdaptiveMaxPooling3D", "AdaptiveAveragePooling3D")
	register(upSamplingRule(1), "UpSampling1D")
	register(upSamplingRule(2), "UpSampling2D")
	register(upSamplingRule(3), "UpSampling3D")
	register(embeddingRule, "Embedding")
	register(flattenRule, "Flatten")
	register(reshapeRule, "Reshape")
	register(rnnRule(4, false), "LSTM", "CuDNNLSTM")
	register(rnnRule(3, true), "GRU", "CuDNNGRU")
	register(rnnRule(1, false), "SimpleRNN")
	register(cellRule(4, false), "LSTMCell")
	register(cellRule(3, true), "GRUCell")
	register(cellRule(1, false), "SimpleRNNCell", "RNNCell")
	register(dropoutWrapperRule(4, false), "LSTMDropoutWrapper")
	register(dropoutWrapperRule(3, true), "GRUDropoutWrapper")
	register(dropoutWrapperRule(1, false), "SimpleRNNDropoutWrapper")
	register(customShapeRule, "CustomShape")
	register(timeDistributedRule, "TimeDistributed")
	register(bidirectionalRule, "Bidirectional")
	register(dropoutRule, "Dropout", "SpatialDropout1D", "SpatialDropout2D", "SpatialDropout3D",
		"AlphaDropout", "GaussianDropout")
	register(normRule(4), "BatchNormalization", "BatchNorm")
	register(normRule(2), "LayerNormalization", "LayerNorm", "GroupNormalization", "InstanceNormalization")
	register(activationRule, "Activation")
	register(transformerRule, "TransformerEncoder")
	register(passThrough(0), "GaussianNoise", "Masking", "ActivityRegularization", "Identity",
		"ReLU", "LeakyReLU", "ELU", "Softmax", "ResidualConnection", "Residual", "PositionalEncoding")
	register(passThrough(-1), "TransformerDecoder", "MultiHeadAttention", "Attention", "SelfAttention", "PReLU")

	// Merges see a single input in a layer stack.
	register(passThrough(0), "Add", "Subtract", "Multiply", "Average", "Maximum", "Minimum",
		"Concatenate", "Dot")

	// Composite and research layers whose effect on the shape depends on
	// configuration the language does not describe.
	register(passThrough(-1), "Transformer", "SqueezeExcitation", "Capsule", "CapsuleLayer",
		"GraphConv", "GraphAttention", "Inception", "QuantumLayer", "DynamicLayer", "Lambda")
}

func lookup(kind string) (shapeRule, bool) {
	rule, ok := registry[strings.ToLower(kind)]
	return rule, ok
}

// KnownKind reports whether kind has a shape rule.
func KnownKind(kind string) bool {
	_, ok := lookup(kind)
	return ok
}

// =============================================================================
// Rules
// =============================================================================

// denseRule covers Dense and Output. Any input is flattened implicitly.
func denseRule(c *layerCtx) (dsl.Shape, int64) {
	units, ok := c.positiveInt(0, "units", true)
	c.name(1, "activation")
	if !ok {
		return dsl.Shape{dsl.Unknown}, -1
	}
	params := int64(-1)
	if features, known := c.in.Product(); known && c.in != nil {
		params = addParams(mulParams(features, int64(units)), int64(units))
	}
	return dsl.Shape{dsl.Dim(units)}, params
}

type convKind int

const (
	convStandard convKind = iota
	convTransposed
	convSeparable
)

// convRule handles N-dimensional convolutions over (spatial..., channels)
// inputs. Padding is "valid" unless padding="same" is given. Transposed
// convolutions grow the spatial dimensions instead of shrinking them;
// separable ones add a depthwise kernel per input channel.
func convRule(rank int, kind convKind) shapeRule {
	return func(c *layerCtx) (dsl.Shape, int64) {
		filters, okFilters := c.positiveInt(0, "filters", true)
		kernel, okKernel := c.sizes(1, "kernel_size", rank, nil)
		strides, ok := c.sizes(-1, "strides", rank, repeat(1, rank))
		if !ok {
			strides = repeat(1, rank)
		}
		padding := c.padding(-1, "padding")
		c.name(2, "activation")
		multiplier := 1
		if kind == convSeparable {
			if n, ok := c.positiveInt(-1, "depth_multiplier", false); ok {
				multiplier = n
			}
		}

		spatial, channels := c.spatial(rank)
		out := make(dsl.Shape, rank+1)
		for i := range rank {
			out[i] = dsl.Unknown
			switch {
			case !okKernel:
			case kind == convTransposed:
				out[i] = transposedWindow(spatial[i], kernel[i], strides[i], padding)
			default:
				out[i] = c.window(spatial[i], kernel[i], strides[i], padding, "kernel")
			}
		}
		out[rank] = dsl.Unknown
		if okFilters {
			out[rank] = dsl.Dim(filters)
		}

		if !okFilters || !okKernel || !channels.IsKnown() {
			return out, -1
		}
		k, ch, f := product(kernel), int64(channels), int64(filters)
		if kind == convSeparable {
			m := int64(multiplier)
			return out, addParams(mulParams(k, ch, m), mulParams(ch, m, f), f)
		}
		return out, addParams(mulParams(k, ch, f), f)
	}
}

// depthwiseRule convolves every input channel separately, producing
// depth_multiplier output channels per input channel.
func depthwiseRule(rank int) shapeRule {
	return func(c *layerCtx) (dsl.Shape, int64) {
		kernel, okKernel := c.sizes(0, "kernel_size", rank, nil)
		strides, ok := c.sizes(-1, "strides", rank, repeat(1, rank))
		if !ok {
			strides = repeat(1, rank)
		}
		padding := c.padding(-1, "padding")
		multiplier := 1
		if n, ok := c.positiveInt(-1, "depth_multiplier", false); ok {
			multiplier = n
		}
		c.name(-1, "activation")

		spatial, channels := c.spatial(rank)
		out := make(dsl.Shape, rank+1)
		for i := range rank {
			out[i] = dsl.Unknown
			if okKernel {
				out[i] = c.window(spatial[i], kernel[i], strides[i], padding, "kernel")
			}
		}
		out[rank] = dsl.Unknown
		if !channels.IsKnown() {
			return out, -1
		}
		out[rank] = channels * dsl.Dim(multiplier)
		if !okKernel {
			return out, -1
		}
		ch, m := int64(channels), int64(multiplier)
		return out, addParams(mulParams(product(kernel), ch, m), mulParams(ch, m))
	}
}

// convRNNRule covers convolutional recurrent layers over
// (timesteps, spatial..., channels) inputs.
func convRNNRule(rank, gates int) shapeRule {
	return func(c *layerCtx) (dsl.Shape, int64) {
		filters, okFilters := c.positiveInt(0, "filters", true)
		kernel, okKernel := c.sizes(1, "kernel_size", rank, nil)
		strides, ok := c.sizes(-1, "strides", rank, repeat(1, rank))
		if !ok {
			strides = repeat(1, rank)
		}
		padding := c.padding(-1, "padding")
		sequences := c.flag(-1, "return_sequences")
		c.name(-1, "activation")

		steps, frame := dsl.Unknown, dsl.Shape(nil)
		if c.in != nil {
			if len(c.in) == rank+2 {
				steps, frame = c.in[0], c.in[1:]
			} else {
				c.errorf("expects input of rank %d (timesteps, %s), got %s", rank+2, spatialNames(rank), c.in)
			}
		}
		spatial, channels := (&layerCtx{layer: c.layer, in: frame, rep: c.rep}).spatial(rank)

		out := make(dsl.Shape, 0, rank+2)
		if sequences {
			out = append(out, steps)
		}
		for i := range rank {
			d := dsl.Unknown
			if okKernel {
				d = c.window(spatial[i], kernel[i], strides[i], padding, "kernel")
			}
			out = append(out, d)
		}
		f := dsl.Unknown
		if okFilters {
			f = dsl.Dim(filters)
		}
		out = append(out, f)

		if !okFilters || !okKernel || !channels.IsKnown() {
			return out, -1
		}
		n := int64(filters)
		perGate := addParams(mulParams(product(kernel), addParams(int64(channels), n), n), n)
		return out, mulParams(int64(gates), perGate)
	}
}

// poolRule divides the spatial dimensions by the pool size, with strides
// defaulting to the pool size.
func poolRule(rank int) shapeRule {
	return func(c *layerCtx) (dsl.Shape, int64) {
		pool, okPool := c.sizes(0, "pool_size", rank, repeat(2, rank))
		var strides []int
		if okPool {
			strides, _ = c.sizes(1, "strides", rank, pool)
		}
		padding := c.padding(2, "padding")

		spatial, channels := c.spatial(rank)
		out := make(dsl.Shape, rank+1)
		for i := range rank {
			out[i] = dsl.Unknown
			if okPool && strides != nil {
				out[i] = c.window(spatial[i], pool[i], strides[i], padding, "pool size")
			}
		}
		out[rank] = channels
		return out, 0
	}
}

func globalPoolRule(rank int) shapeRule {
	return func(c *layerCtx) (dsl.Shape, int64) {
		_, channels := c.spatial(rank)
		return dsl.Shape{channels}, 0
	}
}

// adaptivePoolRule pools to a fixed output_size whatever the input size.
func adaptivePoolRule(rank int) shapeRule {
	return func(c *layerCtx) (dsl.Shape, int64) {
		size, ok := c.sizes(0, "output_size", rank, nil)
		_, channels := c.spatial(rank)
		out := make(dsl.Shape, rank+1)
		for i := range rank {
			out[i] = dsl.Unknown
			if ok {
				out[i] = dsl.Dim(size[i])
			}
		}
		out[rank] = channels
		return out, 0
	}
}

func upSamplingRule(rank int) shapeRule {
	return func(c *layerCtx) (dsl.Shape, int64) {
		size, ok := c.sizes(0, "size", rank, repeat(2, rank))
		spatial, channels := c.spatial(rank)
		out := make(dsl.Shape, rank+1)
		for i := range rank {
			out[i] = dsl.Unknown
			if ok && spatial[i].IsKnown() {
				out[i] = spatial[i] * dsl.Dim(size[i])
			}
		}
		out[rank] = channels
		return out, 0
	}
}

// embeddingRule maps token ids to vectors. The sequence length comes from
// input_length when given, otherwise from the second-to-last input
// dimension.
func embeddingRule(c *layerCtx) (dsl.Shape, int64) {
	inputDim, okIn := c.positiveInt(0, "input_dim", true)
	outputDim, okOut := c.positiveInt(1, "output_dim", true)

	seq := dsl.Unknown
	if n, ok := c.positiveInt(-1, "input_length", false); ok {
		seq = dsl.Dim(n)
	} else if len(c.in) >= 2 {
		seq = c.in[len(c.in)-2]
	}

	out := dsl.Shape{seq, dsl.Unknown}
	if okOut {
		out[1] = dsl.Dim(outputDim)
	}
	if !okIn || !okOut {
		return out, -1
	}
	return out, mulParams(int64(inputDim), int64(outputDim))
}

func flattenRule(c *layerCtx) (dsl.Shape, int64) {
	if n, ok := c.in.Product(); ok && c.in != nil {
		return dsl.Shape{dsl.Dim(n)}, 0
	}
	if c.in != nil && c.in.Known() {
		c.errorf("flattening %s overflows the element count", c.in)
	}
	return dsl.Shape{dsl.Unknown}, 0
}

// reshapeRule accepts a target shape with at most one -1 (or None)
// dimension, inferred from the input's element count.
func reshapeRule(c *layerCtx) (dsl.Shape, int64) {
	v, ok := c.layer.Param(0, "target_shape")
	if !ok {
		c.errorf("requires a target_shape such as (7, 7, 64)")
		return c.in.Clone(), 0
	}
	if v.Kind != dsl.TupleValue && v.Kind != dsl.ListValue {
		c.errorAt(v.Pos, "target_shape must be a tuple, found %s", v.Kind)
		return c.in.Clone(), 0
	}

	out := make(dsl.Shape, len(v.Items))
	wildcard := -1
	known := int64(1)
	invalid := false
	for i, item := range v.Items {
		n, isInt := item.Int()
		switch {
		case item.Kind == dsl.NullValue || (isInt && n == -1):
			if wildcard >= 0 {
				c.errorAt(item.Pos, "target_shape can have only one unknown dimension")
			}
			wildcard = i
			out[i] = dsl.Unknown
		case isInt && n > 0:
			out[i] = dsl.Dim(n)
			if invalid {
				break
			}
			if known = mulParams(known, int64(n)); known < 0 {
				c.errorAt(item.Pos, "target_shape has too many elements")
				invalid = true
			}
		default:
			c.errorAt(item.Pos, "target_shape dimensions must be positive integers, found %s", item)
			out[i] = dsl.Unknown
			invalid = true
		}
	}

	total, ok := c.in.Product()
	if !ok || c.in == nil || invalid {
		return out, 0
	}
	switch {
	case wildcard >= 0:
		if known == 0 || total%known != 0 {
			c.errorf("cannot reshape %s into %s", c.in, v)
			break
		}
		out[wildcard] = dsl.Dim(total / known)
	case known != total:
		c.errorf("cannot reshape %s (%d elements) into %s (%d elements)", c.in, total, out, known)
	}
	return out, 0
}

// rnnRule covers recurrent layers with the given number of gates. GRU
// carries a second bias vector per gate (reset_after).
func rnnRule(gates int, doubleBias bool) shapeRule {
	return func(c *layerCtx) (dsl.Shape, int64) {
		units, ok := c.positiveInt(0, "units", true)
		sequences := c.flag(-1, "return_sequences")
		c.name(-1, "activation")

		if c.in != nil && len(c.in) < 2 {
			c.errorf("expects a sequence input (timesteps, features), got %s", c.in)
		}
		steps := dsl.Unknown
		if len(c.in) >= 2 {
			steps = c.in[len(c.in)-2]
		}

		u := dsl.Unknown
		if ok {
			u = dsl.Dim(units)
		}
		out := dsl.Shape{u}
		if sequences {
			out = dsl.Shape{steps, u}
		}

		if !ok {
			return out, -1
		}
		return out, rnnParams(gates, doubleBias, units, c.in.Last())
	}
}

// rnnParams counts the kernel, recurrent kernel and bias of every gate.
func rnnParams(gates int, doubleBias bool, units int, features dsl.Dim) int64 {
	if !features.IsKnown() {
		return -1
	}
	n := int64(units)
	bias := n
	if doubleBias {
		bias = 2 * n
	}
	perGate := addParams(mulParams(n, addParams(int64(features), n)), bias)
	return mulParams(int64(gates), perGate)
}

// cellRule covers single-step recurrent cells, which map the last input
// dimension to (units,).
func cellRule(gates int, doubleBias bool) shapeRule {
	return func(c *layerCtx) (dsl.Shape, int64) {
		units, ok := c.positiveInt(0, "units", true)
		c.name(-1, "activation")
		if !ok {
			return dsl.Shape{dsl.Unknown}, -1
		}
		return dsl.Shape{dsl.Dim(units)}, rnnParams(gates, doubleBias, units, c.in.Last())
	}
}

// dropoutWrapperRule is a recurrent layer with dropout on its inputs and
// recurrent state.
func dropoutWrapperRule(gates int, doubleBias bool) shapeRule {
	rnn := rnnRule(gates, doubleBias)
	return func(c *layerCtx) (dsl.Shape, int64) {
		for _, name := range []string{"dropout", "recurrent_dropout"} {
			if v, ok := c.layer.Kwarg(name); ok {
				c.rate(v, name)
			}
		}
		return rnn(c)
	}
}

// customShapeRule forces the output shape, as in CustomShape(MyLayer, (32, 32)).
func customShapeRule(c *layerCtx) (dsl.Shape, int64) {
	if v, ok := c.layer.Param(0, "layer"); ok {
		if _, isName := v.Name(); !isName {
			c.errorAt(v.Pos, "layer must be a name, found %s", v)
		}
	}
	v, ok := c.layer.Param(1, "custom_dims")
	if !ok {
		c.errorf("requires custom_dims such as (32, 32)")
		return c.in.Clone(), -1
	}
	dims, isInts := v.Ints()
	if !isInts || len(dims) == 0 || (v.Kind != dsl.TupleValue && v.Kind != dsl.ListValue) {
		c.errorAt(v.Pos, "custom_dims must be a tuple of positive integers, found %s", v)
		return c.in.Clone(), -1
	}
	out := make(dsl.Shape, len(dims))
	for i, d := range dims {
		if d <= 0 {
			c.errorAt(v.Pos, "custom_dims must be a tuple of positive integers, found %s", v)
			return c.in.Clone(), -1
		}
		out[i] = dsl.Dim(d)
	}
	return out, -1
}

// timeDistributedRule applies the wrapped layer to every time step.
func timeDistributedRule(c *layerCtx) (dsl.Shape, int64) {
	inner, rule, ok := c.wrapped("TimeDistributed")
	if !ok {
		return c.in.Clone(), -1
	}
	if c.in != nil && len(c.in) < 2 {
		c.errorf("expects a sequence input (timesteps, ...), got %s", c.in)
		return c.in.Clone(), -1
	}

	steps, rest := dsl.Unknown, dsl.Shape(nil)
	if c.in != nil {
		steps, rest = c.in[0], c.in[1:].Clone()
	}
	out, params := rule(&layerCtx{layer: inner, in: rest, rep: c.rep})
	return append(dsl.Shape{steps}, out...), params
}

// bidirectionalRule runs the wrapped recurrent layer in both directions and
// merges the results, concatenating by default.
func bidirectionalRule(c *layerCtx) (dsl.Shape, int64) {
	inner, rule, ok := c.wrapped("Bidirectional")
	if !ok {
		return c.in.Clone(), -1
	}
	out, params := rule(&layerCtx{layer: inner, in: c.in, rep: c.rep})
	if params > 0 {
		params *= 2
	}

	mode := "concat"
	if v, ok := c.layer.Kwarg("merge_mode"); ok {
		if name, isName := v.Name(); isName {
			mode = strings.ToLower(name)
		} else {
			c.errorAt(v.Pos, "merge_mode must be a name, found %s", v.Kind)
		}
	}
	switch mode {
	case "concat":
		if n := len(out); n > 0 && out[n-1].IsKnown() {
			out[n-1] *= 2
		}
	case "sum", "mul", "ave", "avg":
	default:
		c.errorf("unknown merge_mode %q (expected concat, sum, mul or ave)", mode)
	}
	return out, params
}

func dropoutRule(c *layerCtx) (dsl.Shape, int64) {
	v, ok := c.layer.Param(0, "rate")
	if !ok {
		c.errorf("requires a rate between 0 and 1")
		return c.in.Clone(), 0
	}
	c.rate(v, "rate")
	return c.in.Clone(), 0
}

// normRule normalizes over the last axis with perAxis parameters per
// feature (scale, offset and, for batch norm, moving statistics).
func normRule(perAxis int64) shapeRule {
	return func(c *layerCtx) (dsl.Shape, int64) {
		if d := c.in.Last(); c.in != nil && d.IsKnown() {
			return c.in.Clone(), perAxis * int64(d)
		}
		return c.in.Clone(), -1
	}
}

func activationRule(c *layerCtx) (dsl.Shape, int64) {
	if _, ok := c.layer.Param(0, "activation"); !ok {
		c.errorf("requires an activation such as \"relu\"")
	}
	c.name(0, "activation")
	return c.in.Clone(), 0
}

// transformerRule keeps the shape. Parameters are estimated for a standard
// encoder block (attention projections, feed-forward network and two layer
// norms) when ff_dim and the model width are known.
func transformerRule(c *layerCtx) (dsl.Shape, int64) {
	heads, okHeads := c.positiveInt(0, "num_heads", false)
	ff, okFF := c.positiveInt(1, "ff_dim", false)
	if okHeads {
		if d := c.in.Last(); c.in != nil && d.IsKnown() && int(d)%heads != 0 {
			c.warn("model width %d is not divisible by num_heads %d", d, heads)
		}
	}
	d := c.in.Last()
	if !okFF || c.in == nil || !d.IsKnown() {
		return c.in.Clone(), -1
	}
	dm, f := int64(d), int64(ff)
	attention := 4 * (dm*dm + dm)
	feedForward := dm*f + f + f*dm + dm
	return c.in.Clone(), attention + feedForward + 4*dm
}

func passThrough(params int64) shapeRule {
	return func(c *layerCtx) (dsl.Shape, int64) {
		return c.in.Clone(), params
	}
}

// =============================================================================
// Argument Helpers
// =============================================================================

type layerCtx struct {
	layer *dsl.LayerSpec
	in    dsl.Shape
	rep   *reporter
}

func (c *layerCtx) errorf(format string, args ...any) {
	c.errorAt(c.layer.Pos, format, args...)
}

func (c *layerCtx) errorAt(pos dsl.Position, format string, args ...any) {
	c.rep.errorf(pos, "layer-argument", c.layer.Kind+": "+format, args...)
}

func (c *layerCtx) warn(format string, args ...any) {
	c.rep.warn(c.layer.Pos, "layer-argument", c.layer.Kind+": "+format, args...)
}

// positiveInt reads a positive integer given at position i or by name.
func (c *layerCtx) positiveInt(i int, name string, required bool) (int, bool) {
	v, ok := c.layer.Param(i, name)
	if !ok {
		if required {
			c.errorf("requires %s", name)
		}
		return 0, false
	}
	n, ok := v.Int()
	if !ok || n <= 0 {
		c.errorAt(v.Pos, "%s must be a positive integer, found %s", name, v)
		return 0, false
	}
	return n, true
}

// sizes reads an integer or a tuple of n integers, broadcasting a single
// value. An absent (or None) argument yields fallback; a nil fallback
// makes the argument required.
func (c *layerCtx) sizes(i int, name string, n int, fallback []int) ([]int, bool) {
	v, ok := c.layer.Param(i, name)
	if !ok || v.Kind == dsl.NullValue {
		if fallback == nil {
			c.errorf("requires %s", name)
			return nil, false
		}
		return fallback, true
	}
	vals, ok := v.Ints()
	if !ok {
		c.errorAt(v.Pos, "%s must be an integer or a tuple of %d integers, found %s", name, n, v)
		return nil, false
	}
	if len(vals) == 1 && n > 1 {
		vals = repeat(vals[0], n)
	}
	if len(vals) != n {
		c.errorAt(v.Pos, "%s needs %d values, found %d", name, n, len(vals))
		return nil, false
	}
	for _, s := range vals {
		if s <= 0 {
			c.errorAt(v.Pos, "%s values must be positive, found %s", name, v)
			return nil, false
		}
	}
	return vals, true
}

// padding returns "valid" or "same".
func (c *layerCtx) padding(i int, name string) string {
	v, ok := c.layer.Param(i, name)
	if !ok {
		return "valid"
	}
	s, _ := v.Name()
	switch p := strings.ToLower(s); p {
	case "valid", "same":
		return p
	}
	c.errorAt(v.Pos, "%s must be \"valid\" or \"same\", found %s", name, v)
	return "valid"
}

// name checks that an optional argument such as an activation is a name.
func (c *layerCtx) name(i int, name string) {
	v, ok := c.layer.Param(i, name)
	if !ok || v.Kind == dsl.NullValue {
		return
	}
	if _, isName := v.Name(); !isName {
		c.errorAt(v.Pos, "%s must be a name such as \"relu\", found %s", name, v)
	}
}

// flag reads an optional boolean argument.
func (c *layerCtx) flag(i int, name string) bool {
	v, ok := c.layer.Param(i, name)
	if !ok {
		return false
	}
	b, isBool := v.Truth()
	if !isBool {
		c.errorAt(v.Pos, "%s must be true or false, found %s", name, v)
	}
	return b
}

// spatial splits an input of rank+1 dimensions into its spatial dimensions
// and channel count. A missing input yields unknown dimensions.
func (c *layerCtx) spatial(rank int) ([]dsl.Dim, dsl.Dim) {
	spatial := make([]dsl.Dim, rank)
	for i := range spatial {
		spatial[i] = dsl.Unknown
	}
	if c.in == nil {
		return spatial, dsl.Unknown
	}
	if len(c.in) != rank+1 {
		c.errorf("expects input of rank %d (%s), got %s", rank+1, spatialNames(rank), c.in)
		return spatial, dsl.Unknown
	}
	copy(spatial, c.in[:rank])
	return spatial, c.in[rank]
}

func spatialNames(rank int) string {
	switch rank {
	case 1:
		return "steps, channels"
	case 2:
		return "height, width, channels"
	}
	return "depth, height, width, channels"
}

// window computes the output length of a sliding window of size k and
// stride s over a dimension of length in.
func (c *layerCtx) window(in dsl.Dim, k, s int, padding, what string) dsl.Dim {
	if !in.IsKnown() {
		return dsl.Unknown
	}
	n := int(in)
	if padding == "same" {
		return dsl.Dim((n + s - 1) / s)
	}
	if n < k {
		c.errorf("%s %d is larger than input dimension %d", what, k, n)
		return dsl.Unknown
	}
	return dsl.Dim((n-k)/s + 1)
}

// wrapped resolves the layer argument of a wrapper such as
// TimeDistributed(Dense(10)).
func (c *layerCtx) wrapped(wrapper string) (*dsl.LayerSpec, shapeRule, bool) {
	v, ok := c.layer.Param(0, "layer")
	if !ok {
		c.errorf("requires a layer such as %s(Dense(10))", wrapper)
		return nil, nil, false
	}
	inner, ok := dsl.LayerFromCall(v)
	if !ok {
		c.errorAt(v.Pos, "argument must be a layer such as Dense(10), found %s", v.Kind)
		return nil, nil, false
	}
	rule, ok := lookup(inner.Kind)
	if !ok {
		c.rep.errorf(inner.Pos, "unknown-layer", "unknown layer kind %q", inner.Kind)
		return nil, nil, false
	}
	return &inner, rule, true
}

// rate checks that v is a dropout rate.
func (c *layerCtx) rate(v dsl.Value, name string) {
	if r, isNum := v.Float(); !isNum || r < 0 || r > 1 {
		c.errorAt(v.Pos, "%s must be a number between 0 and 1, found %s", name, v)
	}
}

// transposedWindow is the output length of a transposed convolution with
// kernel k and stride s over a dimension of length in.
func transposedWindow(in dsl.Dim, k, s int, padding string) dsl.Dim {
	if !in.IsKnown() {
		return dsl.Unknown
	}
	if padding == "same" {
		return in * dsl.Dim(s)
	}
	return max(0, (in-1)*dsl.Dim(s)+dsl.Dim(k))
}

func repeat(v, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func product(vals []int) int64 {
	factors := make([]int64, len(vals))
	for i, v := range vals {
		factors[i] = int64(v)
	}
	return mulParams(factors...)
}

// mulParams multiplies parameter counts. It returns -1 (unknown) when a
// factor is unknown or the product overflows.
func mulParams(factors ...int64) int64 {
	n := int64(1)
	for _, f := range factors {
		if f < 0 || (f != 0 && n > math.MaxInt64/f) {
			return -1
		}
		n *= f
	}
	return n
}

// addParams sums parameter counts with the same rules as mulParams.
func addParams(terms ...int64) int64 {
	n := int64(0)
	for _, t := range terms {
		if t < 0 || n > math.MaxInt64-t {
			return -1
		}
		n += t
	}
	return n
}
