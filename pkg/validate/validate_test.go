package validate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/neuralviz/pkg/dsl"
)

const mnistSource = `
network MNIST {
    input: (28, 28, 1)
    layers:
        Conv2D(32, (3, 3), activation="relu")
        MaxPooling2D((2, 2))
        Flatten()
        Dense(128, "relu")
        Dropout(0.5)
        Output(10, "softmax")
    loss: "categorical_crossentropy"
    optimizer: Adam(learning_rate=0.001)
    train {
        epochs: 10
        batch_size: 32
        validation_split: 0.2
    }
    execution {
        device: "gpu"
    }
}
`

func parseNetwork(t *testing.T, src string) *dsl.NetworkSpec {
	t.Helper()
	doc, diags := dsl.ParseString(src)
	require.False(t, dsl.HasErrors(diags), "syntax errors: %v", diags)
	require.NotEmpty(t, doc.Networks())
	return doc.Networks()[0]
}

func byRule(diags []dsl.Diagnostic, rule string) []dsl.Diagnostic {
	var out []dsl.Diagnostic
	for _, d := range diags {
		if d.Rule == rule {
			out = append(out, d)
		}
	}
	return out
}

func shape(dims ...int) dsl.Shape {
	s := make(dsl.Shape, len(dims))
	for i, d := range dims {
		s[i] = dsl.Dim(d)
	}
	return s
}

func TestNetworkMNIST(t *testing.T) {
	res, diags := Network(parseNetwork(t, mnistSource), DefaultOptions())
	require.Empty(t, diags)

	want := []struct {
		out    dsl.Shape
		params int64
	}{
		{shape(26, 26, 32), 320},
		{shape(13, 13, 32), 0},
		{shape(5408), 0},
		{shape(128), 692352},
		{shape(128), 0},
		{shape(10), 1290},
	}
	require.Len(t, res.Network.Layers, len(want))
	for i, w := range want {
		l := res.Network.Layers[i]
		assert.Equal(t, w.out, l.OutputShape, "layer %d (%s) shape", i, l.Kind)
		assert.Equal(t, w.params, l.Params, "layer %d (%s) params", i, l.Kind)
	}

	assert.Equal(t, int64(693962), res.TotalParams)
	assert.True(t, res.ParamsExact)
	assert.Equal(t, shape(10), res.OutputShape())
	require.NotNil(t, res.Training)
	assert.Equal(t, TrainingConfig{Epochs: 10, BatchSize: 32, ValidationSplit: 0.2}, *res.Training)
}

func TestNetworkConvPoolShapes(t *testing.T) {
	net := parseNetwork(t, `network C {
    input: (28, 28, 1)
    layers:
        Conv2D(32, (3, 3))
        MaxPooling2D((2, 2))
}`)
	res, _ := Network(net, DefaultOptions())
	assert.Equal(t, shape(26, 26, 32), res.Network.Layers[0].OutputShape)
	assert.Equal(t, shape(13, 13, 32), res.Network.Layers[1].OutputShape)
}

func TestNetworkSingleLineExample(t *testing.T) {
	net := parseNetwork(t, `NETWORK T { input: (4,4,1) layers: Dense(10,"relu") Output(2,"softmax") loss:"mse" optimizer:"sgd" }`)
	res, diags := Network(net, DefaultOptions())
	assert.False(t, dsl.HasErrors(diags))
	assert.Equal(t, shape(10), res.Network.Layers[0].OutputShape)
	assert.Equal(t, shape(2), res.Network.Layers[1].OutputShape)
	assert.Equal(t, int64(170+22), res.TotalParams)
}

func TestNetworkUnknownKind(t *testing.T) {
	src := `network A { input: (4,) layers: Dense(8) Frobnicate(1) Output(2) loss: "mse" optimizer: "sgd" }`

	t.Run("error", func(t *testing.T) {
		net := parseNetwork(t, src)
		res, diags := Network(net, DefaultOptions())

		errs, warnings := dsl.Count(diags)
		assert.Equal(t, 1, errs)
		assert.Equal(t, 0, warnings)
		require.Len(t, diags, 1)
		assert.Equal(t, "unknown-layer", diags[0].Rule)
		assert.Equal(t, dsl.PhaseSemantic, diags[0].Phase)
		assert.Equal(t, net.Layers[1].Pos, diags[0].Pos)
		assert.Contains(t, diags[0].Message, "Frobnicate")

		// The shape passes through unchanged and later layers are still inferred.
		assert.Equal(t, shape(8), res.Network.Layers[1].OutputShape)
		assert.Equal(t, shape(2), res.Network.Layers[2].OutputShape)
		assert.False(t, res.ParamsExact)
	})

	t.Run("warn", func(t *testing.T) {
		res, diags := Network(parseNetwork(t, src), Options{UnknownKinds: UnknownKindWarn})
		errs, warnings := dsl.Count(diags)
		assert.Equal(t, 0, errs)
		assert.Equal(t, 1, warnings)
		assert.Equal(t, int64(-1), res.Network.Layers[1].Params)
	})
}

func TestNetworkLayerRules(t *testing.T) {
	tests := []struct {
		input   string
		layer   string
		want    dsl.Shape
		params  int64
		wantErr string
	}{
		{"(28, 28, 1)", "Dense(64)", shape(64), 50240, ""},
		{"(3,)", "Dense(units=5)", shape(5), 20, ""},
		{"(3,)", "Dense(0)", shape(-1), -1, "units must be a positive integer"},
		{"(3,)", "Dense()", shape(-1), -1, "requires units"},
		{"(32, 32, 3)", `Conv2D(16, 3, padding="same")`, shape(32, 32, 16), 448, ""},
		{"(28, 28, 1)", "Conv2D(8, (3, 3), strides=2)", shape(13, 13, 8), 80, ""},
		{"(100, 8)", "Conv1D(4, 5)", shape(96, 4), 164, ""},
		{"(3, 3, 1)", "Conv2D(4, (5, 5))", shape(-1, -1, 4), 104, "larger than input dimension"},
		{"(10,)", "Conv2D(4, (3, 3))", shape(-1, -1, 4), -1, "expects input of rank 3"},
		{"(8, 8, 1)", "Conv2D(4, (3, 3, 3))", shape(-1, -1, 4), -1, "needs 2 values"},
		{"(8, 8, 1)", `Conv2D(4, 3, padding="full")`, shape(6, 6, 4), 40, `must be "valid" or "same"`},
		{"(28, 28, 3)", "MaxPooling2D()", shape(14, 14, 3), 0, ""},
		{"(7, 7, 1)", "MaxPooling2D((3, 3), 2)", shape(3, 3, 1), 0, ""},
		{"(10, 2)", "AveragePooling1D(4)", shape(2, 2), 0, ""},
		{"(7, 7, 64)", "GlobalAveragePooling2D()", shape(64), 0, ""},
		{"(4, 4, 2)", "UpSampling2D()", shape(8, 8, 2), 0, ""},
		{"(7, 7, 64)", "Flatten()", shape(3136), 0, ""},
		{"(None, 4)", "Flatten()", shape(-1), 0, ""},
		{"(100,)", "Embedding(1000, 64)", shape(-1, 64), 64000, ""},
		{"(50, 1)", "Embedding(1000, 64)", shape(50, 64), 64000, ""},
		{"(100,)", "Embedding(1000, 64, input_length=20)", shape(20, 64), 64000, ""},
		{"(10, 8)", "LSTM(32)", shape(32), 5248, ""},
		{"(10, 8)", "LSTM(32, return_sequences=true)", shape(10, 32), 5248, ""},
		{"(5, 4)", "GRU(16)", shape(16), 1056, ""},
		{"(5, 4)", "SimpleRNN(8)", shape(8), 104, ""},
		{"(4,)", "LSTM(8)", shape(8), 416, "expects a sequence input"},
		{"(3136,)", "Reshape((7, 7, 64))", shape(7, 7, 64), 0, ""},
		{"(8,)", "Reshape((-1, 2))", shape(4, 2), 0, ""},
		{"(8,)", "Reshape((3, 3))", shape(3, 3), 0, "cannot reshape"},
		{"(5, 8)", "TimeDistributed(Dense(10))", shape(5, 10), 90, ""},
		{"(10, 8)", "Bidirectional(LSTM(16))", shape(32), 3200, ""},
		{"(10, 8)", `Bidirectional(LSTM(16), merge_mode="sum")`, shape(16), 3200, ""},
		{"(5, 8)", "TimeDistributed(8)", shape(5, 8), -1, "must be a layer"},
		{"(4,)", "Dropout(0.3)", shape(4), 0, ""},
		{"(4,)", "Dropout(1.5)", shape(4), 0, "rate must be a number between 0 and 1"},
		{"(8, 8, 16)", "BatchNormalization()", shape(8, 8, 16), 64, ""},
		{"(10, 32)", "LayerNormalization()", shape(10, 32), 64, ""},
		{"(10, 32)", "TransformerEncoder(num_heads=4, ff_dim=64)", shape(10, 32), 8544, ""},
		{"(10, 32)", `Activation("relu")`, shape(10, 32), 0, ""},
		{"(10, 32)", "MultiHeadAttention(num_heads=2)", shape(10, 32), -1, ""},
		{"(8, 8, 4)", "Conv2DTranspose(16, 3)", shape(10, 10, 16), 592, ""},
		{"(7, 7, 16)", `Conv2DTranspose(8, (2, 2), strides=2, padding="same")`, shape(14, 14, 8), 520, ""},
		{"(10, 2)", "Conv1DTranspose(4, 3, strides=2)", shape(21, 4), 28, ""},
		{"(4, 4, 4, 1)", "Conv3DTranspose(2, 2)", shape(5, 5, 5, 2), 18, ""},
		{"(28, 28, 3)", "SeparableConv2D(32, (3, 3))", shape(26, 26, 32), 155, ""},
		{"(10, 10, 4)", `SeparableConv2D(8, 3, depth_multiplier=2, padding="same")`, shape(10, 10, 8), 144, ""},
		{"(28, 28, 8)", "DepthwiseConv2D((3, 3))", shape(26, 26, 8), 80, ""},
		{"(5, 5, 3)", `DepthwiseConv2D(3, depth_multiplier=2, padding="same")`, shape(5, 5, 6), 60, ""},
		{"(32, 32, 16)", "AdaptiveAveragePooling2D((4, 4))", shape(4, 4, 16), 0, ""},
		{"(100, 3)", "AdaptiveMaxPooling1D(output_size=8)", shape(8, 3), 0, ""},
		{"(8, 8, 8, 1)", "AdaptiveMaxPooling3D(2)", shape(2, 2, 2, 1), 0, ""},
		{"(8, 8, 1)", "AdaptiveAveragePooling2D()", shape(-1, -1, 1), 0, "requires output_size"},
		{"(10, 16, 16, 1)", "ConvLSTM2D(filters=8, kernel_size=(3, 3))", shape(14, 14, 8), 2624, ""},
		{"(10, 16, 16, 1)", `ConvLSTM2D(8, 3, return_sequences=true, padding="same")`, shape(10, 16, 16, 8), 2624, ""},
		{"(16, 16, 1)", "ConvLSTM2D(8, 3)", shape(-1, -1, 8), -1, "expects input of rank 4"},
		{"(5, 6, 6, 2)", "ConvGRU2D(4, 3)", shape(4, 4, 4), 660, ""},
		{"(32,)", "LSTMCell(units=64)", shape(64), 24832, ""},
		{"(16,)", "GRUCell(units=128)", shape(128), 56064, ""},
		{"(8,)", "RNNCell(units=32)", shape(32), 1312, ""},
		{"(10, 8)", "SimpleRNNDropoutWrapper(units=16, dropout=0.3)", shape(16), 400, ""},
		{"(10, 8)", "GRUDropoutWrapper(units=32, dropout=0.4)", shape(32), 4032, ""},
		{"(10, 8)", "LSTMDropoutWrapper(units=64, dropout=0.5)", shape(64), 18688, ""},
		{"(10, 8)", "LSTMDropoutWrapper(units=8, dropout=1.5)", shape(8), 544, "dropout must be a number between 0 and 1"},
		{"(5, 4)", "CuDNNGRU(16)", shape(16), 1056, ""},
		{"(10, 32)", "Concatenate()", shape(10, 32), 0, ""},
		{"(10, 32)", "Add()", shape(10, 32), 0, ""},
		{"(8, 8, 16)", "SqueezeExcitation()", shape(8, 8, 16), -1, ""},
		{"(8, 16)", "CapsuleLayer()", shape(8, 16), -1, ""},
		{"(20, 16)", "GraphConv()", shape(20, 16), -1, ""},
		{"(20, 16)", "GraphAttention()", shape(20, 16), -1, ""},
		{"(8, 8, 16)", "Inception()", shape(8, 8, 16), -1, ""},
		{"(4,)", "QuantumLayer()", shape(4), -1, ""},
		{"(4,)", "DynamicLayer()", shape(4), -1, ""},
		{"(4,)", `Lambda("x * 2")`, shape(4), -1, ""},
		{"(10, 32)", "Transformer()", shape(10, 32), -1, ""},
		{"(10,)", "CustomShape(MyLayer, (32, 32))", shape(32, 32), -1, ""},
		{"(10,)", "CustomShape(MyLayer)", shape(10), -1, "requires custom_dims"},
		{"(2147483647, 2147483647, 2147483647)", "Flatten()", shape(-1), 0, "overflows the element count"},
		{"(2147483647, 2147483647, 2147483647)", "Dense(10)", shape(10), -1, ""},
		{"(8,)", "Reshape((2147483647, 2147483647, 4))", shape(2147483647, 2147483647, 4), 0, "too many elements"},
	}
	for _, tt := range tests {
		t.Run(tt.layer+" on "+tt.input, func(t *testing.T) {
			net := parseNetwork(t, fmt.Sprintf("network N { input: %s layers: %s }", tt.input, tt.layer))
			res, diags := Network(net, DefaultOptions())

			l := res.Network.Layers[0]
			assert.Equal(t, tt.want, l.OutputShape)
			assert.Equal(t, tt.params, l.Params)

			argErrs := byRule(diags, "layer-argument")
			if tt.wantErr == "" {
				assert.Empty(t, argErrs)
				return
			}
			require.NotEmpty(t, argErrs)
			assert.Contains(t, argErrs[0].Message, tt.wantErr)
			assert.True(t, argErrs[0].IsError())
		})
	}
}

func TestNetworkWithoutInput(t *testing.T) {
	net := parseNetwork(t, `network N { layers: Conv2D(4, 3) Dense(10) Output(2) loss: "mse" optimizer: "sgd" }`)
	res, diags := Network(net, DefaultOptions())

	assert.False(t, dsl.HasErrors(diags))
	assert.Len(t, byRule(diags, "missing-input"), 1)
	assert.Equal(t, shape(-1, -1, 4), res.Network.Layers[0].OutputShape)
	assert.Equal(t, shape(2), res.Network.Layers[2].OutputShape)
	assert.Nil(t, res.Network.Layers[0].InputShape)
	assert.False(t, res.ParamsExact)
}

func TestNetworkOutputPolicy(t *testing.T) {
	tests := []struct {
		name   string
		layers string
		rule   string
		errors int
	}{
		{"no layers", "", "no-layers", 1},
		{"output not last", "Output(2) Dense(4)", "output-not-last", 1},
		{"two outputs", "Dense(4) Output(2) Output(2)", "multiple-outputs", 2},
		{"no output layer", "Dense(4)", "missing-output", 0},
		{"unknown final dim", "Flatten()", "bad-output-shape", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := fmt.Sprintf(`network N { input: (None, 3) layers: %s loss: "mse" optimizer: "sgd" }`, tt.layers)
			_, diags := Network(parseNetwork(t, src), DefaultOptions())
			assert.Len(t, byRule(diags, tt.rule), 1, "diagnostics: %v", diags)
			errs, _ := dsl.Count(diags)
			assert.Equal(t, tt.errors, errs, "diagnostics: %v", diags)
		})
	}
}

func TestNetworkFieldWarnings(t *testing.T) {
	net := parseNetwork(t, `network N {
    input: (4,)
    dataset: "mnist"
    layers: Output(2)
    execution { device: "quantum" threads: 4 }
}`)
	_, diags := Network(net, DefaultOptions())

	assert.False(t, dsl.HasErrors(diags))
	for _, rule := range []string{"missing-loss", "missing-optimizer", "unknown-field", "bad-device", "unknown-execution-option"} {
		assert.Len(t, byRule(diags, rule), 1, rule)
	}
}

func TestNetworkTrainingWarnings(t *testing.T) {
	tests := []struct {
		entry string
		rule  string
	}{
		{`epochs: "ten"`, "bad-training-option"},
		{`epochs: 10.5`, "bad-training-option"},
		{`epochs: 0`, "bad-training-option"},
		{`batch_size: -1`, "bad-training-option"},
		{`learning_rate: "fast"`, "bad-training-option"},
		{`validation_split: 1.5`, "bad-training-option"},
		{`search_method: 3`, "bad-training-option"},
		{`warmup: 5`, "unknown-training-option"},
	}
	for _, tt := range tests {
		t.Run(tt.entry, func(t *testing.T) {
			src := `network N { input: (4,) layers: Output(2) loss: "mse" optimizer: "sgd" train { ` + tt.entry + ` } }`
			res, diags := Network(parseNetwork(t, src), DefaultOptions())
			require.Len(t, diags, 1, "diagnostics: %v", diags)
			assert.Equal(t, tt.rule, diags[0].Rule)
			assert.Equal(t, dsl.SeverityWarning, diags[0].Severity)
			assert.NotNil(t, res.Training)
		})
	}
}

func TestNetworkTrainingDecodes(t *testing.T) {
	net := parseNetwork(t, `network N { input: (4,) layers: Output(2) loss: "mse" optimizer: "sgd"
    train { epochs: 3 learning_rate: 1e-3 search_method: grid } }`)
	res, diags := Network(net, DefaultOptions())
	require.Empty(t, diags)
	assert.Equal(t, &TrainingConfig{Epochs: 3, LearningRate: 0.001, SearchMethod: "grid"}, res.Training)
}

func TestNetworkDoesNotModifyInput(t *testing.T) {
	net := parseNetwork(t, mnistSource)
	before := net.Clone()

	res, _ := Network(net, DefaultOptions())
	assert.Equal(t, before, net)
	for _, l := range net.Layers {
		assert.Nil(t, l.OutputShape)
	}

	// Mutating the result must not leak into the input either.
	res.Network.Layers[0].Args[0] = dsl.Value{Kind: dsl.NumberValue, Num: 1, IsInt: true}
	assert.Equal(t, before, net)
}

func TestNetworkIsIdempotent(t *testing.T) {
	net := parseNetwork(t, mnistSource)
	first, d1 := Network(net, DefaultOptions())
	second, d2 := Network(first.Network, DefaultOptions())
	assert.Equal(t, d1, d2)
	assert.Equal(t, first.Network, second.Network)
	assert.Equal(t, first.TotalParams, second.TotalParams)
}

func TestNetworkInputShapeChaining(t *testing.T) {
	res, _ := Network(parseNetwork(t, mnistSource), DefaultOptions())
	layers := res.Network.Layers
	assert.Equal(t, res.Network.InputShape, layers[0].InputShape)
	for i := 1; i < len(layers); i++ {
		assert.Equal(t, layers[i-1].OutputShape, layers[i].InputShape, "layer %d", i)
	}
}

func TestNetworkDiagnosticsSorted(t *testing.T) {
	net := parseNetwork(t, `network N {
    input: (4,)
    layers:
        Frobnicate()
        Dropout(7)
        Output(2)
    train { epochs: 0 }
}`)
	_, diags := Network(net, DefaultOptions())
	require.Len(t, diags, 5)
	for i := 1; i < len(diags); i++ {
		prev, cur := diags[i-1].Pos, diags[i].Pos
		assert.True(t, prev.Line < cur.Line || (prev.Line == cur.Line && prev.Column <= cur.Column),
			"%v before %v", prev, cur)
	}
}

func TestDocumentDuplicateNetworks(t *testing.T) {
	doc, diags := dsl.ParseString(`network A { layers: Output(1) }
network B { layers: Output(1) }
network A { layers: Output(2) }`)
	require.Empty(t, diags)

	got := Document(doc)
	require.Len(t, got, 1)
	assert.Equal(t, "duplicate-network", got[0].Rule)
	assert.Equal(t, 3, got[0].Pos.Line)
	assert.Contains(t, got[0].Message, "line 1")
	assert.Len(t, doc.Networks(), 3)
	assert.Nil(t, Document(nil))
}

func TestDocumentUnmatchedResearch(t *testing.T) {
	doc, _ := dsl.ParseString(`network A { layers: Output(1) }
research A { metrics { accuracy: 0.9 } }
research B { metrics { accuracy: 0.8 } }
research { metrics { accuracy: 0.7 } }`)
	got := Document(doc)
	require.Len(t, got, 1)
	assert.Equal(t, "unmatched-research", got[0].Rule)
	assert.Equal(t, 3, got[0].Pos.Line)
}

func TestAll(t *testing.T) {
	doc, _ := dsl.ParseString(mnistSource + `
network Broken { input: (4,) layers: Frobnicate() Output(2) loss: "mse" optimizer: "sgd" }`)
	results, diags := All(doc, DefaultOptions())
	require.Len(t, results, 2)
	assert.Equal(t, "MNIST", results[0].Network.Name)
	assert.False(t, results[0].HasErrors())
	assert.True(t, results[1].HasErrors())
	assert.Len(t, diags, 1)
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]UnknownKindPolicy{"": UnknownKindError, "WARN": UnknownKindWarn, "error": UnknownKindError} {
		got, err := ParsePolicy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParsePolicy("ignore")
	assert.Error(t, err)
}

func TestKnownKind(t *testing.T) {
	kinds := []string{
		"Dense", "conv2d", "LSTM", "TransformerEncoder", "output",
		"Conv1DTranspose", "Conv2DTranspose", "Conv3DTranspose", "SeparableConv2D", "DepthwiseConv2D",
		"AdaptiveMaxPooling1D", "AdaptiveMaxPooling2D", "AdaptiveMaxPooling3D",
		"AdaptiveAveragePooling1D", "AdaptiveAveragePooling2D", "AdaptiveAveragePooling3D",
		"ConvLSTM2D", "ConvGRU2D", "Concatenate", "Add", "Subtract", "Multiply", "Average", "Maximum", "Dot",
		"LSTMCell", "GRUCell", "RNNCell", "SimpleRNNCell",
		"SimpleRNNDropoutWrapper", "GRUDropoutWrapper", "LSTMDropoutWrapper",
		"SqueezeExcitation", "CapsuleLayer", "GraphConv", "GraphAttention", "Inception",
		"QuantumLayer", "DynamicLayer", "Lambda", "CustomShape", "CuDNNGRU",
	}
	for _, kind := range kinds {
		assert.True(t, KnownKind(kind), kind)
	}
	assert.False(t, KnownKind("Frobnicate"))
	assert.False(t, KnownKind(""))
}
