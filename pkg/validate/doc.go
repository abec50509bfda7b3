// Package validate checks parsed networks and infers the tensor shape that
// flows out of every layer.
//
// # Shape Inference
//
// [Network] folds the network's input shape through the layer stack in
// declaration order. Each layer kind is looked up in a registry of shape
// rules; the rule reads the layer's positional and named arguments, reports
// argument problems as diagnostics, and returns the layer's output shape
// and an estimate of its trainable parameters:
//
//	Conv2D(32, (3, 3))      (28, 28, 1)  -> (26, 26, 32)
//	MaxPooling2D((2, 2))    (26, 26, 32) -> (13, 13, 32)
//	Dense(10)               (13, 13, 32) -> (10,)
//
// Convolutions assume "valid" padding unless padding="same" is given.
// Dense and Output layers flatten their input implicitly. Kinds whose effect
// depends on configuration the language cannot express (Inception,
// GraphConv, Lambda and similar) keep their input shape and report an
// unknown parameter count. Use [KnownKind] to ask whether a kind has a rule.
//
// # Diagnostics
//
// Validation never stops at the first problem. Unknown layer kinds are
// errors by default (see [UnknownKindPolicy]) and leave the shape unchanged,
// so later layers are still checked. Missing loss or optimizer fields are
// only warnings because a diagram can still be drawn without them.
//
// The input network is never modified: [Network] works on a deep copy and
// returns it in [Result.Network] with every layer's InputShape, OutputShape
// and Params filled in.
package validate
