// Package dsl implements the front end of the network description language:
// a lexer, a recursive-descent parser and the document model it produces.
//
// # Language
//
// A document is a sequence of blocks. A network block declares an input
// shape, a stack of layers, and training metadata:
//
//	network MNIST {
//	    input: (28, 28, 1)
//	    layers:
//	        Conv2D(32, (3, 3), activation="relu")
//	        MaxPooling2D((2, 2))
//	        Flatten()
//	        Dense(128, "relu")
//	        Output(10, "softmax")
//	    loss: "categorical_crossentropy"
//	    optimizer: Adam(learning_rate=0.001)
//	    train { epochs: 10 batch_size: 32 }
//	    execution { device: "gpu" }
//	}
//
// A research block carries descriptive metrics and references:
//
//	research MNIST {
//	    metrics { accuracy: 0.98 loss: 0.05 }
//	    references { paper: "LeCun et al. 1998" }
//	}
//
// Keywords are case-insensitive, "#" starts a comment that runs to the end
// of the line, and strings may use double or single quotes.
//
// # Error Handling
//
// Neither the lexer nor the parser fails. Unrecognized input becomes an
// ERROR token, and [Parse] reports every syntax problem as a [Diagnostic],
// resynchronizing at the '}' of the current nesting level or at the next
// top-level block so that one malformed block does not hide problems in the
// rest of the document.
//
// # Usage
//
//	doc, diags := dsl.ParseString(src)
//	for _, d := range diags {
//	    fmt.Println(d)
//	}
//	for _, net := range doc.Networks() {
//	    fmt.Println(net.Name, len(net.Layers))
//	}
package dsl
