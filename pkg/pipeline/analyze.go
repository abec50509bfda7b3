package pipeline

import (
	"context"
	"time"

	"github.com/matzehuels/neuralviz/pkg/dsl"
	"github.com/matzehuels/neuralviz/pkg/errors"
	"github.com/matzehuels/neuralviz/pkg/observability"
	"github.com/matzehuels/neuralviz/pkg/validate"
)

// Analysis is the outcome of parsing and validating a source.
type Analysis struct {
	Document *dsl.Document

	// Networks holds the validated networks selected by Options.Network.
	Networks []*validate.Result

	// Diagnostics merges syntax, document and per-network diagnostics,
	// sorted by position.
	Diagnostics []dsl.Diagnostic

	// SyntaxCount is the number of diagnostics reported by the parser.
	SyntaxCount int
}

// Analyze parses src and validates the networks selected by opts.Network.
// It never fails: every problem in the source becomes a diagnostic.
// Document-level checks (duplicate names, unmatched research blocks) run
// on the whole document even when a single network is selected.
func Analyze(ctx context.Context, src string, opts Options) *Analysis {
	hooks := observability.Pipeline()

	start := time.Now()
	doc, syntax := dsl.Parse(dsl.Tokenize(src))
	hooks.OnParseComplete(ctx, opts.Filename, len(doc.Blocks), len(syntax), time.Since(start))
	a := &Analysis{Document: doc, SyntaxCount: len(syntax)}

	vopts := opts.ValidateOptions()
	diags := append([]dsl.Diagnostic(nil), syntax...)
	diags = append(diags, validate.Document(doc)...)
	for _, net := range selectNetworks(doc, opts.Network) {
		start := time.Now()
		res, d := validate.Network(net, vopts)
		errs, warns := dsl.Count(d)
		hooks.OnValidateComplete(ctx, net.Name, errs, warns, time.Since(start))
		a.Networks = append(a.Networks, res)
		diags = append(diags, d...)
	}
	dsl.SortByPosition(diags)
	a.Diagnostics = diags
	return a
}

// selectNetworks returns every network, or those named name. Names match
// exactly; when a name is declared twice both networks are returned.
func selectNetworks(doc *dsl.Document, name string) []*dsl.NetworkSpec {
	if doc == nil {
		return nil
	}
	all := doc.Networks()
	if name == "" {
		return all
	}
	var out []*dsl.NetworkSpec
	for _, n := range all {
		if n.Name == name {
			out = append(out, n)
		}
	}
	return out
}

// RequireNetworks returns a NO_NETWORK error when the analysis selected
// nothing to lay out. name is the network that was asked for, if any.
func (a *Analysis) RequireNetworks(name string) error {
	if len(a.Networks) > 0 {
		return nil
	}
	if name != "" {
		return errors.New(errors.ErrCodeNoNetwork, "network %q not found", name)
	}
	return errors.New(errors.ErrCodeNoNetwork, "source declares no network")
}
