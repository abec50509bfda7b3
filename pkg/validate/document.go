package validate

import "github.com/matzehuels/neuralviz/pkg/dsl"

// Document runs the checks that span blocks. Networks sharing a name are
// all kept; each repeat gets a warning naming the line of the first one. A
// named research block that matches no network is warned about as well.
//
// Per-network checks are done by [Network].
func Document(doc *dsl.Document) []dsl.Diagnostic {
	if doc == nil {
		return nil
	}
	rep := &reporter{}

	first := make(map[string]dsl.Position)
	for _, net := range doc.Networks() {
		if prev, ok := first[net.Name]; ok {
			rep.warn(net.Pos, "duplicate-network",
				"network %q is already declared on line %d; both are kept", net.Name, prev.Line)
			continue
		}
		first[net.Name] = net.Pos
	}

	for _, r := range doc.Research() {
		if r.Name == "" {
			continue
		}
		if _, ok := first[r.Name]; !ok {
			rep.warn(r.Pos, "unmatched-research", "research block %q does not name a network in this document", r.Name)
		}
	}
	return rep.sorted()
}

// All validates every network of doc and the document as a whole. Results
// are in declaration order; diagnostics from all networks are merged and
// sorted by position.
func All(doc *dsl.Document, opts Options) ([]*Result, []dsl.Diagnostic) {
	diags := Document(doc)
	if doc == nil {
		return nil, diags
	}
	var results []*Result
	for _, net := range doc.Networks() {
		res, d := Network(net, opts)
		results = append(results, res)
		diags = append(diags, d...)
	}
	dsl.SortByPosition(diags)
	return results, diags
}
