package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/matzehuels/neuralviz/pkg/dsl"
	"github.com/matzehuels/neuralviz/pkg/pipeline"
	"github.com/matzehuels/neuralviz/pkg/validate"
)

// defaultWrap is the word wrap width when the terminal size is unknown.
const defaultWrap = 100

// describeCommand creates the describe command, a markdown summary of the
// networks in a file.
func (c *CLI) describeCommand() *cobra.Command {
	var (
		network string
		raw     bool
	)

	cmd := &cobra.Command{
		Use:   "describe [file]",
		Short: "Summarize networks as formatted markdown",
		Long: `Summarize networks as formatted markdown.

Lists every layer with its inferred output shape and parameter estimate,
followed by the training setup, research notes and diagnostics. Output is
styled for the terminal; when stdout is not a terminal, or with --raw, the
markdown is printed as is.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDescribe(cmd.Context(), args[0], network, raw)
		},
	}

	cmd.Flags().StringVar(&network, "network", "", "describe only this network")
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without styling")

	return cmd
}

func (c *CLI) runDescribe(ctx context.Context, input, network string, raw bool) error {
	opts, err := c.sourceOptions(input)
	if err != nil {
		return err
	}
	opts.Network = network

	a, err := c.analyze(ctx, opts)
	if err != nil {
		return err
	}
	if err := a.RequireNetworks(network); err != nil {
		printDiagnostics(opts.Filename, a.Diagnostics)
		return err
	}

	md := describeMarkdown(opts.Filename, a)
	if raw || !isTerminal(os.Stdout) {
		_, err := fmt.Fprint(stdout, md)
		return err
	}

	out, err := renderMarkdown(md, terminalWidth())
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = fmt.Fprint(stdout, out)
	return err
}

// renderMarkdown styles md for the terminal.
func renderMarkdown(md string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}

func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return defaultWrap
	}
	return w
}

// =============================================================================
// Markdown
// =============================================================================

// describeMarkdown builds the summary of every analysed network.
func describeMarkdown(file string, a *pipeline.Analysis) string {
	var b strings.Builder
	research := researchByName(a.Document)

	for i, res := range a.Networks {
		if i > 0 {
			b.WriteString("\n---\n\n")
		}
		writeNetwork(&b, res)
		if r, ok := research[res.Network.Name]; ok {
			writeResearch(&b, r)
		}
	}
	if r, ok := research[""]; ok {
		b.WriteString("\n")
		writeResearch(&b, r)
	}

	if len(a.Diagnostics) > 0 {
		b.WriteString("\n## Diagnostics\n\n")
		for _, d := range a.Diagnostics {
			pos := d.Pos.String()
			if file != "" {
				pos = file + ":" + pos
			}
			fmt.Fprintf(&b, "- `%s` **%s**: %s\n", pos, d.Severity, d.Message)
		}
	}
	return b.String()
}

func writeNetwork(b *strings.Builder, res *validate.Result) {
	net := res.Network
	fmt.Fprintf(b, "# %s\n\n", net.Name)
	fmt.Fprintf(b, "Input shape `%s`, output shape `%s`, %s.\n\n",
		shapeOrUnknown(net.InputShape), shapeOrUnknown(res.OutputShape()), paramsText(res.TotalParams, res.ParamsExact))

	b.WriteString("| # | Layer | Output shape | Params |\n")
	b.WriteString("|---|-------|--------------|-------:|\n")
	for i, l := range net.Layers {
		fmt.Fprintf(b, "| %d | `%s` | `%s` | %s |\n",
			i+1, escapeCell(l.Signature()), shapeOrUnknown(l.OutputShape), paramsCell(l.Params))
	}

	b.WriteString("\n## Training\n\n")
	if net.Loss != "" {
		fmt.Fprintf(b, "- **Loss**: %s\n", net.Loss)
	}
	if net.Optimizer != "" {
		fmt.Fprintf(b, "- **Optimizer**: %s%s\n", net.Optimizer, optimizerParams(net.OptimizerParams))
	}
	if tc := res.Training; tc != nil {
		if tc.Epochs > 0 {
			fmt.Fprintf(b, "- **Epochs**: %d\n", tc.Epochs)
		}
		if tc.BatchSize > 0 {
			fmt.Fprintf(b, "- **Batch size**: %d\n", tc.BatchSize)
		}
		if tc.LearningRate > 0 {
			fmt.Fprintf(b, "- **Learning rate**: %s\n", strconv.FormatFloat(tc.LearningRate, 'g', -1, 64))
		}
		if tc.ValidationSplit > 0 {
			fmt.Fprintf(b, "- **Validation split**: %s\n", strconv.FormatFloat(tc.ValidationSplit, 'g', -1, 64))
		}
		if tc.SearchMethod != "" {
			fmt.Fprintf(b, "- **Search method**: %s\n", tc.SearchMethod)
		}
	}
	if len(net.ExecutionConfig) > 0 {
		keys := make([]string, 0, len(net.ExecutionConfig))
		for k := range net.ExecutionConfig {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(b, "- **Execution %s**: %s\n", k, net.ExecutionConfig[k])
		}
	}
}

func writeResearch(b *strings.Builder, r *dsl.ResearchSpec) {
	b.WriteString("\n## Research\n\n")
	if len(r.Metrics) > 0 {
		names := make([]string, 0, len(r.Metrics))
		for k := range r.Metrics {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			fmt.Fprintf(b, "- **%s**: %s\n", k, strconv.FormatFloat(r.Metrics[k], 'g', -1, 64))
		}
	}
	for _, ref := range r.References {
		fmt.Fprintf(b, "- *%s*: %s\n", ref.Key, ref.Value)
	}
}

// researchByName indexes research blocks by the network they describe.
// Unnamed blocks are stored under "". The first block of a name wins.
func researchByName(doc *dsl.Document) map[string]*dsl.ResearchSpec {
	out := make(map[string]*dsl.ResearchSpec)
	if doc == nil {
		return out
	}
	for _, r := range doc.Research() {
		if _, ok := out[r.Name]; !ok {
			out[r.Name] = r
		}
	}
	return out
}

func optimizerParams(params []dsl.NamedArg) string {
	if len(params) == 0 {
		return ""
	}
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.Name + "=" + p.Value.String()
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func shapeOrUnknown(s dsl.Shape) string {
	if s == nil {
		return "?"
	}
	return s.String()
}

func paramsText(total int64, exact bool) string {
	if exact {
		return formatCount(total) + " parameters"
	}
	return "at least " + formatCount(total) + " parameters"
}

// paramsCell formats a per-layer count; negative counts are unknown.
func paramsCell(n int64) string {
	if n < 0 {
		return "?"
	}
	return formatCount(n)
}

// formatCount groups digits by thousands: 1234567 -> 1,234,567.
func formatCount(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
