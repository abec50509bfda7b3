package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/neuralviz/pkg/graph"
	"github.com/matzehuels/neuralviz/pkg/pipeline"
)

// diagramExt is the suffix of files written by the layout command.
const diagramExt = "diagram.json"

type layoutFlags struct {
	output       string
	network      string
	direction    string
	fontSize     float64
	rankGap      float64
	unknownKinds string
	noCache      bool
	refresh      bool
}

// register adds the flags shared by layout and render.
func (f *layoutFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.network, "network", "", "only this network (default: all)")
	cmd.Flags().StringVar(&f.direction, "direction", "", "rank direction: LR (default), TB")
	cmd.Flags().Float64Var(&f.fontSize, "font-size", 0, "label font size used to size nodes")
	cmd.Flags().Float64Var(&f.rankGap, "rank-gap", 0, "space between ranks")
	cmd.Flags().StringVar(&f.unknownKinds, "unknown-kinds", "", "unknown layer kinds: error (default), warn")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "recompute and overwrite cached results")
}

// apply copies the flags that were set over the configured options.
func (f *layoutFlags) apply(opts *pipeline.Options) {
	opts.Network = f.network
	opts.Refresh = f.refresh
	if f.direction != "" {
		opts.Direction = strings.ToUpper(f.direction)
	}
	if f.fontSize > 0 {
		opts.FontSize = f.fontSize
	}
	if f.rankGap > 0 {
		opts.RankGap = f.rankGap
	}
	if f.unknownKinds != "" {
		opts.UnknownKinds = f.unknownKinds
	}
}

// layoutCommand creates the layout command for computing diagrams.
func (c *CLI) layoutCommand() *cobra.Command {
	var flags layoutFlags

	cmd := &cobra.Command{
		Use:   "layout [file]",
		Short: "Compute diagram layouts and write them as JSON",
		Long: `Compute diagram layouts and write them as JSON.

Each network is written to <file>.diagram.json, or <file>.<network>.diagram.json
when the source declares several. The output can be drawn later with
'render' without parsing the source again.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output file or base path (default: next to the input)")
	flags.register(cmd)

	return cmd
}

func (c *CLI) runLayout(ctx context.Context, input string, flags layoutFlags) error {
	opts, err := c.sourceOptions(input)
	if err != nil {
		return err
	}
	flags.apply(&opts)
	opts.Logger = loggerFromContext(ctx)
	if err := opts.ValidateForAnalyze(); err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Computing layout...")
	spinner.Start()

	a := runner.Analyze(ctx, opts)
	if err := a.RequireNetworks(opts.Network); err != nil {
		spinner.Stop()
		printDiagnostics(opts.Filename, a.Diagnostics)
		return err
	}
	diagrams, cacheHit, err := runner.LayoutWithCacheInfo(ctx, a, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	paths, err := diagramPaths(input, flags.output, diagrams)
	if err != nil {
		return err
	}
	for i, d := range diagrams {
		if err := graph.WriteDiagramFile(d, paths[i]); err != nil {
			return fmt.Errorf("write output %s: %w", paths[i], err)
		}
	}

	if len(a.Diagnostics) > 0 {
		printDiagnostics(opts.Filename, a.Diagnostics)
	}
	printSuccess("Layout complete")
	layers := 0
	for _, n := range a.Networks {
		layers += len(n.Network.Layers)
	}
	for _, p := range paths {
		printFile(p)
	}
	printStats(len(diagrams), layers, cacheHit)
	printNewline()
	printNextStep("Render", appName+" render "+paths[0])

	return nil
}

// diagramPaths picks the output file of each diagram. An explicit output
// names the file when there is one diagram and serves as the base path
// otherwise.
func diagramPaths(input, output string, diagrams []graph.Diagram) ([]string, error) {
	multi := len(diagrams) > 1
	if output != "" && !multi {
		return []string{output}, nil
	}
	base := outputBase(input)
	if output != "" {
		base = strings.TrimSuffix(output, "."+diagramExt)
	}
	paths := make([]string, len(diagrams))
	for i, d := range diagrams {
		p, err := outputPath(base, d.Network, multi, diagramExt)
		if err != nil {
			return nil, err
		}
		paths[i] = p
	}
	return paths, nil
}
