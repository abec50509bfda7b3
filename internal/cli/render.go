package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/neuralviz/pkg/graph"
	"github.com/matzehuels/neuralviz/pkg/pipeline"
)

// renderFlags holds the command-line flags for the render command.
type renderFlags struct {
	layoutFlags
	formats     string
	engine      string
	diagnostics bool
	detailed    bool
	showInput   bool
	scale       float64
}

// renderCommand creates the render command for drawing diagrams.
func (c *CLI) renderCommand() *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Draw networks as SVG, DOT, PNG, PDF or JSON",
		Long: `Draw networks as SVG, DOT, PNG, PDF or JSON.

The input is either a source file or a diagram written by 'layout'
(*.diagram.json), which is drawn without parsing the source again.

The native engine draws the computed layout directly. The graphviz engine
lays the diagram out again with Graphviz. PNG and PDF need rsvg-convert
on the PATH for the native engine.

Rendering still happens when the source has errors: layers whose shape
could not be inferred are drawn with a "?" shape.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output file (one network and format) or base path")
	cmd.Flags().StringVarP(&flags.formats, "format", "f", "", "output format(s): svg (default), dot, png, pdf, json (comma-separated)")
	cmd.Flags().StringVar(&flags.engine, "engine", "", "rendering engine: native (default), graphviz")
	cmd.Flags().BoolVar(&flags.diagnostics, "diagnostics", false, "draw a diagnostics panel (native)")
	cmd.Flags().BoolVar(&flags.detailed, "detailed", false, "add parameter counts and lines to labels (graphviz, dot)")
	cmd.Flags().BoolVar(&flags.showInput, "show-input", false, "draw the input shape as its own node (graphviz, dot)")
	cmd.Flags().Float64Var(&flags.scale, "scale", 0, "PNG scale factor")
	flags.register(cmd)

	return cmd
}

// apply copies the render flags that were set over the configured options.
func (f *renderFlags) apply(opts *pipeline.Options) {
	f.layoutFlags.apply(opts)
	if f.formats != "" {
		opts.Formats = pipeline.ParseFormats(f.formats)
	}
	if f.engine != "" {
		opts.Engine = strings.ToLower(f.engine)
	}
	opts.Diagnostics = opts.Diagnostics || f.diagnostics
	opts.Detailed = f.detailed
	opts.ShowInput = f.showInput
	if f.scale > 0 {
		opts.Scale = f.scale
	}
}

func (c *CLI) runRender(ctx context.Context, input string, flags renderFlags) error {
	if isDiagramFile(input) {
		return c.renderDiagramFile(ctx, input, flags)
	}

	opts, err := c.sourceOptions(input)
	if err != nil {
		return err
	}
	flags.apply(&opts)

	runner, err := c.newRunner(ctx, flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	prog := newProgress(loggerFromContext(ctx))
	spinner := newSpinnerWithContext(ctx, "Rendering...")
	spinner.Start()

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.Stop()
		if result != nil {
			printDiagnostics(opts.Filename, result.Diagnostics)
		}
		return err
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	paths, err := writeArtifacts(outputBase(input), flags.output, result.Outputs)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Rendered %s", plural(len(paths), "file")))

	if len(result.Diagnostics) > 0 {
		printDiagnostics(opts.Filename, result.Diagnostics)
	}
	printSuccess("Render complete")
	for _, p := range paths {
		printFile(p)
	}
	printStats(result.Stats.Networks, result.Stats.Layers, result.CacheInfo.LayoutHit && result.CacheInfo.RenderHit)
	return nil
}

// renderDiagramFile draws a diagram written by the layout command.
func (c *CLI) renderDiagramFile(ctx context.Context, input string, flags renderFlags) error {
	d, err := graph.ReadDiagramFile(input)
	if err != nil {
		return fmt.Errorf("load diagram %s: %w", input, err)
	}

	opts := c.Config.Options()
	flags.apply(&opts)
	opts.Logger = loggerFromContext(ctx)

	runner, err := c.newRunner(ctx, flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	artifacts, cacheHit, err := runner.RenderWithCacheInfo(ctx, d, opts)
	if err != nil {
		return err
	}

	base := strings.TrimSuffix(input, "."+diagramExt)
	out := []pipeline.Output{{Diagram: d, Artifacts: artifacts}}
	paths, err := writeArtifacts(base, flags.output, out)
	if err != nil {
		return err
	}

	printSuccess("Render complete")
	for _, p := range paths {
		printFile(p)
	}
	printStats(1, len(d.Nodes), cacheHit)
	return nil
}

// isDiagramFile reports whether path looks like layout output.
func isDiagramFile(path string) bool {
	return strings.HasSuffix(filepath.Base(path), "."+diagramExt)
}

// writeArtifacts writes every artifact next to base and returns the paths
// in a stable order. An explicit output names the file when there is
// exactly one artifact and replaces base otherwise.
func writeArtifacts(base, output string, outputs []pipeline.Output) ([]string, error) {
	total := 0
	for _, o := range outputs {
		total += len(o.Artifacts)
	}

	if output != "" {
		if total == 1 {
			for _, o := range outputs {
				for _, data := range o.Artifacts {
					if err := writeOutput(output, data); err != nil {
						return nil, err
					}
				}
			}
			return []string{output}, nil
		}
		base = trimFormatExt(output)
	}

	multi := len(outputs) > 1
	var paths []string
	for _, o := range outputs {
		formats := make([]string, 0, len(o.Artifacts))
		for f := range o.Artifacts {
			formats = append(formats, f)
		}
		sort.Strings(formats)

		for _, f := range formats {
			path, err := outputPath(base, o.Diagram.Network, multi, f)
			if err != nil {
				return nil, err
			}
			if err := writeOutput(path, o.Artifacts[f]); err != nil {
				return nil, err
			}
			paths = append(paths, path)
		}
	}
	return paths, nil
}

// trimFormatExt strips a known format extension from an output path.
func trimFormatExt(path string) string {
	ext := filepath.Ext(path)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(path, ext)
	}
	return path
}
