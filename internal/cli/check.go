package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/neuralviz/pkg/pipeline"
)

// checkCommand creates the check command, which reports diagnostics only.
func (c *CLI) checkCommand() *cobra.Command {
	var (
		network      string
		unknownKinds string
	)

	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Report syntax and shape errors",
		Long: `Report syntax and shape errors.

Every diagnostic is printed with its line and column. The command exits with
a non-zero status when at least one error is found; warnings alone do not
fail it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCheck(cmd.Context(), args[0], network, unknownKinds)
		},
	}

	cmd.Flags().StringVar(&network, "network", "", "check only this network")
	cmd.Flags().StringVar(&unknownKinds, "unknown-kinds", "", "unknown layer kinds: error (default), warn")

	return cmd
}

func (c *CLI) runCheck(ctx context.Context, input, network, unknownKinds string) error {
	opts, err := c.sourceOptions(input)
	if err != nil {
		return err
	}
	opts.Network = network
	if unknownKinds != "" {
		opts.UnknownKinds = unknownKinds
	}

	a, err := c.analyze(ctx, opts)
	if err != nil {
		return err
	}

	printDiagnostics(opts.Filename, a.Diagnostics)
	res := &pipeline.Result{Diagnostics: a.Diagnostics}
	if err := res.Err(); err != nil {
		return err
	}
	if network != "" {
		return a.RequireNetworks(network)
	}
	return nil
}

// analyze validates the analysis options and runs parse and validation
// without touching the cache.
func (c *CLI) analyze(ctx context.Context, opts pipeline.Options) (*pipeline.Analysis, error) {
	opts.Logger = loggerFromContext(ctx)
	if err := opts.ValidateForAnalyze(); err != nil {
		return nil, err
	}
	runner := pipeline.NewRunner(nil, nil, opts.Logger)
	return runner.Analyze(ctx, opts), nil
}
