package cli

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// inspectCommand creates the inspect command, an interactive layer table.
func (c *CLI) inspectCommand() *cobra.Command {
	var network string

	cmd := &cobra.Command{
		Use:   "inspect [file]",
		Short: "Browse layers, shapes and diagnostics interactively",
		Long: `Browse layers, shapes and diagnostics interactively.

Shows each network as a table of layers with their input and output shapes
and parameter estimates. Layers on a line with an error are highlighted and
the diagnostics of the selected layer are listed below the table. Use tab to
switch between networks. When stdout is not a terminal the first network's
table is printed once.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInspect(cmd.Context(), args[0], network)
		},
	}

	cmd.Flags().StringVar(&network, "network", "", "inspect only this network")

	return cmd
}

func (c *CLI) runInspect(ctx context.Context, input, network string) error {
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

	model := NewLayerTableModel(a.Networks, a.Diagnostics)
	if !isTerminal(os.Stdout) {
		_, err := fmt.Fprint(stdout, model.View())
		return err
	}

	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("inspect: %w", err)
	}
	return nil
}
