package cli

import (
	"github.com/spf13/cobra"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for neuralviz.

To load completions:

Bash:
  $ source <(neuralviz completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ neuralviz completion bash > /etc/bash_completion.d/neuralviz
  # macOS:
  $ neuralviz completion bash > $(brew --prefix)/etc/bash_completion.d/neuralviz

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ neuralviz completion zsh > "${fpath[1]}/_neuralviz"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ neuralviz completion fish | source

  # To load completions for each session, execute once:
  $ neuralviz completion fish > ~/.config/fish/completions/neuralviz.fish

PowerShell:
  PS> neuralviz completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> neuralviz completion powershell > neuralviz.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(stdout)
			}
			return nil
		},
	}

	return cmd
}
