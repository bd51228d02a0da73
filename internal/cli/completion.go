package cli

import (
	"github.com/spf13/cobra"
)

// scriptExtensions are offered when completing an entrypoint argument.
var scriptExtensions = []string{"ts", "tsx", "js", "jsx", "mjs"}

// completeEntrypoint completes the single entrypoint argument of check, run
// and deps with script files.
func completeEntrypoint(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	return scriptExtensions, cobra.ShellCompDirectiveFilterFileExt
}

func newCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion <shell>",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for deployctl.

Entrypoint arguments of check, run and deps complete to script files.

Bash:
  $ source <(deployctl completion bash)

Zsh:
  $ deployctl completion zsh > "${fpath[1]}/_deployctl"

Fish:
  $ deployctl completion fish > ~/.config/fish/completions/deployctl.fish

PowerShell:
  PS> deployctl completion powershell | Out-String | Invoke-Expression
`,
		// Override parent PersistentPreRunE; completion needs no config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Args:              cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs:         []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()

			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(w, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(w)
			case "fish":
				return cmd.Root().GenFishCompletion(w, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(w)
			}

			return nil
		},
	}

	return cmd
}
