package main

import "github.com/spf13/cobra"

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for osutil.

To load completions:

Bash:
  $ source <(osutil completion bash)
  # To load completions for each session, execute once:
  # Linux:
  $ osutil completion bash > /etc/bash_completion.d/osutil
  # macOS:
  $ osutil completion bash > $(brew --prefix)/etc/bash_completion.d/osutil

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc
  # To load completions for each session, execute once:
  $ osutil completion zsh > "${fpath[1]}/_osutil"
  # You will need to start a new shell for this setup to take effect.

Fish:
  $ osutil completion fish | source
  # To load completions for each session, execute once:
  $ osutil completion fish > ~/.config/fish/completions/osutil.fish

PowerShell:
  PS> osutil completion powershell | Out-String | Invoke-Expression
  # To load completions for every new session, run:
  PS> osutil completion powershell > osutil.ps1
  # and source this file from your PowerShell profile.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Run: func(cmd *cobra.Command, args []string) {
		switch args[0] {
		case "bash":
			rootCmd.GenBashCompletionV2(cmd.OutOrStdout(), true)
		case "zsh":
			rootCmd.GenZshCompletion(cmd.OutOrStdout())
		case "fish":
			rootCmd.GenFishCompletion(cmd.OutOrStdout(), true)
		case "powershell":
			rootCmd.GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
