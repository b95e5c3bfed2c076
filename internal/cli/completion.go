package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kitchenboard/pkg/kitchen"
	"github.com/matzehuels/kitchenboard/pkg/pipeline"
	"github.com/matzehuels/kitchenboard/pkg/visibility"
)

// completionCommand prints a completion script for the named shell.
func (c *CLI) completionCommand() *cobra.Command {
	generators := map[string]func(cmd *cobra.Command) error{
		"bash": func(cmd *cobra.Command) error { return cmd.Root().GenBashCompletionV2(cmd.OutOrStdout(), true) },
		"zsh":  func(cmd *cobra.Command) error { return cmd.Root().GenZshCompletion(cmd.OutOrStdout()) },
		"fish": func(cmd *cobra.Command) error { return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true) },
		"powershell": func(cmd *cobra.Command) error {
			return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
		},
	}

	return &cobra.Command{
		Use:   "completion bash|zsh|fish|powershell",
		Short: "Print a shell completion script",
		Long: `Print a completion script for subcommands, flags and fixed flag values
such as --format, --availability and --type. Node and restaurant ids are
not completed.`,
		Example: `  source <(kitchenboard completion bash)
  kitchenboard completion zsh > "${fpath[1]}/_kitchenboard"
  kitchenboard completion fish > ~/.config/fish/completions/kitchenboard.fish`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return generators[args[0]](cmd)
		},
	}
}

// fixedCompletion completes a flag from a fixed list of values.
func fixedCompletion(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}

// listCompletion completes the last element of a comma-separated flag.
func listCompletion(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		prefix := ""
		if i := strings.LastIndex(toComplete, ","); i >= 0 {
			prefix = toComplete[:i+1]
		}
		out := make([]string, len(values))
		for i, v := range values {
			out[i] = prefix + v
		}
		return out, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
	}
}

func entityTypeNames() []string {
	names := make([]string, len(kitchen.EntityTypes))
	for i, t := range kitchen.EntityTypes {
		names[i] = string(t)
	}
	return names
}

var availabilityNames = []string{
	string(visibility.AvailabilityAll),
	string(visibility.AvailabilityAvailable),
	string(visibility.AvailabilityUnavailable),
}

var formatNames = []string{
	pipeline.FormatSVG, pipeline.FormatDOT, pipeline.FormatPNG, pipeline.FormatPDF, pipeline.FormatJSON,
}
