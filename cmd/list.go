package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"twister.dev/pkg/twister/internal/domain"
)

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [twist targets...]",
		Short: "List mutation points of the twist targets",
		Long:  listLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			targets := parsePaths(args)
			if len(targets) == 0 {
				targets = parsePaths(viper.GetStringSlice(twistConfigKey))
			}

			return workflow.List(cmd.Context(), domain.ListArgs{
				TwistTargets:    targets,
				Instrumentation: viper.GetBool(instrumentationConfigKey),
			})
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}
