package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"twister.dev/pkg/twister/internal/domain"
	m "twister.dev/pkg/twister/internal/model"
)

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "View the outcomes of the last twisted run",
		Long:  "View the twist outcomes saved in the reports directory by the last twisted run.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			reportsPath := m.Path(viper.GetString(outputFlagName))
			return workflow.View(cmd.Context(), domain.ViewArgs{Reports: reportsPath})
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
