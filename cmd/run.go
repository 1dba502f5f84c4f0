package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"twister.dev/pkg/twister/internal/domain"
	m "twister.dev/pkg/twister/internal/model"
)

var runRequireFlag []string
var runTwistFlag []string
var runOrderFlag string
var runSeedFlag uint64
var runFilterFlag string
var runFailureExitCodeFlag int
var runTerseTwistsFlag bool

// runCmd represents the run command.
var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [spec paths...]",
		Short: "Run the suite, optionally twisting code",
		Long:  runLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := parseOrder(viper.GetString(orderConfigKey))
			if err != nil {
				return err
			}

			specPaths := parsePaths(args)
			if len(specPaths) == 0 {
				specPaths = []m.Path{defaultSpecPath}
			}

			code, err := workflow.Run(cmd.Context(), domain.RunArgs{
				SpecPaths:       specPaths,
				Requires:        parsePaths(viper.GetStringSlice(requireConfigKey)),
				TwistTargets:    parsePaths(viper.GetStringSlice(twistConfigKey)),
				Order:           order,
				Seed:            viper.GetUint64(seedConfigKey),
				Filter:          viper.GetString(filterConfigKey),
				FailureExitCode: viper.GetInt(failureExitCodeConfigKey),
				TerseTwists:     viper.GetBool(terseTwistsConfigKey),
				Instrumentation: viper.GetBool(instrumentationConfigKey),
				Reports:         m.Path(viper.GetString(outputFlagName)),
				ErrStream:       cmd.ErrOrStderr(),
				OutStream:       cmd.OutOrStdout(),
			})
			exitCode = code

			return err
		},
	}

	configureRunFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func configureRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&runRequireFlag, requireFlagName, "r", nil, "load the code units in this file or directory before the specs (can be repeated)")
	bindFlagToConfig(cmd.Flags().Lookup(requireFlagName), requireConfigKey)

	cmd.Flags().StringArrayVarP(&runTwistFlag, twistFlagName, "t", nil, "twist the code units in this file or directory (can be repeated)")
	bindFlagToConfig(cmd.Flags().Lookup(twistFlagName), twistConfigKey)

	cmd.Flags().StringVar(&runOrderFlag, orderFlagName, defaultOrder, "example order: defined or random")
	bindFlagToConfig(cmd.Flags().Lookup(orderFlagName), orderConfigKey)

	cmd.Flags().Uint64Var(&runSeedFlag, seedFlagName, 0, "seed for random order (0 picks one)")
	bindFlagToConfig(cmd.Flags().Lookup(seedFlagName), seedConfigKey)

	cmd.Flags().StringVarP(&runFilterFlag, filterFlagName, "e", "", "only run examples whose description contains this text")
	bindFlagToConfig(cmd.Flags().Lookup(filterFlagName), filterConfigKey)

	cmd.Flags().IntVar(&runFailureExitCodeFlag, failureExitCodeFlagName, defaultFailureExitCode, "exit code when an example fails")
	bindFlagToConfig(cmd.Flags().Lookup(failureExitCodeFlagName), failureExitCodeConfigKey)

	cmd.Flags().BoolVar(&runTerseTwistsFlag, terseTwistsFlagName, defaultTerseTwists, "only report summaries of twisted runs")
	bindFlagToConfig(cmd.Flags().Lookup(terseTwistsFlagName), terseTwistsConfigKey)
}
