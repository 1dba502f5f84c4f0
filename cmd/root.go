// Package cmd provides the root command and CLI setup for twister.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"twister.dev/pkg/twister/internal/adapter"
	"twister.dev/pkg/twister/internal/controller"
	"twister.dev/pkg/twister/internal/domain"
	m "twister.dev/pkg/twister/internal/model"
)

var goFileAdapter adapter.GoFileAdapter
var fsAdapter adapter.SourceFSAdapter
var specAdapter adapter.SpecFileAdapter
var reportStore adapter.ReportStore
var workflow domain.Workflow
var ui controller.UI

// reportsOutputDirFlag is a root-level flag shared by commands that read/write reports.
var reportsOutputDirFlag string

var instrumentationFlag bool
var verboseFlag bool
var logFileFlag string

// exitCode is the process exit code chosen by the last command.
var exitCode int

func init() {
	configureRootFlags(rootCmd)

	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	goFileAdapter = adapter.NewLocalGoFileAdapter()
	fsAdapter = adapter.NewLocalSourceFSAdapter()
	specAdapter = adapter.NewLocalSpecFileAdapter(fsAdapter)
	reportStore = adapter.NewReportStore(fsAdapter)
	workflow = domain.NewWorkflow(
		fsAdapter,
		goFileAdapter,
		specAdapter,
		reportStore,
		ui,
	)
}

const pathsHelp = `Twist targets are Go source files or directories; a directory contributes
its own *.go files, tests excluded. Spec paths are YAML spec files or
directories searched recursively for *_spec.yaml.`

const rootLongDescription = `Twister runs a suite of examples against your code, then reruns it once
per twisted conditional or literal to show which changes the suite notices.

` + pathsHelp

const runLongDescription = `Run the spec files (default: ./spec) against the code units loaded with
--require and --twist. With --twist, run them once as a baseline and once
for every mutation point of the twist targets.

` + pathsHelp

const listLongDescription = `List the mutation points found in the twist targets.

` + pathsHelp

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "twister",
		Short:        "Suite runner with mutation replay",
		Long:         rootLongDescription,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(viper.GetString(logFilenameKey), viper.GetBool(logVerboseKey))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func newRootCmd() *cobra.Command {
	cmd := baseRootCmd()
	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVarP(
			&reportsOutputDirFlag, outputFlagName, "o",
			defaultReportsDir,
			"output directory for twist reports",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputFlagName), outputFlagName)

	cmd.PersistentFlags().BoolVar(&instrumentationFlag, instrumentationFlagName, defaultInstrumentation, "allow instrumenting twist targets (false forces plain runs)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(instrumentationFlagName), instrumentationConfigKey)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", defaultLogVerbose, "log at debug level")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(verboseFlagName), logVerboseKey)

	cmd.PersistentFlags().StringVar(&logFileFlag, logFileFlagName, defaultLogFilename, "log file path")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(logFileFlagName), logFilenameKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// The process exits with the code of the suite run, or 1 on other errors.
func Execute() {
	err := rootCmd.Execute()
	if err != nil && exitCode == 0 {
		exitCode = 1
	}

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func parsePaths(args []string) []m.Path {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}
