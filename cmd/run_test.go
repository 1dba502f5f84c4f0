package cmd

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"twister.dev/pkg/twister/internal/domain"
	domainmocks "twister.dev/pkg/twister/internal/domain/mocks"
	m "twister.dev/pkg/twister/internal/model"
)

func setupRunCmd(t *testing.T) (*domainmocks.MockWorkflow, func(args ...string) error) {
	t.Helper()

	mockWorkflow := domainmocks.NewMockWorkflow(t)

	cmd := newRootCmd()
	cmd.AddCommand(newRunCmd())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	originalWorkflow, originalExitCode := workflow, exitCode
	workflow = mockWorkflow

	t.Cleanup(func() {
		workflow = originalWorkflow
		exitCode = originalExitCode
	})

	return mockWorkflow, func(args ...string) error {
		cmd.SetArgs(append([]string{"run"}, args...))
		return cmd.Execute()
	}
}

func TestRunCmd_Defaults(t *testing.T) {
	mockWorkflow, execute := setupRunCmd(t)

	mockWorkflow.On("Run", mock.Anything, mock.MatchedBy(func(args domain.RunArgs) bool {
		return len(args.SpecPaths) == 1 &&
			args.SpecPaths[0] == m.Path("spec") &&
			len(args.TwistTargets) == 0 &&
			len(args.Requires) == 0 &&
			args.Order == m.OrderDefined &&
			args.Seed == 0 &&
			args.FailureExitCode == 1 &&
			args.TerseTwists &&
			args.Instrumentation &&
			args.Reports == m.Path(".twister-reports") &&
			args.ErrStream != nil &&
			args.OutStream != nil
	})).Return(0, nil)

	require.NoError(t, execute())
	assert.Equal(t, 0, exitCode)
}

func TestRunCmd_TwistTargetsAndSpecPaths(t *testing.T) {
	mockWorkflow, execute := setupRunCmd(t)

	mockWorkflow.On("Run", mock.Anything, mock.MatchedBy(func(args domain.RunArgs) bool {
		return len(args.TwistTargets) == 2 &&
			args.TwistTargets[0] == m.Path("./calc") &&
			args.TwistTargets[1] == m.Path("./geometry/shapes.go") &&
			len(args.SpecPaths) == 2 &&
			args.SpecPaths[0] == m.Path("spec/calc_spec.yaml") &&
			args.SpecPaths[1] == m.Path("spec/geometry")
	})).Return(0, nil)

	require.NoError(t, execute("-t", "./calc", "--twist", "./geometry/shapes.go", "spec/calc_spec.yaml", "spec/geometry"))
}

func TestRunCmd_Requires(t *testing.T) {
	mockWorkflow, execute := setupRunCmd(t)

	mockWorkflow.On("Run", mock.Anything, mock.MatchedBy(func(args domain.RunArgs) bool {
		return len(args.Requires) == 2 &&
			args.Requires[0] == m.Path("./calc") &&
			args.Requires[1] == m.Path("./helpers")
	})).Return(0, nil)

	require.NoError(t, execute("-r", "./calc", "--require", "./helpers"))
}

func TestRunCmd_SuiteOptions(t *testing.T) {
	mockWorkflow, execute := setupRunCmd(t)

	mockWorkflow.On("Run", mock.Anything, mock.MatchedBy(func(args domain.RunArgs) bool {
		return args.Order == m.OrderRandom &&
			args.Seed == 1234 &&
			args.Filter == "calc" &&
			args.FailureExitCode == 9 &&
			!args.TerseTwists
	})).Return(9, nil)

	require.NoError(t, execute("--order", "random", "--seed", "1234", "-e", "calc", "--failure-exit-code", "9", "--terse-twists=false"))
	assert.Equal(t, 9, exitCode)
}

func TestRunCmd_RootFlagsPassThrough(t *testing.T) {
	mockWorkflow, execute := setupRunCmd(t)

	mockWorkflow.On("Run", mock.Anything, mock.MatchedBy(func(args domain.RunArgs) bool {
		return args.Reports == m.Path("out/reports") && !args.Instrumentation
	})).Return(0, nil)

	require.NoError(t, execute("-o", "out/reports", "--instrumentation=false"))
}

func TestRunCmd_InvalidOrder(t *testing.T) {
	mockWorkflow, execute := setupRunCmd(t)

	require.Error(t, execute("--order", "shuffled"))
	mockWorkflow.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestRunCmd_WorkflowError(t *testing.T) {
	mockWorkflow, execute := setupRunCmd(t)

	mockWorkflow.On("Run", mock.Anything, mock.Anything).Return(3, errors.New("load calc.go: syntax error"))

	require.Error(t, execute())
	assert.Equal(t, 3, exitCode)
}
