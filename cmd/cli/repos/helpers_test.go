package repos

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const testRepositoryRelativePathConstant = "projects/example"

func TestDetermineRepositoryRootsSanitizesInputs(testInstance *testing.T) {
	homeDirectory, homeDirectoryError := os.UserHomeDir()
	require.NoError(testInstance, homeDirectoryError)

	tildeArgument := filepath.Join("~", testRepositoryRelativePathConstant)
	expectedExpanded := filepath.Join(homeDirectory, testRepositoryRelativePathConstant)
	configuredRoot := filepath.Join(homeDirectory, "configured")

	testCases := []struct {
		name             string
		arguments        []string
		configured       []string
		expectedResolved []string
	}{
		{
			name:             "arguments_preferred",
			arguments:        []string{"  " + tildeArgument + "\t"},
			configured:       []string{configuredRoot},
			expectedResolved: []string{expectedExpanded},
		},
		{
			name:             "configuration_used_when_arguments_blank",
			arguments:        []string{"", "   "},
			configured:       []string{"  " + tildeArgument + "  "},
			expectedResolved: []string{expectedExpanded},
		},
		{
			name:       "nothing_resolved",
			arguments:  nil,
			configured: []string{" "},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			require.Equal(subTest, testCase.expectedResolved, determineRepositoryRoots(testCase.arguments, testCase.configured))
		})
	}
}

func TestOverrideConcurrencyOnlyAppliesChangedFlags(testInstance *testing.T) {
	testCases := []struct {
		name            string
		arguments       []string
		expectedWorkers int
		expectedTimeout time.Duration
	}{
		{name: "unchanged", expectedWorkers: 8, expectedTimeout: time.Minute},
		{name: "workers", arguments: []string{"--workers", "2"}, expectedWorkers: 2, expectedTimeout: time.Minute},
		{name: "non_positive_workers_ignored", arguments: []string{"--workers", "0"}, expectedWorkers: 8, expectedTimeout: time.Minute},
		{name: "timeout", arguments: []string{"--timeout", "30s"}, expectedWorkers: 8, expectedTimeout: 30 * time.Second},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			command := &cobra.Command{Use: "probe"}
			bindConcurrencyFlags(command)
			require.NoError(subTest, command.ParseFlags(testCase.arguments))

			workers, timeout := 8, time.Minute
			overrideConcurrency(command, &workers, &timeout)
			require.Equal(subTest, testCase.expectedWorkers, workers)
			require.Equal(subTest, testCase.expectedTimeout, timeout)
		})
	}
}

func TestCommandExecutionContextHonorsTimeout(testInstance *testing.T) {
	boundedContext, cancelBounded := commandExecutionContext(nil, time.Hour)
	defer cancelBounded()
	_, hasDeadline := boundedContext.Deadline()
	require.True(testInstance, hasDeadline)

	unboundedContext, cancelUnbounded := commandExecutionContext(nil, 0)
	_, hasDeadline = unboundedContext.Deadline()
	require.False(testInstance, hasDeadline)
	cancelUnbounded()
	require.Error(testInstance, unboundedContext.Err())
}

func TestDefaultConfigurationValuesCoverBothCommands(testInstance *testing.T) {
	values := DefaultConfigurationValues("tools")
	require.Equal(testInstance, true, values["tools.scan.auto_pull.enabled"])
	require.Equal(testInstance, true, values["tools.sync.pull_existing"])
	require.Equal(testInstance, 8, values["tools.sync.workers"])
	require.Equal(testInstance, []string{"main", "master"}, values["tools.scan.main_branches"])
}
