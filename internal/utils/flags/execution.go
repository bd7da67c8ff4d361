// Package flags provides helpers for binding standardized execution flags to Cobra commands.
package flags

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// ExecutionDefaults describes default flag values shared across mutating commands.
type ExecutionDefaults struct {
	DryRun bool
	NoPull bool
}

// ExecutionFlagDefinition captures a single flag's configuration.
type ExecutionFlagDefinition struct {
	Name      string
	Usage     string
	Shorthand string
	Enabled   bool
}

// ExecutionFlagDefinitions groups execution flag definitions.
type ExecutionFlagDefinitions struct {
	DryRun ExecutionFlagDefinition
	NoPull ExecutionFlagDefinition
}

// ExecutionFlagValues reports which execution flags the user set explicitly.
type ExecutionFlagValues struct {
	DryRun    bool
	DryRunSet bool
	NoPull    bool
	NoPullSet bool
}

// BindExecutionFlags attaches the enabled execution flags to the command's local flag set.
func BindExecutionFlags(command *cobra.Command, defaults ExecutionDefaults, definitions ExecutionFlagDefinitions) {
	if command == nil {
		return
	}

	flagSet := command.Flags()
	bindBoolFlag(flagSet, definitions.DryRun, defaults.DryRun)
	bindBoolFlag(flagSet, definitions.NoPull, defaults.NoPull)
}

// ReadExecutionFlags extracts execution flag values, recording whether each was changed on the command line.
func ReadExecutionFlags(command *cobra.Command, definitions ExecutionFlagDefinitions) ExecutionFlagValues {
	values := ExecutionFlagValues{}
	if command == nil {
		return values
	}

	values.DryRun, values.DryRunSet = readBoolFlag(command.Flags(), definitions.DryRun)
	values.NoPull, values.NoPullSet = readBoolFlag(command.Flags(), definitions.NoPull)
	return values
}

func bindBoolFlag(flagSet *pflag.FlagSet, definition ExecutionFlagDefinition, defaultValue bool) {
	if flagSet == nil || !definition.Enabled || len(definition.Name) == 0 {
		return
	}

	if len(definition.Shorthand) > 0 {
		flagSet.BoolP(definition.Name, definition.Shorthand, defaultValue, definition.Usage)
		return
	}

	flagSet.Bool(definition.Name, defaultValue, definition.Usage)
}

func readBoolFlag(flagSet *pflag.FlagSet, definition ExecutionFlagDefinition) (bool, bool) {
	if flagSet == nil || !definition.Enabled || flagSet.Lookup(definition.Name) == nil {
		return false, false
	}
	value, lookupError := flagSet.GetBool(definition.Name)
	if lookupError != nil {
		return false, false
	}
	return value, flagSet.Changed(definition.Name)
}
