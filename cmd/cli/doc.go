// Package cli constructs the repocheck command-line interface. It wires the Cobra command
// hierarchy, the Viper-backed configuration loader with its embedded defaults, and the zap
// logger shared by the scan, check, sync and init commands.
package cli
