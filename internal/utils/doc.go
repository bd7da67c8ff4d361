// Package utils exposes reusable helpers consumed by multiple commands.
//
// ConfigurationLoader layers embedded defaults, configuration files and
// REPOCHECK_ environment variables through Viper. LoggerFactory builds zap
// loggers and tags them with per-run identifiers.
package utils
