// Package report renders scan, check and sync results as lipgloss tables, JSON or YAML.
package report
