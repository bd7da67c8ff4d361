// Package ui adapts shell command lifecycle events into console log messages.
package ui
