// Package githubcli wraps the GitHub CLI for CI status lookups.
//
// Client reads a repository's origin remote, asks `gh run list` for the latest
// workflow run and maps it onto status.CIStatus. Every failure degrades to the
// unknown status so a scan never fails because gh is missing or unauthenticated.
package githubcli
