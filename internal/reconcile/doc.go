// Package reconcile brings the local filesystem in line with a repos.yml manifest.
//
// A ManifestLoader locates and validates the manifest, a Reconciler plans one action per entry
// (clone, pull, skip_ignored, skip_existing) and either executes the plan on a bounded worker pool or
// returns it as a dry-run preview. Pulls reuse the status engine's auto-puller with a clean worktree
// required.
package reconcile
