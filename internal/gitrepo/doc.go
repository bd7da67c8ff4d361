// Package gitrepo inspects local working trees through the git command line.
//
// Prober implements status.RepositoryInspector: it gathers the branch, upstream,
// divergence, working tree and stash facts of a repository without contacting a
// remote, and performs the fast-forward pulls, clones and fetches the status and
// reconcile packages request. ParseRemoteURL extracts the hosting owner and
// repository from origin URLs.
package gitrepo
