package dependencies

import (
	"go.uber.org/zap"

	"github.com/temirov/repocheck/internal/execshell"
	"github.com/temirov/repocheck/internal/githubcli"
	"github.com/temirov/repocheck/internal/gitrepo"
	"github.com/temirov/repocheck/internal/repos/discovery"
	"github.com/temirov/repocheck/internal/repos/filesystem"
	"github.com/temirov/repocheck/internal/repos/shared"
	"github.com/temirov/repocheck/internal/status"
)

// ResolveRepositoryDiscoverer returns the provided discoverer or a filesystem-backed default.
func ResolveRepositoryDiscoverer(existing shared.RepositoryDiscoverer) shared.RepositoryDiscoverer {
	if existing != nil {
		return existing
	}
	return discovery.NewFilesystemRepositoryDiscoverer()
}

// ResolveFileSystem returns the provided filesystem or an OS-backed default.
func ResolveFileSystem(existing shared.FileSystem) shared.FileSystem {
	if existing != nil {
		return existing
	}
	return filesystem.OSFileSystem{}
}

// ResolveGitExecutor returns the provided executor or constructs a shell-backed default that reports
// command lifecycle events to observer.
func ResolveGitExecutor(existing shared.GitExecutor, logger *zap.Logger, observer execshell.CommandEventObserver) (shared.GitExecutor, error) {
	if existing != nil {
		return existing, nil
	}

	commandRunner := execshell.NewOSCommandRunner()
	shellExecutor, creationError := execshell.NewShellExecutorWithObserver(logger, commandRunner, observer)
	if creationError != nil {
		return nil, creationError
	}
	return shellExecutor, nil
}

// ResolveRepositoryInspector returns the provided inspector or a git-backed prober.
func ResolveRepositoryInspector(existing status.RepositoryInspector, executor shared.GitExecutor, fileSystem shared.FileSystem) (status.RepositoryInspector, error) {
	if existing != nil {
		return existing, nil
	}
	return gitrepo.NewProber(executor, ResolveFileSystem(fileSystem))
}

// ResolveCIStatusResolver returns the provided resolver or a GitHub CLI-backed client. Origin URLs are
// read through the inspector when it can, otherwise through a git-backed prober.
func ResolveCIStatusResolver(existing status.CIStatusResolver, executor shared.GitExecutor, inspector status.RepositoryInspector, logger *zap.Logger) (status.CIStatusResolver, error) {
	if existing != nil {
		return existing, nil
	}

	remoteReader, readsRemotes := inspector.(githubcli.OriginURLReader)
	if !readsRemotes {
		prober, proberError := gitrepo.NewProber(executor, ResolveFileSystem(nil))
		if proberError != nil {
			return nil, proberError
		}
		remoteReader = prober
	}
	return githubcli.NewClient(executor, remoteReader, logger)
}
