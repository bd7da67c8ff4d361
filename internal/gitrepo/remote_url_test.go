package gitrepo_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/repocheck/internal/gitrepo"
)

func TestParseRemoteURL(testInstance *testing.T) {
	testCases := []struct {
		name           string
		input          string
		expectedRemote gitrepo.RemoteURL
		expectError    bool
	}{
		{name: "scp_like", input: "git@github.com:temirov/repocheck.git", expectedRemote: gitrepo.RemoteURL{Protocol: gitrepo.RemoteProtocolSSH, Host: "github.com", Owner: "temirov", Repository: "repocheck"}},
		{name: "ssh_scheme", input: "ssh://git@github.com/temirov/repocheck.git", expectedRemote: gitrepo.RemoteURL{Protocol: gitrepo.RemoteProtocolSSH, Host: "github.com", Owner: "temirov", Repository: "repocheck"}},
		{name: "https", input: "https://github.com/temirov/repocheck.git", expectedRemote: gitrepo.RemoteURL{Protocol: gitrepo.RemoteProtocolHTTPS, Host: "github.com", Owner: "temirov", Repository: "repocheck"}},
		{name: "https_with_credentials", input: "https://token@github.com/temirov/repocheck", expectedRemote: gitrepo.RemoteURL{Protocol: gitrepo.RemoteProtocolHTTPS, Host: "github.com", Owner: "temirov", Repository: "repocheck"}},
		{name: "https_trailing_slash", input: "https://gitlab.com/group/project/", expectedRemote: gitrepo.RemoteURL{Protocol: gitrepo.RemoteProtocolHTTPS, Host: "gitlab.com", Owner: "group", Repository: "project"}},
		{name: "empty", input: "  ", expectError: true},
		{name: "local_path", input: "/srv/git/project.git", expectError: true},
		{name: "nested_group", input: "https://gitlab.com/group/sub/project.git", expectError: true},
		{name: "file_scheme", input: "file:///srv/git/project.git", expectError: true},
		{name: "scp_without_user", input: "github.com:temirov/repocheck", expectedRemote: gitrepo.RemoteURL{Protocol: gitrepo.RemoteProtocolSSH, Host: "github.com", Owner: "temirov", Repository: "repocheck"}},
		{name: "missing_repository", input: "git@github.com:temirov/.git", expectError: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			remote, parseError := gitrepo.ParseRemoteURL(testCase.input)
			if testCase.expectError {
				require.ErrorAs(testInstance, parseError, &gitrepo.RemoteURLParseError{})
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedRemote, remote)
		})
	}
}

func TestRemoteURLHelpers(testInstance *testing.T) {
	remote := gitrepo.RemoteURL{Host: "GitHub.com", Owner: "temirov", Repository: "repocheck"}
	require.True(testInstance, remote.IsGitHub())
	require.Equal(testInstance, "temirov/repocheck", remote.Slug())
	require.False(testInstance, gitrepo.RemoteURL{Host: "gitlab.com"}.IsGitHub())
}
