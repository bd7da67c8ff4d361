package gitrepo

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	schemeSeparatorConstant          = "://"
	scpPathSeparatorConstant         = ":"
	userInfoSeparatorConstant        = "@"
	pathSeparatorConstant            = "/"
	repositorySuffixConstant         = ".git"
	gitHubHostConstant               = "github.com"
	remoteURLParseTemplateConstant   = "cannot parse remote %q: %s"
	emptyRemoteMessageConstant       = "remote is empty"
	unsupportedSchemeMessageConstant = "unsupported scheme"
	localRemoteMessageConstant       = "local paths have no hosting owner"
	ownerRepositoryMessageConstant   = "expected host/owner/repository"
)

// RemoteProtocol is the transport named by a remote URL.
type RemoteProtocol string

// Remote transports the CI lookup understands.
const (
	RemoteProtocolSSH   RemoteProtocol = "ssh"
	RemoteProtocolHTTPS RemoteProtocol = "https"
)

var protocolsByScheme = map[string]RemoteProtocol{
	"ssh":   RemoteProtocolSSH,
	"https": RemoteProtocolHTTPS,
	"http":  RemoteProtocolHTTPS,
}

// RemoteURL is an origin URL reduced to its hosting coordinates.
type RemoteURL struct {
	Protocol   RemoteProtocol
	Host       string
	Owner      string
	Repository string
}

// IsGitHub reports whether the remote is hosted on github.com.
func (remote RemoteURL) IsGitHub() bool {
	return strings.EqualFold(remote.Host, gitHubHostConstant)
}

// Slug returns owner/repository, the form gh accepts for --repo.
func (remote RemoteURL) Slug() string {
	return remote.Owner + pathSeparatorConstant + remote.Repository
}

// RemoteURLParseError reports a remote that does not name a hosted owner/repository pair.
type RemoteURLParseError struct {
	Input   string
	Message string
}

func (parseError RemoteURLParseError) Error() string {
	return fmt.Sprintf(remoteURLParseTemplateConstant, parseError.Input, parseError.Message)
}

// ParseRemoteURL accepts scp-like remotes (git@host:owner/repo.git) and ssh, https
// and http URLs. Nested groups such as gitlab.com/group/sub/project are rejected.
func ParseRemoteURL(remote string) (RemoteURL, error) {
	trimmedRemote := strings.TrimSpace(remote)
	if len(trimmedRemote) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: emptyRemoteMessageConstant}
	}

	var parsed RemoteURL
	var repositoryPath string
	if strings.Contains(trimmedRemote, schemeSeparatorConstant) {
		location, parseError := url.Parse(trimmedRemote)
		if parseError != nil {
			return RemoteURL{}, RemoteURLParseError{Input: remote, Message: parseError.Error()}
		}
		protocol, supported := protocolsByScheme[strings.ToLower(location.Scheme)]
		if !supported {
			return RemoteURL{}, RemoteURLParseError{Input: remote, Message: unsupportedSchemeMessageConstant}
		}
		parsed = RemoteURL{Protocol: protocol, Host: location.Hostname()}
		repositoryPath = location.Path
	} else {
		hostPart, pathPart, isScpLike := splitScpRemote(trimmedRemote)
		if !isScpLike {
			return RemoteURL{}, RemoteURLParseError{Input: remote, Message: localRemoteMessageConstant}
		}
		parsed = RemoteURL{Protocol: RemoteProtocolSSH, Host: hostPart}
		repositoryPath = pathPart
	}

	segments := strings.Split(strings.Trim(repositoryPath, pathSeparatorConstant), pathSeparatorConstant)
	if len(segments) != 2 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: ownerRepositoryMessageConstant}
	}
	parsed.Owner = segments[0]
	parsed.Repository = strings.TrimSuffix(segments[1], repositorySuffixConstant)
	if len(parsed.Host) == 0 || len(parsed.Owner) == 0 || len(parsed.Repository) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: ownerRepositoryMessageConstant}
	}
	return parsed, nil
}

// splitScpRemote follows git's rule: a colon before the first slash marks user@host:path.
func splitScpRemote(remote string) (string, string, bool) {
	colonIndex := strings.Index(remote, scpPathSeparatorConstant)
	slashIndex := strings.Index(remote, pathSeparatorConstant)
	if colonIndex <= 0 || (slashIndex != -1 && slashIndex < colonIndex) {
		return "", "", false
	}
	host := remote[:colonIndex]
	if userIndex := strings.LastIndex(host, userInfoSeparatorConstant); userIndex != -1 {
		host = host[userIndex+1:]
	}
	return host, remote[colonIndex+1:], true
}
