package upstream

import (
	"os"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"github.com/klauern/typesync/internal/logging"
	"github.com/klauern/typesync/internal/util"
)

// tokenEnv lists the token variables checked for http(s) remotes, with the
// username each hosting provider expects alongside the token.
var tokenEnv = []struct {
	name     string
	username string
}{
	{name: "GITHUB_TOKEN", username: "x-access-token"},
	{name: "GITLAB_TOKEN", username: "gitlab-ci-token"},
	{name: "GIT_TOKEN", username: "git"},
}

// AuthFor picks credentials for url. Public remotes work with a nil result.
func AuthFor(url string) transport.AuthMethod {
	switch {
	case isSSH(url):
		return sshAuth()
	case strings.HasPrefix(url, "https://"), strings.HasPrefix(url, "http://"):
		return httpAuth()
	default:
		return nil
	}
}

func isSSH(url string) bool {
	return strings.HasPrefix(url, "ssh://") || strings.HasPrefix(url, "git@")
}

func sshAuth() transport.AuthMethod {
	for _, keyPath := range util.SSHKeyPaths() {
		if _, err := os.Stat(keyPath); err != nil {
			continue
		}
		auth, err := ssh.NewPublicKeysFromFile("git", keyPath, "")
		if err != nil {
			logging.Debug("skipping unusable ssh key", logging.Path(keyPath), logging.Err(err))
			continue
		}
		return auth
	}
	return nil
}

func httpAuth() transport.AuthMethod {
	for _, env := range tokenEnv {
		if token := os.Getenv(env.name); token != "" {
			return &http.BasicAuth{
				Username: env.username,
				Password: token,
			}
		}
	}
	return nil
}
