package platform

import (
	"net/url"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/drover/pkg/domain/types"
)

const githubAPIBaseURL = "https://api.github.com"

// Info is the resolved backend coordinates consumed to construct a
// provider instance.
type Info struct {
	Platform types.Platform
	BaseURL  string
	Owner    string
	Repo     string
}

// Detect resolves the target platform from an optional explicit platform
// name and an optional repository URL. An explicit name always wins; the
// URL host otherwise decides (github.com means GitHub, any other host a
// self-hosted Gitea instance). Owner and repo are taken from the URL path
// when present.
func Detect(explicit, repoURL string) (*Info, error) {
	info := &Info{}

	if repoURL != "" {
		u, err := url.Parse(repoURL)
		if err != nil || u.Host == "" {
			return nil, goerr.Wrap(err, "invalid repository URL",
				goerr.T(types.TagConfig), goerr.V("url", repoURL))
		}

		if segments := strings.Split(strings.Trim(u.Path, "/"), "/"); len(segments) >= 2 {
			info.Owner = segments[0]
			info.Repo = strings.TrimSuffix(segments[1], ".git")
		}

		if isGitHubHost(u.Host) {
			info.Platform = types.PlatformGitHub
			info.BaseURL = githubAPIBaseURL
		} else {
			info.Platform = types.PlatformGitea
			info.BaseURL = u.Scheme + "://" + u.Host
		}
	}

	switch explicit {
	case "":
		if info.Platform == "" {
			info.Platform = types.PlatformGitHub
			info.BaseURL = githubAPIBaseURL
		}
	case string(types.PlatformGitHub):
		info.Platform = types.PlatformGitHub
		info.BaseURL = githubAPIBaseURL
	case string(types.PlatformGitea):
		info.Platform = types.PlatformGitea
	default:
		return nil, goerr.New("unknown platform", goerr.T(types.TagConfig),
			goerr.V("platform", explicit))
	}

	return info, nil
}

func isGitHubHost(host string) bool {
	return host == "github.com" || host == "www.github.com" || host == "api.github.com"
}
