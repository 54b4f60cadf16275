package model

import (
	"os"
	"strings"
)

// Environment captures the CI-provided ambient values the workflow may
// fall back to. It is read once at startup and threaded explicitly into
// the components that need it, instead of reading process state inside
// deep call paths.
type Environment struct {
	Ref        string // e.g. "refs/tags/v1.2.3"
	SHA        string // commit SHA of the triggering event
	Repository string // "owner/repo"
}

// EnvironmentFromOS reads the well-known CI environment variables. The SHA
// fallback order matches the backends' runner conventions: GITHUB_SHA is
// set by both GitHub Actions and Gitea Actions, CI_COMMIT_SHA by other
// runners.
func EnvironmentFromOS() *Environment {
	sha := os.Getenv("GITHUB_SHA")
	if sha == "" {
		sha = os.Getenv("CI_COMMIT_SHA")
	}
	return &Environment{
		Ref:        os.Getenv("GITHUB_REF"),
		SHA:        sha,
		Repository: os.Getenv("GITHUB_REPOSITORY"),
	}
}

// TagFromRef extracts the tag name when Ref points at a tag, otherwise "".
func (e *Environment) TagFromRef() string {
	const prefix = "refs/tags/"
	if strings.HasPrefix(e.Ref, prefix) {
		return strings.TrimPrefix(e.Ref, prefix)
	}
	return ""
}

// SplitRepository splits Repository into owner and repo, returning empty
// strings when it is not in "owner/repo" form.
func (e *Environment) SplitRepository() (owner, repo string) {
	parts := strings.SplitN(e.Repository, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", ""
	}
	return parts[0], parts[1]
}
