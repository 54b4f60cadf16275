package types

// Version is the application version, overridden at build time via ldflags
var Version = "v0.0.0-dev"

// Platform identifies a release backend
type Platform string

const (
	PlatformGitHub Platform = "github"
	PlatformGitea  Platform = "gitea"
)
