package config

import (
	"time"

	"github.com/urfave/cli/v3"
)

// Platform holds backend selection and authentication configuration
type Platform struct {
	Platform   string
	Token      string `masq:"secret"`
	Repository string // "owner/repo" override
	RepoURL    string
	Owner      string
	Repo       string
	BaseURL    string

	SkipCertificateCheck bool

	// Bounds for the self-hosted create-confirmation poll
	ConfirmAttempts int
	ConfirmDelay    time.Duration
}

// Flags returns CLI flags for platform configuration
func (c *Platform) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "platform",
			Usage:       "Backend platform (github or gitea, auto-detected from --repo-url when unset)",
			Destination: &c.Platform,
			Sources:     cli.EnvVars("DROVER_PLATFORM", "INPUT_PLATFORM"),
		},
		&cli.StringFlag{
			Name:        "token",
			Usage:       "API token",
			Required:    true,
			Destination: &c.Token,
			Sources:     cli.EnvVars("DROVER_TOKEN", "INPUT_TOKEN", "GITHUB_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "repository",
			Usage:       "Repository override in owner/repo form",
			Destination: &c.Repository,
			Sources:     cli.EnvVars("DROVER_REPOSITORY", "INPUT_REPOSITORY"),
		},
		&cli.StringFlag{
			Name:        "repo-url",
			Usage:       "Repository URL used for platform auto-detection",
			Destination: &c.RepoURL,
			Sources:     cli.EnvVars("DROVER_REPO_URL", "GITHUB_SERVER_URL"),
		},
		&cli.StringFlag{
			Name:        "owner",
			Usage:       "Repository owner override",
			Destination: &c.Owner,
			Sources:     cli.EnvVars("DROVER_OWNER", "INPUT_OWNER"),
		},
		&cli.StringFlag{
			Name:        "repo",
			Usage:       "Repository name override",
			Destination: &c.Repo,
			Sources:     cli.EnvVars("DROVER_REPO", "INPUT_REPO"),
		},
		&cli.StringFlag{
			Name:        "base-url",
			Usage:       "API base URL override (for self-hosted instances)",
			Destination: &c.BaseURL,
			Sources:     cli.EnvVars("DROVER_BASE_URL", "INPUT_BASEURL"),
		},
		&cli.BoolFlag{
			Name:        "skip-certificate-check",
			Usage:       "Disable TLS certificate verification",
			Destination: &c.SkipCertificateCheck,
			Sources:     cli.EnvVars("DROVER_SKIP_CERTIFICATE_CHECK", "INPUT_SKIPCERTIFICATECHECK"),
		},
		&cli.IntFlag{
			Name:        "confirm-attempts",
			Usage:       "Attempts when confirming a release the backend created without echoing it",
			Value:       10,
			Destination: &c.ConfirmAttempts,
			Sources:     cli.EnvVars("DROVER_CONFIRM_ATTEMPTS"),
		},
		&cli.DurationFlag{
			Name:        "confirm-delay",
			Usage:       "Initial delay of the confirmation poll",
			Value:       500 * time.Millisecond,
			Destination: &c.ConfirmDelay,
			Sources:     cli.EnvVars("DROVER_CONFIRM_DELAY"),
		},
	}
}
