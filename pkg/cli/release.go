package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fatih/color"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/drover/pkg/cli/config"
	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/m-mizutani/drover/pkg/infra/gitea"
	"github.com/m-mizutani/drover/pkg/infra/github"
	"github.com/m-mizutani/drover/pkg/infra/output"
	"github.com/m-mizutani/drover/pkg/infra/platform"
	"github.com/m-mizutani/drover/pkg/usecase"
)

func cmdRelease() *cli.Command {
	var (
		releaseCfg  config.Release
		platformCfg config.Platform
	)

	flags := append(releaseCfg.Flags(), platformCfg.Flags()...)

	return &cli.Command{
		Name:    "release",
		Aliases: []string{"r"},
		Usage:   "Create or update the release for a tag",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			env := model.EnvironmentFromOS()

			inputs, err := releaseCfg.Inputs()
			if err != nil {
				return err
			}

			provider, info, err := buildProvider(&platformCfg, env)
			if err != nil {
				return err
			}

			logger.Info("Starting release",
				slog.String("platform", string(info.Platform)),
				slog.String("owner", info.Owner),
				slog.String("repo", info.Repo),
			)

			uc := usecase.NewRelease(provider, inputs, env, output.NewFromEnv())
			result, err := uc.Execute(ctx)
			if err != nil {
				return err
			}

			printSummary(result)
			return nil
		},
	}
}

// buildProvider resolves the backend coordinates and constructs the
// matching provider instance.
func buildProvider(cfg *config.Platform, env *model.Environment) (interfaces.ReleaseProvider, *platform.Info, error) {
	info, err := platform.Detect(cfg.Platform, cfg.RepoURL)
	if err != nil {
		return nil, nil, err
	}

	owner, repo := resolveRepo(cfg, info, env)
	if owner == "" || repo == "" {
		return nil, nil, goerr.New("repository owner and name could not be resolved",
			goerr.T(types.TagConfig))
	}
	info.Owner, info.Repo = owner, repo

	if cfg.BaseURL != "" {
		info.BaseURL = cfg.BaseURL
	}

	switch info.Platform {
	case types.PlatformGitea:
		if info.BaseURL == "" {
			return nil, nil, goerr.New("a base URL is required for a self-hosted platform",
				goerr.T(types.TagConfig))
		}
		opts := []gitea.Option{
			gitea.WithConfirmPolicy(cfg.ConfirmAttempts, cfg.ConfirmDelay),
		}
		if cfg.SkipCertificateCheck {
			opts = append(opts, gitea.WithInsecureSkipVerify())
		}
		return gitea.New(cfg.Token, owner, repo, info.BaseURL, env, opts...), info, nil

	default:
		var opts []github.Option
		if cfg.BaseURL != "" {
			opts = append(opts, github.WithBaseURL(cfg.BaseURL))
		}
		if cfg.SkipCertificateCheck {
			opts = append(opts, github.WithInsecureSkipVerify())
		}
		return github.New(cfg.Token, owner, repo, opts...), info, nil
	}
}

// resolveRepo applies the owner/repo precedence: explicit flags, then the
// combined repository override, then the URL-derived coordinates, then the
// CI environment.
func resolveRepo(cfg *config.Platform, info *platform.Info, env *model.Environment) (string, string) {
	owner, repo := cfg.Owner, cfg.Repo
	if owner != "" && repo != "" {
		return owner, repo
	}
	if cfg.Repository != "" {
		combined := &model.Environment{Repository: cfg.Repository}
		if o, r := combined.SplitRepository(); o != "" {
			return o, r
		}
	}
	if info.Owner != "" && info.Repo != "" {
		return info.Owner, info.Repo
	}
	return env.SplitRepository()
}

func printSummary(result *model.ReleaseResult) {
	fmt.Printf("%s release %s\n", color.GreenString("✓"), color.CyanString(result.ID))
	if result.HTMLURL != "" {
		fmt.Printf("  %s\n", result.HTMLURL)
	}
	for name, url := range result.Assets {
		fmt.Printf("  %s %s %s\n", color.GreenString("+"), name, url)
	}
}
