package usecase

import (
	"context"
	"encoding/json"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
)

type releaseUseCase struct {
	provider interfaces.ReleaseProvider
	inputs   *model.ActionInputs
	env      *model.Environment
	sink     interfaces.OutputSink
}

// NewRelease creates the release reconciliation use case. The provider
// encapsulates the backend dialect; the use case never inspects which
// backend it holds.
func NewRelease(
	provider interfaces.ReleaseProvider,
	inputs *model.ActionInputs,
	env *model.Environment,
	sink interfaces.OutputSink,
) interfaces.ReleaseUseCase {
	return &releaseUseCase{
		provider: provider,
		inputs:   inputs,
		env:      env,
		sink:     sink,
	}
}

// Execute drives one release to the configured state: a single existence
// read, then the minimal set of provider calls to create or update it,
// followed by asset reconciliation and output publication.
func (uc *releaseUseCase) Execute(ctx context.Context) (*model.ReleaseResult, error) {
	logger := ctxlog.From(ctx)

	tag, err := uc.resolveTag()
	if err != nil {
		return nil, err
	}
	uc.inputs.Tag = tag

	existing, err := uc.provider.GetReleaseByTag(ctx, tag)
	if err != nil {
		return nil, err
	}

	if existing != nil && !existing.Draft && uc.inputs.SkipIfReleaseExists {
		logger.Info("release already exists, skipping",
			"tag", tag, "id", existing.ID)
		if err := uc.publish(existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	if existing != nil && uc.inputs.AllowUpdates && uc.inputs.UpdateOnlyUnreleased &&
		!existing.Draft && !existing.Prerelease {
		return nil, goerr.New("existing release is already published and updates are restricted to unreleased ones",
			goerr.T(types.TagConfig), goerr.V("tag", tag), goerr.V("id", existing.ID))
	}

	if existing == nil && uc.inputs.Commit != "" {
		logger.Info("creating tag for release",
			"tag", tag, "commit", uc.inputs.Commit)
		if err := uc.provider.CreateTag(ctx, tag, uc.inputs.Commit, ""); err != nil {
			return nil, err
		}
	}

	cfg := uc.inputs.ReleaseConfig(existing != nil)
	uc.maybeGenerateNotes(ctx, existing, cfg)

	var result *model.ReleaseResult
	if existing != nil && uc.inputs.AllowUpdates {
		logger.Info("updating release", "tag", tag, "id", existing.ID)
		result, err = uc.provider.UpdateRelease(ctx, existing.ID, cfg)
	} else {
		logger.Info("creating release", "tag", tag)
		result, err = uc.provider.CreateRelease(ctx, cfg)
	}
	if err != nil {
		return nil, err
	}

	if uc.inputs.Artifacts != "" {
		result, err = uc.reconcileAssets(ctx, result)
		if err != nil {
			return nil, err
		}
	}

	if err := uc.publish(result); err != nil {
		return nil, err
	}

	logger.Info("release complete",
		"tag", tag, "id", result.ID, "url", result.HTMLURL)
	return result, nil
}

// resolveTag returns the explicit tag, else the tag parsed from the CI
// ref. A release cannot proceed without one.
func (uc *releaseUseCase) resolveTag() (string, error) {
	if uc.inputs.Tag != "" {
		return uc.inputs.Tag, nil
	}
	if uc.env != nil {
		if tag := uc.env.TagFromRef(); tag != "" {
			return tag, nil
		}
	}
	return "", goerr.New("no tag configured and the CI ref does not point at a tag",
		goerr.T(types.TagConfig), goerr.V("ref", uc.envRef()))
}

func (uc *releaseUseCase) envRef() string {
	if uc.env == nil {
		return ""
	}
	return uc.env.Ref
}

// maybeGenerateNotes fills in generated release notes when requested, no
// release exists yet, and no explicit body was supplied. Failures here are
// best-effort: logged and ignored.
func (uc *releaseUseCase) maybeGenerateNotes(ctx context.Context, existing *model.ReleaseResult, cfg *model.ReleaseConfig) {
	if !uc.inputs.GenerateReleaseNotes || existing != nil || uc.inputs.Body != "" {
		return
	}

	logger := ctxlog.From(ctx)
	notes, err := uc.provider.GenerateReleaseNotes(ctx, uc.inputs.Tag, uc.inputs.NotesPreviousTag)
	if err != nil {
		logger.Warn("failed to generate release notes, continuing without",
			"tag", uc.inputs.Tag, "error", err)
		return
	}
	if notes != "" && cfg.Body != nil {
		cfg.Body = &notes
	}
}

// publish writes the normalized results to the output sink. Empty optional
// values are not written.
func (uc *releaseUseCase) publish(result *model.ReleaseResult) error {
	values := []struct {
		key   string
		value string
	}{
		{"id", result.ID},
		{"html_url", result.HTMLURL},
		{"upload_url", result.UploadURL},
		{"tarball_url", result.TarballURL},
		{"zipball_url", result.ZipballURL},
	}

	for _, kv := range values {
		if kv.value == "" {
			continue
		}
		if err := uc.sink.Set(kv.key, kv.value); err != nil {
			return goerr.Wrap(err, "failed to publish output", goerr.V("key", kv.key))
		}
	}

	if len(result.Assets) > 0 {
		encoded, err := json.Marshal(result.Assets)
		if err != nil {
			return goerr.Wrap(err, "failed to encode asset map")
		}
		if err := uc.sink.Set("assets", string(encoded)); err != nil {
			return goerr.Wrap(err, "failed to publish output", goerr.V("key", "assets"))
		}
	}

	return nil
}
