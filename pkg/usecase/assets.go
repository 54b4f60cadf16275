package usecase

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/m-mizutani/ctxlog"

	"github.com/m-mizutani/drover/pkg/domain/model"
)

// reconcileAssets brings the release's attached assets in line with the
// configured artifact patterns: optionally clearing or replacing existing
// assets, then uploading each resolved file sequentially. It returns a new
// result value with the uploaded URLs merged in.
func (uc *releaseUseCase) reconcileAssets(ctx context.Context, rel *model.ReleaseResult) (*model.ReleaseResult, error) {
	logger := ctxlog.From(ctx)

	paths := uc.expandArtifacts(ctx)
	if len(paths) == 0 {
		logger.Warn("artifact patterns matched no files, nothing to upload",
			"patterns", uc.inputs.Artifacts)
		return rel, nil
	}

	if err := uc.clearExistingAssets(ctx, rel, paths); err != nil {
		if uc.inputs.ArtifactErrorsFailBuild {
			return nil, err
		}
		logger.Warn("failed to clear existing assets, continuing", "error", err)
	}

	uploaded := map[string]string{}
	for _, path := range paths {
		asset := model.NewAssetConfig(path, uc.inputs.ArtifactContentType)
		url, err := uc.provider.UploadAsset(ctx, rel.ID, rel.UploadURL, asset)
		if err != nil {
			if uc.inputs.ArtifactErrorsFailBuild {
				return nil, err
			}
			logger.Warn("failed to upload asset, skipping",
				"path", path, "error", err)
			continue
		}

		logger.Info("uploaded asset", "name", asset.Name, "url", url)
		uploaded[asset.Name] = url
	}

	return rel.WithAssets(uploaded), nil
}

// expandArtifacts splits the configured artifact patterns on commas, expands
// each pattern via glob matching, and deduplicates the resulting paths
// preserving first-seen order. A pattern that fails to expand is kept as a
// literal path when it exists on disk.
func (uc *releaseUseCase) expandArtifacts(ctx context.Context) []string {
	logger := ctxlog.From(ctx)

	seen := map[string]bool{}
	var paths []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	for _, pattern := range strings.Split(uc.inputs.Artifacts, ",") {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil || len(matches) == 0 {
			if _, statErr := os.Stat(pattern); statErr == nil {
				add(pattern)
			} else {
				logger.Warn("artifact pattern matched nothing", "pattern", pattern)
			}
			continue
		}
		for _, m := range matches {
			add(m)
		}
	}

	return paths
}

// clearExistingAssets applies the deletion policies before uploads:
// remove-all deletes every current asset and takes precedence over
// replace-by-name, which deletes only assets colliding with an upload.
func (uc *releaseUseCase) clearExistingAssets(ctx context.Context, rel *model.ReleaseResult, uploads []string) error {
	if !uc.inputs.RemoveArtifacts && !uc.inputs.ReplacesArtifacts {
		return nil
	}

	logger := ctxlog.From(ctx)
	assets, err := uc.provider.ListAssets(ctx, rel.ID)
	if err != nil {
		return err
	}

	uploadNames := map[string]bool{}
	for _, path := range uploads {
		uploadNames[filepath.Base(path)] = true
	}

	for _, asset := range assets {
		if !uc.inputs.RemoveArtifacts && !uploadNames[asset.Name] {
			continue
		}
		if asset.ID == "" {
			// Some backends list assets without ids; those cannot be
			// deleted and the upload simply supersedes them.
			logger.Warn("existing asset has no id, skipping deletion",
				"name", asset.Name)
			continue
		}
		if err := uc.provider.DeleteAsset(ctx, asset.ID); err != nil {
			return err
		}
		logger.Info("deleted existing asset", "name", asset.Name, "id", asset.ID)
	}

	return nil
}
