package interfaces

import (
	"context"

	"github.com/m-mizutani/drover/pkg/domain/model"
)

// ReleaseProvider is the capability contract every backend implements.
// Backend-specific quirks (draft-lookup fallback, tag-must-exist ordering,
// multipart vs raw upload encoding) stay fully encapsulated inside each
// implementation; callers never branch on which backend they hold.
type ReleaseProvider interface {
	// CreateRelease creates a new release for cfg.Tag.
	CreateRelease(ctx context.Context, cfg *model.ReleaseConfig) (*model.ReleaseResult, error)

	// UpdateRelease patches an existing release. Only non-nil fields of
	// cfg are sent.
	UpdateRelease(ctx context.Context, id string, cfg *model.ReleaseConfig) (*model.ReleaseResult, error)

	// GetReleaseByTag looks up a release by tag. Absence is not an
	// error: it returns (nil, nil) when no release matches.
	GetReleaseByTag(ctx context.Context, tag string) (*model.ReleaseResult, error)

	// UploadAsset attaches a local file to a release and returns its
	// public download URL.
	UploadAsset(ctx context.Context, releaseID, uploadURL string, asset *model.AssetConfig) (string, error)

	// DeleteAsset removes an asset by its opaque id.
	DeleteAsset(ctx context.Context, assetID string) error

	// ListAssets returns the assets currently attached to a release.
	ListAssets(ctx context.Context, releaseID string) ([]model.Asset, error)

	// CreateTag creates the tag at the given commit. message selects an
	// annotated tag on backends that distinguish one.
	CreateTag(ctx context.Context, tag, commit, message string) error

	// GenerateReleaseNotes produces release notes for the tag. Backends
	// without the feature return "" without failing.
	GenerateReleaseNotes(ctx context.Context, tag, previousTag string) (string, error)
}
