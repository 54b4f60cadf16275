package model

import (
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/drover/pkg/domain/types"
)

// DefaultContentType is used for assets when no explicit content type is
// configured.
const DefaultContentType = "application/octet-stream"

// ReleaseConfig is the desired state of a release. Tag is the identifying
// key. Pointer fields distinguish "omit from the outgoing payload" (nil)
// from "send zero value". An omitted field is never sent to the backend,
// so an update cannot unintentionally clear it.
type ReleaseConfig struct {
	Tag        string
	Name       *string
	Body       *string
	Draft      *bool
	Prerelease *bool
	Commit     string // used only when the tag must be freshly created
}

// ReleaseResult is the normalized release representation returned by every
// provider, identical in shape regardless of backend.
type ReleaseResult struct {
	ID         string            // opaque backend-assigned handle
	HTMLURL    string            // human-viewable link
	UploadURL  string            // asset upload endpoint
	TarballURL string            // optional archive link
	ZipballURL string            // optional archive link
	Assets     map[string]string // asset name -> public download URL
	Draft      bool
	Prerelease bool
}

// WithAssets returns a copy of the result with uploaded asset URLs merged
// over the existing asset map. Existing entries are preserved unless a
// same-named upload overwrites them. The receiver is not modified.
func (r *ReleaseResult) WithAssets(uploaded map[string]string) *ReleaseResult {
	merged := make(map[string]string, len(r.Assets)+len(uploaded))
	for name, url := range r.Assets {
		merged[name] = url
	}
	for name, url := range uploaded {
		merged[name] = url
	}

	out := *r
	out.Assets = merged
	return &out
}

// AssetConfig describes one local artifact to attach to a release.
type AssetConfig struct {
	Path        string // local path, must be an existing regular file
	Name        string // defaults to the path's base name
	ContentType string // defaults to DefaultContentType
}

// NewAssetConfig builds an AssetConfig for a local path, applying the
// name and content-type defaults.
func NewAssetConfig(path, contentType string) *AssetConfig {
	if contentType == "" {
		contentType = DefaultContentType
	}
	return &AssetConfig{
		Path:        path,
		Name:        filepath.Base(path),
		ContentType: contentType,
	}
}

// Validate checks the asset points at an existing regular file. Providers
// call this before opening any network connection.
func (a *AssetConfig) Validate() error {
	info, err := os.Stat(a.Path)
	if err != nil {
		return goerr.Wrap(err, "asset file not found",
			goerr.T(types.TagAsset), goerr.V("path", a.Path))
	}
	if !info.Mode().IsRegular() {
		return goerr.New("asset path is not a regular file",
			goerr.T(types.TagAsset), goerr.V("path", a.Path))
	}
	return nil
}

// Asset is an already-uploaded release asset as reported by a backend.
// ID may be empty when the backend's listing path does not expose one;
// such assets cannot be deleted by id.
type Asset struct {
	ID   string
	Name string
	URL  string
}
