package github

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/m-mizutani/drover/pkg/infra/rest"
	"github.com/m-mizutani/drover/pkg/utils/retry"
)

const (
	defaultBaseURL = "https://api.github.com"
	acceptHeader   = "application/vnd.github+json"

	// Draft releases may not be indexed by the tag endpoint yet; the
	// full-list fallback retries with a fixed delay to tolerate the lag.
	listFallbackAttempts = 3
	listFallbackDelay    = time.Second
	listPageSize         = 100
)

type client struct {
	rest    *rest.Client
	baseURL string
	owner   string
	repo    string
}

// Option configures the GitHub client.
type Option func(*options)

type options struct {
	baseURL  string
	restOpts []rest.Option
}

// WithBaseURL overrides the API base URL (for GitHub Enterprise or tests).
func WithBaseURL(u string) Option {
	return func(o *options) {
		o.baseURL = strings.TrimSuffix(u, "/")
	}
}

// WithInsecureSkipVerify disables TLS certificate verification.
func WithInsecureSkipVerify() Option {
	return func(o *options) {
		o.restOpts = append(o.restOpts, rest.WithInsecureSkipVerify())
	}
}

// New creates a GitHub release provider for owner/repo.
func New(token, owner, repo string, opts ...Option) interfaces.ReleaseProvider {
	o := &options{baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(o)
	}

	restOpts := append([]rest.Option{rest.WithAccept(acceptHeader)}, o.restOpts...)
	return &client{
		rest:    rest.New(token, restOpts...),
		baseURL: o.baseURL,
		owner:   owner,
		repo:    repo,
	}
}

func (c *client) repoURL(format string, args ...any) string {
	return fmt.Sprintf("%s/repos/%s/%s", c.baseURL, c.owner, c.repo) + fmt.Sprintf(format, args...)
}

// release is the GitHub API representation of a release.
type release struct {
	ID         int64   `json:"id"`
	TagName    string  `json:"tag_name"`
	HTMLURL    string  `json:"html_url"`
	UploadURL  string  `json:"upload_url"`
	TarballURL string  `json:"tarball_url"`
	ZipballURL string  `json:"zipball_url"`
	Draft      bool    `json:"draft"`
	Prerelease bool    `json:"prerelease"`
	Assets     []asset `json:"assets"`
}

type asset struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

func (r *release) toResult() *model.ReleaseResult {
	assets := make(map[string]string, len(r.Assets))
	for _, a := range r.Assets {
		assets[a.Name] = a.BrowserDownloadURL
	}

	// The upload URL comes back as a URI template
	// ("https://.../assets{?name,label}"); strip the placeholder.
	uploadURL := r.UploadURL
	if idx := strings.Index(uploadURL, "{"); idx >= 0 {
		uploadURL = uploadURL[:idx]
	}

	return &model.ReleaseResult{
		ID:         strconv.FormatInt(r.ID, 10),
		HTMLURL:    r.HTMLURL,
		UploadURL:  uploadURL,
		TarballURL: r.TarballURL,
		ZipballURL: r.ZipballURL,
		Assets:     assets,
		Draft:      r.Draft,
		Prerelease: r.Prerelease,
	}
}

type createPayload struct {
	TagName         string  `json:"tag_name"`
	TargetCommitish string  `json:"target_commitish,omitempty"`
	Name            *string `json:"name,omitempty"`
	Body            *string `json:"body,omitempty"`
	Draft           *bool   `json:"draft,omitempty"`
	Prerelease      *bool   `json:"prerelease,omitempty"`
	// Notes are generated through the dedicated endpoint instead.
	GenerateReleaseNotes bool `json:"generate_release_notes"`
}

type updatePayload struct {
	TagName    string  `json:"tag_name,omitempty"`
	Name       *string `json:"name,omitempty"`
	Body       *string `json:"body,omitempty"`
	Draft      *bool   `json:"draft,omitempty"`
	Prerelease *bool   `json:"prerelease,omitempty"`
}

func (c *client) CreateRelease(ctx context.Context, cfg *model.ReleaseConfig) (*model.ReleaseResult, error) {
	payload := createPayload{
		TagName:         cfg.Tag,
		TargetCommitish: cfg.Commit,
		Name:            cfg.Name,
		Body:            cfg.Body,
		Draft:           cfg.Draft,
		Prerelease:      cfg.Prerelease,
	}

	var rel release
	if _, err := c.rest.JSON(ctx, http.MethodPost, c.repoURL("/releases"), payload, &rel); err != nil {
		return nil, goerr.Wrap(err, "failed to create release", goerr.V("tag", cfg.Tag))
	}

	return rel.toResult(), nil
}

func (c *client) UpdateRelease(ctx context.Context, id string, cfg *model.ReleaseConfig) (*model.ReleaseResult, error) {
	payload := updatePayload{
		Name:       cfg.Name,
		Body:       cfg.Body,
		Draft:      cfg.Draft,
		Prerelease: cfg.Prerelease,
	}

	var rel release
	if _, err := c.rest.JSON(ctx, http.MethodPatch, c.repoURL("/releases/%s", id), payload, &rel); err != nil {
		return nil, goerr.Wrap(err, "failed to update release", goerr.V("id", id))
	}

	return rel.toResult(), nil
}

func (c *client) GetReleaseByTag(ctx context.Context, tag string) (*model.ReleaseResult, error) {
	var rel release
	_, err := c.rest.JSON(ctx, http.MethodGet, c.repoURL("/releases/tags/%s", url.PathEscape(tag)), nil, &rel)
	if err == nil {
		return rel.toResult(), nil
	}
	if !types.IsNotFound(err) {
		return nil, goerr.Wrap(err, "failed to get release by tag", goerr.V("tag", tag))
	}

	// Unpublished drafts are not indexed by the tag endpoint; scan the
	// full listing instead.
	ctxlog.From(ctx).Debug("release not found by tag, scanning release list",
		"tag", tag)
	return c.findInList(ctx, tag)
}

func (c *client) findInList(ctx context.Context, tag string) (*model.ReleaseResult, error) {
	found, err := retry.Do(ctx, retry.Constant(listFallbackAttempts, listFallbackDelay),
		func(ctx context.Context) (*model.ReleaseResult, bool, error) {
			var releases []release
			listURL := c.repoURL("/releases?per_page=%d", listPageSize)
			if _, err := c.rest.JSON(ctx, http.MethodGet, listURL, nil, &releases); err != nil {
				return nil, false, goerr.Wrap(err, "failed to list releases", goerr.V("tag", tag))
			}
			for i := range releases {
				if releases[i].TagName == tag {
					return releases[i].toResult(), true, nil
				}
			}
			return nil, false, nil
		})
	if err != nil {
		// Exhausting the fallback means absence, not an error.
		if errors.Is(err, retry.ErrExhausted) {
			return nil, nil
		}
		return nil, err
	}
	return found, nil
}

func (c *client) UploadAsset(ctx context.Context, releaseID, uploadURL string, assetCfg *model.AssetConfig) (string, error) {
	data, err := readAssetFile(assetCfg)
	if err != nil {
		return "", err
	}

	target := uploadURL + "?name=" + url.QueryEscape(assetCfg.Name)
	req := rest.Request{
		Method: http.MethodPost,
		URL:    target,
		Header: http.Header{
			"Content-Type":   []string{assetCfg.ContentType},
			"Content-Length": []string{strconv.Itoa(len(data))},
		},
		Body: bytes.NewReader(data),
	}

	var uploaded asset
	if _, err := c.rest.Do(ctx, req, &uploaded); err != nil {
		return "", goerr.Wrap(err, "failed to upload asset",
			goerr.V("name", assetCfg.Name), goerr.V("release_id", releaseID))
	}

	return uploaded.BrowserDownloadURL, nil
}

func (c *client) DeleteAsset(ctx context.Context, assetID string) error {
	if _, err := c.rest.JSON(ctx, http.MethodDelete, c.repoURL("/releases/assets/%s", assetID), nil, nil); err != nil {
		return goerr.Wrap(err, "failed to delete asset", goerr.V("asset_id", assetID))
	}
	return nil
}

func (c *client) ListAssets(ctx context.Context, releaseID string) ([]model.Asset, error) {
	var assets []asset
	listURL := c.repoURL("/releases/%s/assets?per_page=%d", releaseID, listPageSize)
	if _, err := c.rest.JSON(ctx, http.MethodGet, listURL, nil, &assets); err != nil {
		return nil, goerr.Wrap(err, "failed to list assets", goerr.V("release_id", releaseID))
	}

	out := make([]model.Asset, 0, len(assets))
	for _, a := range assets {
		out = append(out, model.Asset{
			ID:   strconv.FormatInt(a.ID, 10),
			Name: a.Name,
			URL:  a.BrowserDownloadURL,
		})
	}
	return out, nil
}

func (c *client) CreateTag(ctx context.Context, tag, commit, message string) error {
	// Creating an existing ref fails with 422; check first so the
	// proactive tag creation stays idempotent.
	var existing struct {
		Ref string `json:"ref"`
	}
	_, err := c.rest.JSON(ctx, http.MethodGet, c.repoURL("/git/ref/tags/%s", url.PathEscape(tag)), nil, &existing)
	if err == nil {
		ctxlog.From(ctx).Debug("tag already exists", "tag", tag)
		return nil
	}
	if !types.IsNotFound(err) {
		return goerr.Wrap(err, "failed to check tag existence", goerr.V("tag", tag))
	}

	refPayload := map[string]string{
		"ref": "refs/tags/" + tag,
		"sha": commit,
	}
	if _, err := c.rest.JSON(ctx, http.MethodPost, c.repoURL("/git/refs"), refPayload, nil); err != nil {
		return goerr.Wrap(err, "failed to create tag ref",
			goerr.V("tag", tag), goerr.V("commit", commit))
	}

	if message == "" {
		return nil
	}

	// An annotated tag needs a tag object, with the ref repointed at it.
	tagPayload := map[string]string{
		"tag":     tag,
		"message": message,
		"object":  commit,
		"type":    "commit",
	}
	var tagObj struct {
		SHA string `json:"sha"`
	}
	if _, err := c.rest.JSON(ctx, http.MethodPost, c.repoURL("/git/tags"), tagPayload, &tagObj); err != nil {
		return goerr.Wrap(err, "failed to create annotated tag object", goerr.V("tag", tag))
	}

	repoint := map[string]any{
		"sha":   tagObj.SHA,
		"force": true,
	}
	if _, err := c.rest.JSON(ctx, http.MethodPatch, c.repoURL("/git/refs/tags/%s", url.PathEscape(tag)), repoint, nil); err != nil {
		return goerr.Wrap(err, "failed to repoint tag ref", goerr.V("tag", tag))
	}

	return nil
}

func (c *client) GenerateReleaseNotes(ctx context.Context, tag, previousTag string) (string, error) {
	payload := map[string]string{"tag_name": tag}
	if previousTag != "" {
		payload["previous_tag_name"] = previousTag
	}

	var notes struct {
		Name string `json:"name"`
		Body string `json:"body"`
	}
	if _, err := c.rest.JSON(ctx, http.MethodPost, c.repoURL("/releases/generate-notes"), payload, &notes); err != nil {
		return "", goerr.Wrap(err, "failed to generate release notes", goerr.V("tag", tag))
	}

	return notes.Body, nil
}

// readAssetFile validates the asset and returns its contents. Validation
// failures are raised before any network call.
func readAssetFile(assetCfg *model.AssetConfig) ([]byte, error) {
	if err := assetCfg.Validate(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(assetCfg.Path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read asset file",
			goerr.T(types.TagAsset), goerr.V("path", assetCfg.Path))
	}
	return data, nil
}
