package gitea

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"regexp"
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
	acceptHeader = "application/json"

	// Immediately after creation Gitea may return an empty body even
	// though the release exists server-side; the confirmation poll
	// covers that window.
	defaultConfirmAttempts = 10
	defaultConfirmInitial  = 500 * time.Millisecond
	defaultConfirmMax      = 8 * time.Second

	listPageSize = 50

	// Multipart field name Gitea expects for attachment uploads.
	attachmentField = "attachment"
)

var apiVersionSuffix = regexp.MustCompile(`/api/v\d+/?$`)

// NormalizeBaseURL strips any API version path segment from a caller
// supplied base URL and re-appends the canonical one.
func NormalizeBaseURL(raw string) string {
	trimmed := strings.TrimSuffix(raw, "/")
	trimmed = apiVersionSuffix.ReplaceAllString(trimmed, "")
	return trimmed + "/api/v1"
}

type client struct {
	rest    *rest.Client
	baseURL string
	owner   string
	repo    string
	env     *model.Environment
	confirm retry.Policy
}

// Option configures the Gitea client.
type Option func(*options)

type options struct {
	confirm  retry.Policy
	restOpts []rest.Option
}

// WithConfirmPolicy overrides the create-confirmation retry bounds.
func WithConfirmPolicy(attempts int, initial time.Duration) Option {
	return func(o *options) {
		if attempts > 0 {
			o.confirm.Attempts = attempts
		}
		if initial > 0 {
			o.confirm.Initial = initial
		}
	}
}

// WithInsecureSkipVerify disables TLS certificate verification, common
// for self-signed self-hosted instances.
func WithInsecureSkipVerify() Option {
	return func(o *options) {
		o.restOpts = append(o.restOpts, rest.WithInsecureSkipVerify())
	}
}

// New creates a Gitea release provider for owner/repo at the given
// instance base URL. env supplies the commit SHA fallback used when a tag
// has to be created and no explicit commit is configured.
func New(token, owner, repo, baseURL string, env *model.Environment, opts ...Option) interfaces.ReleaseProvider {
	o := &options{
		confirm: retry.Exponential(defaultConfirmAttempts, defaultConfirmInitial, defaultConfirmMax),
	}
	for _, opt := range opts {
		opt(o)
	}

	restOpts := append([]rest.Option{rest.WithAccept(acceptHeader)}, o.restOpts...)
	return &client{
		rest:    rest.New(token, restOpts...),
		baseURL: NormalizeBaseURL(baseURL),
		owner:   owner,
		repo:    repo,
		env:     env,
		confirm: o.confirm,
	}
}

func (c *client) repoURL(format string, args ...any) string {
	return fmt.Sprintf("%s/repos/%s/%s", c.baseURL, c.owner, c.repo) + fmt.Sprintf(format, args...)
}

// release is the Gitea API representation of a release.
type release struct {
	ID         int64   `json:"id"`
	TagName    string  `json:"tag_name"`
	HTMLURL    string  `json:"html_url"`
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

func (r *release) toResult(uploadURL string) *model.ReleaseResult {
	assets := make(map[string]string, len(r.Assets))
	for _, a := range r.Assets {
		assets[a.Name] = a.BrowserDownloadURL
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

// uploadURL is derived rather than echoed by the API.
func (c *client) uploadURL(releaseID int64) string {
	return c.repoURL("/releases/%d/assets", releaseID)
}

type releasePayload struct {
	TagName         string  `json:"tag_name,omitempty"`
	TargetCommitish string  `json:"target_commitish,omitempty"`
	Name            *string `json:"name,omitempty"`
	Body            *string `json:"body,omitempty"`
	Draft           *bool   `json:"draft,omitempty"`
	Prerelease      *bool   `json:"prerelease,omitempty"`
}

func (c *client) CreateRelease(ctx context.Context, cfg *model.ReleaseConfig) (*model.ReleaseResult, error) {
	// Gitea requires the tag to exist before a release can reference it.
	if err := c.ensureTag(ctx, cfg); err != nil {
		return nil, err
	}

	payload := releasePayload{
		TagName:    cfg.Tag,
		Name:       cfg.Name,
		Body:       cfg.Body,
		Draft:      cfg.Draft,
		Prerelease: cfg.Prerelease,
	}

	var rel release
	if _, err := c.rest.JSON(ctx, http.MethodPost, c.repoURL("/releases"), payload, &rel); err != nil {
		return nil, goerr.Wrap(err, "failed to create release", goerr.V("tag", cfg.Tag))
	}

	if rel.ID != 0 {
		return rel.toResult(c.uploadURL(rel.ID)), nil
	}

	// The create succeeded but the response body was empty. Poll until
	// the release becomes visible, or give up loudly: returning a
	// half-empty result would corrupt downstream output consumption.
	ctxlog.From(ctx).Warn("release created but response was empty, polling for confirmation",
		"tag", cfg.Tag)
	return c.confirmCreated(ctx, cfg.Tag)
}

func (c *client) confirmCreated(ctx context.Context, tag string) (*model.ReleaseResult, error) {
	found, err := retry.Do(ctx, c.confirm,
		func(ctx context.Context) (*model.ReleaseResult, bool, error) {
			rel, err := c.GetReleaseByTag(ctx, tag)
			if err != nil {
				return nil, false, err
			}
			if rel != nil {
				return rel, true, nil
			}

			listed, err := c.findInList(ctx, tag)
			if err != nil {
				return nil, false, err
			}
			return listed, listed != nil, nil
		})
	if err != nil {
		if errors.Is(err, retry.ErrExhausted) {
			return nil, goerr.New("release was created but could not be confirmed",
				goerr.T(types.TagUnconfirmed), goerr.V("tag", tag))
		}
		return nil, err
	}
	return found, nil
}

func (c *client) findInList(ctx context.Context, tag string) (*model.ReleaseResult, error) {
	var releases []release
	listURL := c.repoURL("/releases?limit=%d", listPageSize)
	if _, err := c.rest.JSON(ctx, http.MethodGet, listURL, nil, &releases); err != nil {
		return nil, goerr.Wrap(err, "failed to list releases", goerr.V("tag", tag))
	}
	for i := range releases {
		if releases[i].TagName == tag {
			return releases[i].toResult(c.uploadURL(releases[i].ID)), nil
		}
	}
	return nil, nil
}

// ensureTag creates cfg.Tag when it does not exist yet, resolving the
// target commit from the explicit config, then the CI environment, then
// the repository's default branch HEAD.
func (c *client) ensureTag(ctx context.Context, cfg *model.ReleaseConfig) error {
	var existing struct {
		Name string `json:"name"`
	}
	_, err := c.rest.JSON(ctx, http.MethodGet, c.repoURL("/tags/%s", url.PathEscape(cfg.Tag)), nil, &existing)
	if err == nil {
		return nil
	}
	if !types.IsNotFound(err) {
		return goerr.Wrap(err, "failed to check tag existence", goerr.V("tag", cfg.Tag))
	}

	commit, err := c.resolveCommit(ctx, cfg)
	if err != nil {
		return err
	}

	ctxlog.From(ctx).Info("creating tag before release",
		"tag", cfg.Tag, "commit", commit)
	return c.CreateTag(ctx, cfg.Tag, commit, "Release "+cfg.Tag)
}

func (c *client) resolveCommit(ctx context.Context, cfg *model.ReleaseConfig) (string, error) {
	if cfg.Commit != "" {
		return cfg.Commit, nil
	}
	if c.env != nil && c.env.SHA != "" {
		return c.env.SHA, nil
	}

	// Last resort: the default branch HEAD, via two chained lookups.
	var repoMeta struct {
		DefaultBranch string `json:"default_branch"`
	}
	if _, err := c.rest.JSON(ctx, http.MethodGet, c.repoURL(""), nil, &repoMeta); err != nil {
		return "", goerr.Wrap(err, "failed to fetch repository metadata")
	}
	if repoMeta.DefaultBranch == "" {
		return "", goerr.New("repository has no default branch",
			goerr.V("owner", c.owner), goerr.V("repo", c.repo))
	}

	var branch struct {
		Commit struct {
			ID string `json:"id"`
		} `json:"commit"`
	}
	branchURL := c.repoURL("/branches/%s", url.PathEscape(repoMeta.DefaultBranch))
	if _, err := c.rest.JSON(ctx, http.MethodGet, branchURL, nil, &branch); err != nil {
		return "", goerr.Wrap(err, "failed to fetch default branch",
			goerr.V("branch", repoMeta.DefaultBranch))
	}
	if branch.Commit.ID == "" {
		return "", goerr.New("default branch has no commit",
			goerr.V("branch", repoMeta.DefaultBranch))
	}

	return branch.Commit.ID, nil
}

func (c *client) UpdateRelease(ctx context.Context, id string, cfg *model.ReleaseConfig) (*model.ReleaseResult, error) {
	payload := releasePayload{
		Name:       cfg.Name,
		Body:       cfg.Body,
		Draft:      cfg.Draft,
		Prerelease: cfg.Prerelease,
	}

	var rel release
	if _, err := c.rest.JSON(ctx, http.MethodPatch, c.repoURL("/releases/%s", id), payload, &rel); err != nil {
		return nil, goerr.Wrap(err, "failed to update release", goerr.V("id", id))
	}

	return rel.toResult(c.uploadURL(rel.ID)), nil
}

func (c *client) GetReleaseByTag(ctx context.Context, tag string) (*model.ReleaseResult, error) {
	var rel release
	_, err := c.rest.JSON(ctx, http.MethodGet, c.repoURL("/releases/tags/%s", url.PathEscape(tag)), nil, &rel)
	if err != nil {
		if types.IsNotFound(err) {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get release by tag", goerr.V("tag", tag))
	}
	return rel.toResult(c.uploadURL(rel.ID)), nil
}

func (c *client) UploadAsset(ctx context.Context, releaseID, uploadURL string, assetCfg *model.AssetConfig) (string, error) {
	if err := assetCfg.Validate(); err != nil {
		return "", err
	}

	file, err := os.Open(assetCfg.Path)
	if err != nil {
		return "", goerr.Wrap(err, "failed to open asset file",
			goerr.T(types.TagAsset), goerr.V("path", assetCfg.Path))
	}
	defer file.Close()

	// The file travels as one multipart binary part; the writer's own
	// content type carries the boundary.
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name=%q; filename=%q`, attachmentField, assetCfg.Name))
	header.Set("Content-Type", assetCfg.ContentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create multipart body")
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", goerr.Wrap(err, "failed to buffer asset file",
			goerr.V("path", assetCfg.Path))
	}
	if err := mw.Close(); err != nil {
		return "", goerr.Wrap(err, "failed to finalize multipart body")
	}

	target := uploadURL + "?name=" + url.QueryEscape(assetCfg.Name)
	req := rest.Request{
		Method: http.MethodPost,
		URL:    target,
		Header: http.Header{"Content-Type": []string{mw.FormDataContentType()}},
		Body:   &buf,
	}

	var uploaded asset
	if _, err := c.rest.Do(ctx, req, &uploaded); err != nil {
		return "", goerr.Wrap(err, "failed to upload asset",
			goerr.V("name", assetCfg.Name), goerr.V("release_id", releaseID))
	}

	return uploaded.BrowserDownloadURL, nil
}

// ListAssets resolves the identifier first as a tag, since Gitea's asset
// listing is only reliably available through the release-by-tag endpoint.
// Assets discovered that way carry an empty ID (the endpoint does not
// expose one) and cannot subsequently be deleted by id; this is a known
// backend limitation.
func (c *client) ListAssets(ctx context.Context, releaseID string) ([]model.Asset, error) {
	rel, err := c.GetReleaseByTag(ctx, releaseID)
	if err != nil {
		return nil, err
	}
	if rel != nil {
		out := make([]model.Asset, 0, len(rel.Assets))
		for name, dlURL := range rel.Assets {
			out = append(out, model.Asset{ID: "", Name: name, URL: dlURL})
		}
		return out, nil
	}

	var assets []asset
	if _, err := c.rest.JSON(ctx, http.MethodGet, c.repoURL("/releases/%s/assets", releaseID), nil, &assets); err != nil {
		return nil, goerr.Wrap(err, "failed to list assets", goerr.V("release_id", releaseID))
	}

	out := make([]model.Asset, 0, len(assets))
	for _, a := range assets {
		out = append(out, model.Asset{
			// Deletion needs both ids; keep them in one opaque handle.
			ID:   releaseID + "/" + strconv.FormatInt(a.ID, 10),
			Name: a.Name,
			URL:  a.BrowserDownloadURL,
		})
	}
	return out, nil
}

func (c *client) DeleteAsset(ctx context.Context, assetID string) error {
	if assetID == "" {
		return goerr.New("asset has no id and cannot be deleted",
			goerr.T(types.TagAsset))
	}

	releaseID, attachmentID, ok := strings.Cut(assetID, "/")
	if !ok {
		return goerr.New("malformed asset id", goerr.T(types.TagAsset),
			goerr.V("asset_id", assetID))
	}

	deleteURL := c.repoURL("/releases/%s/assets/%s", releaseID, attachmentID)
	if _, err := c.rest.JSON(ctx, http.MethodDelete, deleteURL, nil, nil); err != nil {
		return goerr.Wrap(err, "failed to delete asset", goerr.V("asset_id", assetID))
	}
	return nil
}

func (c *client) CreateTag(ctx context.Context, tag, commit, message string) error {
	// Gitea has no lightweight/annotated ref distinction; one call
	// creates the tag object at the target commit.
	payload := map[string]string{
		"tag_name": tag,
		"target":   commit,
		"message":  message,
	}
	status, err := c.rest.JSON(ctx, http.MethodPost, c.repoURL("/tags"), payload, nil)
	if err != nil {
		// 409 means the tag already exists, which is the desired state.
		if status == http.StatusConflict {
			ctxlog.From(ctx).Debug("tag already exists", "tag", tag)
			return nil
		}
		return goerr.Wrap(err, "failed to create tag",
			goerr.V("tag", tag), goerr.V("commit", commit))
	}
	return nil
}

// GenerateReleaseNotes is not supported by Gitea; it degrades to an empty
// body with a warning instead of failing the run.
func (c *client) GenerateReleaseNotes(ctx context.Context, tag, previousTag string) (string, error) {
	ctxlog.From(ctx).Warn("release notes generation is not supported by this backend",
		"tag", tag)
	return "", nil
}
