package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
)

// Release holds the release configuration. Every value can also arrive
// through the environment, both under the DROVER_ prefix and in the
// runner's INPUT_ convention.
type Release struct {
	Tag        string
	Name       string
	Body       string
	BodyFile   string
	Draft      bool
	Prerelease bool
	Commit     string

	Artifacts               string
	ArtifactContentType     string
	ReplacesArtifacts       bool
	RemoveArtifacts         bool
	ArtifactErrorsFailBuild bool

	AllowUpdates         bool
	SkipIfReleaseExists  bool
	UpdateOnlyUnreleased bool

	GenerateReleaseNotes bool
	NotesPreviousTag     string

	OmitName                   bool
	OmitNameDuringUpdate       bool
	OmitBody                   bool
	OmitBodyDuringUpdate       bool
	OmitDraft                  bool
	OmitDraftDuringUpdate      bool
	OmitPrerelease             bool
	OmitPrereleaseDuringUpdate bool
}

// Flags returns CLI flags for release configuration
func (c *Release) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "tag",
			Usage:       "Tag to release (defaults to the tag of the triggering ref)",
			Destination: &c.Tag,
			Sources:     cli.EnvVars("DROVER_TAG", "INPUT_TAG"),
		},
		&cli.StringFlag{
			Name:        "name",
			Usage:       "Release title (defaults to the tag)",
			Destination: &c.Name,
			Sources:     cli.EnvVars("DROVER_NAME", "INPUT_NAME"),
		},
		&cli.StringFlag{
			Name:        "body",
			Usage:       "Release description text",
			Destination: &c.Body,
			Sources:     cli.EnvVars("DROVER_BODY", "INPUT_BODY"),
		},
		&cli.StringFlag{
			Name:        "body-file",
			Usage:       "File to read the release description from (takes precedence over --body)",
			Destination: &c.BodyFile,
			Sources:     cli.EnvVars("DROVER_BODY_FILE", "INPUT_BODYFILE"),
		},
		&cli.BoolFlag{
			Name:        "draft",
			Usage:       "Mark the release as a draft",
			Destination: &c.Draft,
			Sources:     cli.EnvVars("DROVER_DRAFT", "INPUT_DRAFT"),
		},
		&cli.BoolFlag{
			Name:        "prerelease",
			Usage:       "Mark the release as a prerelease",
			Destination: &c.Prerelease,
			Sources:     cli.EnvVars("DROVER_PRERELEASE", "INPUT_PRERELEASE"),
		},
		&cli.StringFlag{
			Name:        "commit",
			Usage:       "Commit to tag when the tag does not exist yet",
			Destination: &c.Commit,
			Sources:     cli.EnvVars("DROVER_COMMIT", "INPUT_COMMIT"),
		},
		&cli.StringFlag{
			Name:        "artifacts",
			Usage:       "Comma-separated glob patterns of artifacts to upload",
			Destination: &c.Artifacts,
			Sources:     cli.EnvVars("DROVER_ARTIFACTS", "INPUT_ARTIFACTS"),
		},
		&cli.StringFlag{
			Name:        "artifact-content-type",
			Usage:       "Content type for uploaded artifacts",
			Value:       model.DefaultContentType,
			Destination: &c.ArtifactContentType,
			Sources:     cli.EnvVars("DROVER_ARTIFACT_CONTENT_TYPE", "INPUT_ARTIFACTCONTENTTYPE"),
		},
		&cli.BoolFlag{
			Name:        "replaces-artifacts",
			Usage:       "Delete existing assets that collide with uploaded artifact names",
			Value:       true,
			Destination: &c.ReplacesArtifacts,
			Sources:     cli.EnvVars("DROVER_REPLACES_ARTIFACTS", "INPUT_REPLACESARTIFACTS"),
		},
		&cli.BoolFlag{
			Name:        "remove-artifacts",
			Usage:       "Delete all existing assets before uploading",
			Destination: &c.RemoveArtifacts,
			Sources:     cli.EnvVars("DROVER_REMOVE_ARTIFACTS", "INPUT_REMOVEARTIFACTS"),
		},
		&cli.BoolFlag{
			Name:        "artifact-errors-fail-build",
			Usage:       "Fail the run on any artifact-stage error instead of skipping",
			Destination: &c.ArtifactErrorsFailBuild,
			Sources:     cli.EnvVars("DROVER_ARTIFACT_ERRORS_FAIL_BUILD", "INPUT_ARTIFACTERRORSFAILBUILD"),
		},
		&cli.BoolFlag{
			Name:        "allow-updates",
			Usage:       "Update the release when one already exists for the tag",
			Destination: &c.AllowUpdates,
			Sources:     cli.EnvVars("DROVER_ALLOW_UPDATES", "INPUT_ALLOWUPDATES"),
		},
		&cli.BoolFlag{
			Name:        "skip-if-release-exists",
			Usage:       "Do nothing when a published release already exists for the tag",
			Destination: &c.SkipIfReleaseExists,
			Sources:     cli.EnvVars("DROVER_SKIP_IF_RELEASE_EXISTS", "INPUT_SKIPIFRELEASEEXISTS"),
		},
		&cli.BoolFlag{
			Name:        "update-only-unreleased",
			Usage:       "Refuse to update a release that is already published",
			Destination: &c.UpdateOnlyUnreleased,
			Sources:     cli.EnvVars("DROVER_UPDATE_ONLY_UNRELEASED", "INPUT_UPDATEONLYUNRELEASED"),
		},
		&cli.BoolFlag{
			Name:        "generate-release-notes",
			Usage:       "Generate release notes when the backend supports it",
			Destination: &c.GenerateReleaseNotes,
			Sources:     cli.EnvVars("DROVER_GENERATE_RELEASE_NOTES", "INPUT_GENERATERELEASENOTES"),
		},
		&cli.StringFlag{
			Name:        "generate-release-notes-previous-tag",
			Usage:       "Previous tag to diff against for generated notes",
			Destination: &c.NotesPreviousTag,
			Sources:     cli.EnvVars("DROVER_NOTES_PREVIOUS_TAG", "INPUT_GENERATERELEASENOTESPREVIOUSTAG"),
		},
		&cli.BoolFlag{
			Name:        "omit-name",
			Usage:       "Never send the release name",
			Destination: &c.OmitName,
			Sources:     cli.EnvVars("DROVER_OMIT_NAME", "INPUT_OMITNAME"),
		},
		&cli.BoolFlag{
			Name:        "omit-name-during-update",
			Usage:       "Do not send the release name when updating",
			Destination: &c.OmitNameDuringUpdate,
			Sources:     cli.EnvVars("DROVER_OMIT_NAME_DURING_UPDATE", "INPUT_OMITNAMEDURINGUPDATE"),
		},
		&cli.BoolFlag{
			Name:        "omit-body",
			Usage:       "Never send the release body",
			Destination: &c.OmitBody,
			Sources:     cli.EnvVars("DROVER_OMIT_BODY", "INPUT_OMITBODY"),
		},
		&cli.BoolFlag{
			Name:        "omit-body-during-update",
			Usage:       "Do not send the release body when updating",
			Destination: &c.OmitBodyDuringUpdate,
			Sources:     cli.EnvVars("DROVER_OMIT_BODY_DURING_UPDATE", "INPUT_OMITBODYDURINGUPDATE"),
		},
		&cli.BoolFlag{
			Name:        "omit-draft",
			Usage:       "Never send the draft flag",
			Destination: &c.OmitDraft,
			Sources:     cli.EnvVars("DROVER_OMIT_DRAFT", "INPUT_OMITDRAFT"),
		},
		&cli.BoolFlag{
			Name:        "omit-draft-during-update",
			Usage:       "Do not send the draft flag when updating",
			Destination: &c.OmitDraftDuringUpdate,
			Sources:     cli.EnvVars("DROVER_OMIT_DRAFT_DURING_UPDATE", "INPUT_OMITDRAFTDURINGUPDATE"),
		},
		&cli.BoolFlag{
			Name:        "omit-prerelease",
			Usage:       "Never send the prerelease flag",
			Destination: &c.OmitPrerelease,
			Sources:     cli.EnvVars("DROVER_OMIT_PRERELEASE", "INPUT_OMITPRERELEASE"),
		},
		&cli.BoolFlag{
			Name:        "omit-prerelease-during-update",
			Usage:       "Do not send the prerelease flag when updating",
			Destination: &c.OmitPrereleaseDuringUpdate,
			Sources:     cli.EnvVars("DROVER_OMIT_PRERELEASE_DURING_UPDATE", "INPUT_OMITPRERELEASEDURINGUPDATE"),
		},
	}
}

// Inputs resolves the configuration into the orchestrator's input record,
// loading the body file when one is configured.
func (c *Release) Inputs() (*model.ActionInputs, error) {
	body := c.Body
	if c.BodyFile != "" {
		data, err := os.ReadFile(c.BodyFile)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read body file",
				goerr.T(types.TagConfig), goerr.V("path", c.BodyFile))
		}
		body = string(data)
	}

	return &model.ActionInputs{
		Tag:        c.Tag,
		Name:       c.Name,
		Body:       body,
		Draft:      c.Draft,
		Prerelease: c.Prerelease,
		Commit:     c.Commit,

		Artifacts:               c.Artifacts,
		ArtifactContentType:     c.ArtifactContentType,
		ReplacesArtifacts:       c.ReplacesArtifacts,
		RemoveArtifacts:         c.RemoveArtifacts,
		ArtifactErrorsFailBuild: c.ArtifactErrorsFailBuild,

		AllowUpdates:         c.AllowUpdates,
		SkipIfReleaseExists:  c.SkipIfReleaseExists,
		UpdateOnlyUnreleased: c.UpdateOnlyUnreleased,

		GenerateReleaseNotes: c.GenerateReleaseNotes,
		NotesPreviousTag:     c.NotesPreviousTag,

		OmitName:                   c.OmitName,
		OmitNameDuringUpdate:       c.OmitNameDuringUpdate,
		OmitBody:                   c.OmitBody,
		OmitBodyDuringUpdate:       c.OmitBodyDuringUpdate,
		OmitDraft:                  c.OmitDraft,
		OmitDraftDuringUpdate:      c.OmitDraftDuringUpdate,
		OmitPrerelease:             c.OmitPrerelease,
		OmitPrereleaseDuringUpdate: c.OmitPrereleaseDuringUpdate,
	}, nil
}
