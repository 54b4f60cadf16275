package model

// ActionInputs is the fully-resolved configuration for one run. It is
// constructed by the CLI layer from flags and environment sources; the
// orchestrator treats it as an already-validated record.
type ActionInputs struct {
	Tag        string
	Name       string
	Body       string
	Draft      bool
	Prerelease bool
	Commit     string

	// Artifact handling
	Artifacts               string // comma-separated glob patterns
	ArtifactContentType     string
	ReplacesArtifacts       bool
	RemoveArtifacts         bool
	ArtifactErrorsFailBuild bool

	// Update policy
	AllowUpdates         bool
	SkipIfReleaseExists  bool
	UpdateOnlyUnreleased bool

	// Release notes generation
	GenerateReleaseNotes bool
	NotesPreviousTag     string

	// Per-field payload omission. The DuringUpdate variants apply only
	// when an existing release is being updated.
	OmitName                   bool
	OmitNameDuringUpdate       bool
	OmitBody                   bool
	OmitBodyDuringUpdate       bool
	OmitDraft                  bool
	OmitDraftDuringUpdate      bool
	OmitPrerelease             bool
	OmitPrereleaseDuringUpdate bool
}

// ReleaseConfig builds the outgoing payload from the inputs, applying the
// per-field omission rules. existing indicates whether the payload targets
// an already-existing release (update) rather than a creation.
func (x *ActionInputs) ReleaseConfig(existing bool) *ReleaseConfig {
	cfg := &ReleaseConfig{
		Tag:    x.Tag,
		Commit: x.Commit,
	}

	if !x.omitted(x.OmitName, x.OmitNameDuringUpdate, existing) {
		name := x.Name
		if name == "" {
			name = x.Tag
		}
		cfg.Name = &name
	}
	if !x.omitted(x.OmitBody, x.OmitBodyDuringUpdate, existing) {
		body := x.Body
		cfg.Body = &body
	}
	if !x.omitted(x.OmitDraft, x.OmitDraftDuringUpdate, existing) {
		draft := x.Draft
		cfg.Draft = &draft
	}
	if !x.omitted(x.OmitPrerelease, x.OmitPrereleaseDuringUpdate, existing) {
		prerelease := x.Prerelease
		cfg.Prerelease = &prerelease
	}

	return cfg
}

func (x *ActionInputs) omitted(always, duringUpdate, existing bool) bool {
	return always || (existing && duringUpdate)
}
