package types

import "github.com/m-mizutani/goerr/v2"

// Error tags classify failures across the provider and orchestration layers.
// Absence detection is tag-based: callers check IsNotFound instead of
// inspecting error message text.
var (
	// TagConfig marks invalid or missing configuration; no provider call
	// has been attempted when this is raised.
	TagConfig = goerr.NewTag("config")

	// TagHTTP marks a non-2xx response from a backend.
	TagHTTP = goerr.NewTag("http")

	// TagNotFound marks a 404 from a backend. Not an error condition for
	// release lookup; providers translate it into an absent result.
	TagNotFound = goerr.NewTag("not_found")

	// TagMalformedResponse marks a 2xx response whose body could not be
	// decoded.
	TagMalformedResponse = goerr.NewTag("malformed_response")

	// TagAsset marks a local artifact problem (missing file, not a
	// regular file) detected before any network call.
	TagAsset = goerr.NewTag("asset")

	// TagUnconfirmed marks a release that was created server-side but
	// whose identity could not be confirmed after exhausting retries.
	TagUnconfirmed = goerr.NewTag("unconfirmed")
)

// IsNotFound reports whether err represents a backend not-found response.
func IsNotFound(err error) bool {
	return goerr.HasTag(err, TagNotFound)
}
