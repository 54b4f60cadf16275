package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/drover/pkg/domain/interfaces"
)

// delimiter for multiline values in the outputs-file format.
const heredocDelimiter = "_DroverOutput_"

// Sink writes pipeline outputs. When path is set, values are appended to
// that file in the runner's outputs-file format; otherwise key=value lines
// go to w.
type Sink struct {
	path string
	w    io.Writer
}

// NewFromEnv returns a sink writing to the file named by $GITHUB_OUTPUT,
// falling back to stdout when it is unset.
func NewFromEnv() interfaces.OutputSink {
	if path := os.Getenv("GITHUB_OUTPUT"); path != "" {
		return &Sink{path: path}
	}
	return &Sink{w: os.Stdout}
}

// NewWriter returns a sink writing key=value lines to w.
func NewWriter(w io.Writer) interfaces.OutputSink {
	return &Sink{w: w}
}

// Set records one output value.
func (s *Sink) Set(key, value string) error {
	if s.path == "" {
		_, err := fmt.Fprintf(s.w, "%s=%s\n", key, value)
		return err
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return goerr.Wrap(err, "failed to open outputs file", goerr.V("path", s.path))
	}
	defer f.Close()

	var line string
	if strings.Contains(value, "\n") {
		line = fmt.Sprintf("%s<<%s\n%s\n%s\n", key, heredocDelimiter, value, heredocDelimiter)
	} else {
		line = fmt.Sprintf("%s=%s\n", key, value)
	}

	if _, err := f.WriteString(line); err != nil {
		return goerr.Wrap(err, "failed to write output", goerr.V("key", key))
	}
	return nil
}
