package output_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/drover/pkg/infra/output"
)

func TestSink_WriterMode(t *testing.T) {
	var buf bytes.Buffer
	sink := output.NewWriter(&buf)

	gt.NoError(t, sink.Set("id", "123456"))
	gt.NoError(t, sink.Set("html_url", "https://example/releases/tag/v1.0.0"))

	gt.Value(t, buf.String()).Equal("id=123456\nhtml_url=https://example/releases/tag/v1.0.0\n")
}

func TestSink_FileModeAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output")
	t.Setenv("GITHUB_OUTPUT", path)
	sink := output.NewFromEnv()

	gt.NoError(t, sink.Set("id", "1"))
	gt.NoError(t, sink.Set("upload_url", "https://example/upload"))

	data, err := os.ReadFile(path)
	gt.NoError(t, err)
	gt.Value(t, string(data)).Equal("id=1\nupload_url=https://example/upload\n")
}

func TestSink_MultilineUsesHeredoc(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output")
	t.Setenv("GITHUB_OUTPUT", path)
	sink := output.NewFromEnv()

	gt.NoError(t, sink.Set("body", "line one\nline two"))

	data, err := os.ReadFile(path)
	gt.NoError(t, err)
	gt.String(t, string(data)).Contains("body<<")
	gt.String(t, string(data)).Contains("line one\nline two\n")
}
