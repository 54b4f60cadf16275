package model_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/drover/pkg/domain/model"
)

func TestWithAssets_MergesWithoutMutating(t *testing.T) {
	original := &model.ReleaseResult{
		ID:     "1",
		Assets: map[string]string{"old.tar.gz": "https://example/old"},
	}

	merged := original.WithAssets(map[string]string{
		"new.tar.gz": "https://example/new",
		"old.tar.gz": "https://example/old-v2",
	})

	gt.Number(t, len(merged.Assets)).Equal(2)
	gt.Value(t, merged.Assets["old.tar.gz"]).Equal("https://example/old-v2")
	gt.Value(t, merged.Assets["new.tar.gz"]).Equal("https://example/new")

	gt.Number(t, len(original.Assets)).Equal(1)
	gt.Value(t, original.Assets["old.tar.gz"]).Equal("https://example/old")
}

func TestNewAssetConfig_Defaults(t *testing.T) {
	asset := model.NewAssetConfig("/tmp/dist/tool.tar.gz", "")

	gt.Value(t, asset.Name).Equal("tool.tar.gz")
	gt.Value(t, asset.ContentType).Equal(model.DefaultContentType)

	typed := model.NewAssetConfig("/tmp/dist/tool.tar.gz", "application/gzip")
	gt.Value(t, typed.ContentType).Equal("application/gzip")
}

func TestAssetConfig_Validate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tool.tar.gz")
	gt.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	gt.NoError(t, model.NewAssetConfig(path, "").Validate())
	gt.Error(t, model.NewAssetConfig(filepath.Join(dir, "missing"), "").Validate())
	gt.Error(t, model.NewAssetConfig(dir, "").Validate())
}
