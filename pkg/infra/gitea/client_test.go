package gitea_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/m-mizutani/drover/pkg/infra/gitea"
)

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"bare host", "https://git.example.com", "https://git.example.com/api/v1"},
		{"trailing slash", "https://git.example.com/", "https://git.example.com/api/v1"},
		{"existing api path", "https://git.example.com/api/v1", "https://git.example.com/api/v1"},
		{"old api version", "https://git.example.com/api/v2/", "https://git.example.com/api/v1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, gitea.NormalizeBaseURL(tt.in)).Equal(tt.expected)
		})
	}
}

func jsonDecode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func TestClient_CreateRelease_TagMustExistFirst(t *testing.T) {
	var calls []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch {
		case r.URL.Path == "/api/v1/repos/acme/tool/tags/v1.0.0":
			http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
		case r.URL.Path == "/api/v1/repos/acme/tool" && r.Method == http.MethodGet:
			w.Write([]byte(`{"default_branch": "main"}`))
		case r.URL.Path == "/api/v1/repos/acme/tool/branches/main":
			w.Write([]byte(`{"commit": {"id": "headsha"}}`))
		case r.URL.Path == "/api/v1/repos/acme/tool/tags" && r.Method == http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"name": "v1.0.0"}`))
		case r.URL.Path == "/api/v1/repos/acme/tool/releases" && r.Method == http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id": 10, "tag_name": "v1.0.0", "html_url": "https://git.example/acme/tool/releases/tag/v1.0.0"}`))
		default:
			t.Errorf("unexpected call: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	// No explicit commit and no environment SHA forces the
	// default-branch lookup.
	c := gitea.New("token", "acme", "tool", server.URL, &model.Environment{})
	result, err := c.CreateRelease(context.Background(), &model.ReleaseConfig{Tag: "v1.0.0"})

	gt.NoError(t, err)
	gt.Value(t, result.ID).Equal("10")

	gt.Array(t, calls).Equal([]string{
		"GET /api/v1/repos/acme/tool/tags/v1.0.0",
		"GET /api/v1/repos/acme/tool",
		"GET /api/v1/repos/acme/tool/branches/main",
		"POST /api/v1/repos/acme/tool/tags",
		"POST /api/v1/repos/acme/tool/releases",
	})
}

func TestClient_CreateRelease_EnvironmentSHASkipsLookup(t *testing.T) {
	var tagTarget string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v1/repos/acme/tool/tags/v1.0.0":
			http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
		case r.URL.Path == "/api/v1/repos/acme/tool/tags" && r.Method == http.MethodPost:
			var payload map[string]string
			gt.NoError(t, jsonDecode(r, &payload))
			tagTarget = payload["target"]
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"name": "v1.0.0"}`))
		case r.URL.Path == "/api/v1/repos/acme/tool/releases":
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id": 11, "tag_name": "v1.0.0"}`))
		default:
			t.Errorf("unexpected call: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	env := &model.Environment{SHA: "envsha"}
	c := gitea.New("token", "acme", "tool", server.URL, env)
	_, err := c.CreateRelease(context.Background(), &model.ReleaseConfig{Tag: "v1.0.0"})

	gt.NoError(t, err)
	gt.Value(t, tagTarget).Equal("envsha")
}

func TestClient_CreateRelease_EmptyResponseConfirmedByPolling(t *testing.T) {
	lookups := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v1/repos/acme/tool/tags/v1.0.0":
			w.Write([]byte(`{"name": "v1.0.0"}`))
		case r.URL.Path == "/api/v1/repos/acme/tool/releases" && r.Method == http.MethodPost:
			// Create succeeds but the body is empty.
			w.WriteHeader(http.StatusCreated)
		case r.URL.Path == "/api/v1/repos/acme/tool/releases/tags/v1.0.0":
			lookups++
			if lookups < 3 {
				http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
				return
			}
			w.Write([]byte(`{"id": 12, "tag_name": "v1.0.0"}`))
		case r.URL.Path == "/api/v1/repos/acme/tool/releases" && r.Method == http.MethodGet:
			w.Write([]byte(`[]`))
		default:
			t.Errorf("unexpected call: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	c := gitea.New("token", "acme", "tool", server.URL, &model.Environment{},
		gitea.WithConfirmPolicy(5, time.Millisecond))
	result, err := c.CreateRelease(context.Background(), &model.ReleaseConfig{Tag: "v1.0.0"})

	gt.NoError(t, err)
	gt.Value(t, result.ID).Equal("12")
	gt.Number(t, lookups).Equal(3)
}

func TestClient_CreateRelease_UnconfirmedIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v1/repos/acme/tool/tags/v1.0.0":
			w.Write([]byte(`{"name": "v1.0.0"}`))
		case r.URL.Path == "/api/v1/repos/acme/tool/releases" && r.Method == http.MethodPost:
			w.WriteHeader(http.StatusCreated)
		case r.URL.Path == "/api/v1/repos/acme/tool/releases/tags/v1.0.0":
			http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
		case r.URL.Path == "/api/v1/repos/acme/tool/releases" && r.Method == http.MethodGet:
			w.Write([]byte(`[]`))
		default:
			t.Errorf("unexpected call: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	c := gitea.New("token", "acme", "tool", server.URL, &model.Environment{},
		gitea.WithConfirmPolicy(2, time.Millisecond))
	_, err := c.CreateRelease(context.Background(), &model.ReleaseConfig{Tag: "v1.0.0"})

	gt.Error(t, err)
	gt.String(t, err.Error()).Contains("could not be confirmed")
}

func TestClient_UploadAsset_Multipart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tool.tar.gz")
	gt.NoError(t, os.WriteFile(path, []byte("gitea-bytes"), 0644))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.Value(t, r.Method).Equal(http.MethodPost)
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data; boundary=") {
			t.Errorf("expected multipart content type, got %q", r.Header.Get("Content-Type"))
		}

		gt.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("attachment")
		gt.NoError(t, err)
		defer file.Close()
		gt.Value(t, header.Filename).Equal("tool.tar.gz")

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 3, "name": "tool.tar.gz", "browser_download_url": "https://git.example/dl/tool.tar.gz"}`))
	}))
	defer server.Close()

	c := gitea.New("token", "acme", "tool", server.URL, &model.Environment{})
	uploadURL := server.URL + "/api/v1/repos/acme/tool/releases/10/assets"
	url, err := c.UploadAsset(context.Background(), "10", uploadURL, &model.AssetConfig{
		Path:        path,
		Name:        "tool.tar.gz",
		ContentType: "application/gzip",
	})

	gt.NoError(t, err)
	gt.Value(t, url).Equal("https://git.example/dl/tool.tar.gz")
}

func TestClient_ListAssets_ByTagHasNoIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.Value(t, r.URL.Path).Equal("/api/v1/repos/acme/tool/releases/tags/v1.0.0")
		w.Write([]byte(`{
			"id": 10,
			"tag_name": "v1.0.0",
			"assets": [
				{"id": 1, "name": "a.tar.gz", "browser_download_url": "https://git.example/dl/a.tar.gz"},
				{"id": 2, "name": "b.tar.gz", "browser_download_url": "https://git.example/dl/b.tar.gz"}
			]
		}`))
	}))
	defer server.Close()

	c := gitea.New("token", "acme", "tool", server.URL, &model.Environment{})
	assets, err := c.ListAssets(context.Background(), "v1.0.0")

	gt.NoError(t, err)
	gt.Number(t, len(assets)).Equal(2)

	sort.Slice(assets, func(i, j int) bool { return assets[i].Name < assets[j].Name })
	gt.Value(t, assets[0].Name).Equal("a.tar.gz")
	// The by-tag listing cannot expose real asset ids.
	gt.Value(t, assets[0].ID).Equal("")
	gt.Value(t, assets[1].ID).Equal("")
}

func TestClient_ListAssets_FallsBackToIDEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/repos/acme/tool/releases/tags/10":
			http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
		case "/api/v1/repos/acme/tool/releases/10/assets":
			w.Write([]byte(`[{"id": 5, "name": "a.tar.gz", "browser_download_url": "https://git.example/dl/a.tar.gz"}]`))
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	c := gitea.New("token", "acme", "tool", server.URL, &model.Environment{})
	assets, err := c.ListAssets(context.Background(), "10")

	gt.NoError(t, err)
	gt.Number(t, len(assets)).Equal(1)
	gt.Value(t, assets[0].ID).Equal("10/5")
}

func TestClient_DeleteAsset(t *testing.T) {
	var deleted string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.Value(t, r.Method).Equal(http.MethodDelete)
		deleted = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := gitea.New("token", "acme", "tool", server.URL, &model.Environment{})

	gt.NoError(t, c.DeleteAsset(context.Background(), "10/5"))
	gt.Value(t, deleted).Equal("/api/v1/repos/acme/tool/releases/10/assets/5")

	err := c.DeleteAsset(context.Background(), "")
	gt.Error(t, err)
	if types.IsNotFound(err) {
		t.Error("missing asset id is a local error, not a backend not-found")
	}
}

func TestClient_GenerateReleaseNotes_Unsupported(t *testing.T) {
	c := gitea.New("token", "acme", "tool", "https://git.example.com", &model.Environment{})
	notes, err := c.GenerateReleaseNotes(context.Background(), "v1.0.0", "")

	gt.NoError(t, err)
	gt.Value(t, notes).Equal("")
}
