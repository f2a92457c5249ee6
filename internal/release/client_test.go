package release

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const releasesJSON = `[
  {
    "tag_name": "11.5",
    "name": "11.5",
    "draft": false,
    "prerelease": false,
    "published_at": "2023-12-03T12:00:00Z",
    "assets": [
      {"name": "love-11.5-win64.zip", "browser_download_url": "%[1]s/dl/love-11.5-win64.zip", "size": 12},
      {"name": "love-11.5-x86_64.AppImage", "browser_download_url": "%[1]s/dl/love-11.5-x86_64.AppImage", "size": 8},
      {"name": "source.tar.gz", "browser_download_url": "%[1]s/dl/source.tar.gz", "size": 4}
    ]
  },
  {"tag_name": "11.4", "draft": false, "prerelease": false, "published_at": null, "assets": []}
]`

func TestReleasesDecodesAndClassifies(t *testing.T) {
	var gotPath, gotAccept, gotUA, gotAuth string
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAccept = r.Header.Get("Accept")
		gotUA = r.Header.Get("User-Agent")
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprintf(w, releasesJSON, srv.URL)
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL, UserAgent: "lbt-test", Token: "secret"})
	releases, err := client.Releases(context.Background(), "love2d", "love")
	if err != nil {
		t.Fatalf("Releases: %v", err)
	}

	if gotPath != "/repos/love2d/love/releases" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotAccept != acceptJSON || gotUA != "lbt-test" || gotAuth != "Bearer secret" {
		t.Fatalf("unexpected headers accept=%q ua=%q auth=%q", gotAccept, gotUA, gotAuth)
	}
	if len(releases) != 2 {
		t.Fatalf("expected 2 releases, got %d", len(releases))
	}

	assets := releases[0].Assets
	want := []AssetType{AssetWin64, AssetLinux, AssetOther}
	for i, a := range assets {
		if a.Type != want[i] {
			t.Fatalf("asset %s classified %s, want %s", a.Name, a.Type, want[i])
		}
	}
	if releases[0].PublishedAt.IsZero() {
		t.Fatal("expected published_at to decode")
	}
}

func TestReleasesStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"API rate limit exceeded"}`))
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL})
	_, err := client.Releases(context.Background(), "love2d", "love")
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %T", err)
	}
	if se.Code != http.StatusForbidden || !strings.Contains(se.Body, "rate limit") {
		t.Fatalf("unexpected status error %+v", se)
	}
}

func TestReleasesTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	client := NewClient(Options{BaseURL: base})
	_, err := client.Releases(context.Background(), "love2d", "love")
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("token must not leak to a foreign host")
		}
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: "https://api.github.com", Token: "secret"})
	dest := filepath.Join(t.TempDir(), "nested", "asset.zip")
	if err := client.Download(context.Background(), srv.URL+"/asset.zip", dest); err != nil {
		t.Fatalf("Download: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestDownloadNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL})
	dest := filepath.Join(t.TempDir(), "asset.zip")
	err := client.Download(context.Background(), srv.URL+"/missing.zip", dest)
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Fatalf("failed download must not create %s", dest)
	}
}
