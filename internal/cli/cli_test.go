package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"lbt/internal/archive"
	"lbt/internal/framework"
	"lbt/internal/release"
)

const fakeReleases = `[
  {
    "tag_name": "11.5",
    "name": "LÖVE 11.5",
    "prerelease": false,
    "published_at": "2023-12-03T12:00:00Z",
    "assets": [
      {"name": "love-11.5-win64.zip", "browser_download_url": "%[1]s/dl/love-11.5-win64.zip", "size": 3}
    ]
  },
  {"tag_name": "12.0", "prerelease": true, "assets": []},
  {"tag_name": "11.4", "published_at": "2022-01-02T12:00:00Z", "assets": []}
]`

const nextRelease = `{
    "tag_name": "11.6",
    "prerelease": false,
    "published_at": "2024-06-01T12:00:00Z",
    "assets": [
      {"name": "love-11.6-win64.zip", "browser_download_url": "%[1]s/dl/love-11.6-win64.zip", "size": 3}
    ]
  },`

type fakeGitHub struct {
	srv       *httptest.Server
	downloads atomic.Int32
	// published adds an 11.6 release to the listing.
	published atomic.Bool
}

// newFakeGitHub serves love2d/love releases and a win64 asset, and points
// every session's release client at it.
func newFakeGitHub(t *testing.T) *fakeGitHub {
	t.Helper()

	src := t.TempDir()
	for name, content := range map[string]string{
		"love-11.5-win64/love.exe": "MZ-interpreter",
		"love-11.5-win64/love.dll": "love",
		"love-11.5-win64/SDL2.dll": "sdl",
	} {
		path := filepath.Join(src, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	zipPath := filepath.Join(t.TempDir(), "love-11.5-win64.zip")
	if err := archive.WriteDir(src, zipPath, true); err != nil {
		t.Fatalf("build fake asset: %v", err)
	}
	payload, err := os.ReadFile(zipPath)
	if err != nil {
		t.Fatal(err)
	}

	gh := &fakeGitHub{}
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/love2d/love/releases", func(w http.ResponseWriter, r *http.Request) {
		listing := fakeReleases
		if gh.published.Load() {
			listing = "[" + nextRelease + listing[1:]
		}
		fmt.Fprintf(w, listing, gh.srv.URL)
	})
	mux.HandleFunc("/dl/", func(w http.ResponseWriter, r *http.Request) {
		gh.downloads.Add(1)
		_, _ = w.Write(payload)
	})
	gh.srv = httptest.NewServer(mux)
	t.Cleanup(gh.srv.Close)

	orig := newReleaseClient
	newReleaseClient = func(logger *slog.Logger) *release.Client {
		return release.NewClient(release.Options{BaseURL: gh.srv.URL, UserAgent: "lbt-test", Logger: logger})
	}
	t.Cleanup(func() { newReleaseClient = orig })
	return gh
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestNextAvailableDir(t *testing.T) {
	base := t.TempDir()
	got, err := nextAvailableDir(base)
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(base, "game-1") {
		t.Fatalf("expected game-1, got %s", got)
	}

	if err := os.Mkdir(filepath.Join(base, "game-1"), 0o755); err != nil {
		t.Fatal(err)
	}
	got, err = nextAvailableDir(base)
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(base, "game-2") {
		t.Fatalf("expected game-2, got %s", got)
	}
}

func TestResolveInitDirPrefersProjectFlag(t *testing.T) {
	got, err := resolveInitDir("/tmp/explicit", []string{"ignored"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/explicit" {
		t.Fatalf("expected project flag to win, got %s", got)
	}
}

func TestInitWritesConfigAndSample(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "mygame")
	if _, _, err := runCLI(t, "init", "--project", dir, "--framework", "lovr", "--format", "yaml", "--target", "win64,linux"); err != nil {
		t.Fatalf("init: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "lbt.yaml"))
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	for _, want := range []string{"name: mygame", "lovr:", "version: 0.17.0", "- win64", "- linux"} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("config missing %q:\n%s", want, data)
		}
	}
	sample, err := os.ReadFile(filepath.Join(dir, "src", "main.lua"))
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if string(sample) != framework.Lovr.Def().Sample {
		t.Fatalf("unexpected sample %q", sample)
	}

	// A second init leaves existing files alone.
	if err := os.WriteFile(filepath.Join(dir, "src", "main.lua"), []byte("-- mine"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, _, err := runCLI(t, "init", "--project", dir, "--framework", "love", "--json")
	if err != nil {
		t.Fatalf("second init: %v", err)
	}
	var res struct {
		Created []string `json:"created"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(res.Created) != 0 {
		t.Fatalf("expected nothing created, got %v", res.Created)
	}
	if _, err := os.Stat(filepath.Join(dir, "lbt.toml")); !os.IsNotExist(err) {
		t.Fatal("second init must not write another config")
	}
}

func TestInitRejectsVersionBelowMinimum(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "old")
	_, _, err := runCLI(t, "init", "--project", dir, "--version", "0.10.0")
	if err == nil {
		t.Fatal("expected minimum version error")
	}
	if _, statErr := os.Stat(dir); !os.IsNotExist(statErr) {
		t.Fatal("rejected init must not create the project")
	}
}

func TestReleasesHidesPrereleasesByDefault(t *testing.T) {
	newFakeGitHub(t)

	out, _, err := runCLI(t, "releases", "love", "--json", "--cache-dir", t.TempDir())
	if err != nil {
		t.Fatalf("releases: %v", err)
	}
	var rows []releaseJSON
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	var tags []string
	for _, r := range rows {
		tags = append(tags, r.Tag)
	}
	if diff := cmp.Diff([]string{"11.5", "11.4"}, tags); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"win64"}, rows[0].Targets); diff != "" {
		t.Fatalf("targets mismatch (-want +got):\n%s", diff)
	}
	if rows[0].Note != "latest known" {
		t.Fatalf("unexpected note %q", rows[0].Note)
	}

	out, _, err = runCLI(t, "releases", "love", "--all", "--cache-dir", t.TempDir())
	if err != nil {
		t.Fatalf("releases --all: %v", err)
	}
	if !strings.Contains(out, "12.0 ") || !strings.Contains(out, "prerelease") {
		t.Fatalf("expected prerelease row:\n%s", out)
	}
}

type installRow struct {
	Target     string `json:"target"`
	Version    string `json:"version"`
	Dir        string `json:"dir"`
	Downloaded bool   `json:"downloaded"`
	Extracted  bool   `json:"extracted"`
	Error      string `json:"error"`
}

func TestInstallDownloadsOnceThenCacheCommands(t *testing.T) {
	gh := newFakeGitHub(t)
	cacheRoot := t.TempDir()
	project := t.TempDir()

	install := func() installRow {
		t.Helper()
		out, _, err := runCLI(t, "install", "love", "--version", "11.5", "--target", "win64",
			"--cache-dir", cacheRoot, "--project", project, "--json")
		if err != nil {
			t.Fatalf("install: %v", err)
		}
		var rows []installRow
		if err := json.Unmarshal([]byte(out), &rows); err != nil {
			t.Fatalf("decode %q: %v", out, err)
		}
		if len(rows) != 1 {
			t.Fatalf("expected one row, got %d", len(rows))
		}
		return rows[0]
	}

	first := install()
	if !first.Downloaded || !first.Extracted || first.Version != "11.5" || first.Error != "" {
		t.Fatalf("unexpected first install %+v", first)
	}
	if _, err := os.Stat(filepath.Join(first.Dir, "love.exe")); err != nil {
		t.Fatalf("expected flattened love.exe: %v", err)
	}
	second := install()
	if second.Downloaded || second.Extracted {
		t.Fatalf("second install should be a cache hit: %+v", second)
	}
	if n := gh.downloads.Load(); n != 1 {
		t.Fatalf("expected 1 download, got %d", n)
	}

	out, _, err := runCLI(t, "cache", "list", "--cache-dir", cacheRoot, "--json")
	if err != nil {
		t.Fatalf("cache list: %v", err)
	}
	var listed cacheListJSON
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if listed.Root != cacheRoot || len(listed.Installs) != 1 || listed.Installs[0].Target != framework.TargetWin64 {
		t.Fatalf("unexpected listing %+v", listed)
	}

	if _, _, err := runCLI(t, "cache", "clean", "win64", "--cache-dir", cacheRoot); err != nil {
		t.Fatalf("cache clean: %v", err)
	}
	out, _, err = runCLI(t, "cache", "list", "--cache-dir", cacheRoot)
	if err != nil {
		t.Fatalf("cache list: %v", err)
	}
	if !strings.Contains(out, "No frameworks installed.") {
		t.Fatalf("expected empty cache:\n%s", out)
	}
}

func TestInstallSeesReleasePublishedAfterListing(t *testing.T) {
	gh := newFakeGitHub(t)
	cacheRoot := t.TempDir()

	out, _, err := runCLI(t, "releases", "love", "--cache-dir", cacheRoot)
	if err != nil {
		t.Fatalf("releases: %v", err)
	}
	if strings.Contains(out, "11.6") {
		t.Fatalf("11.6 listed before it was published:\n%s", out)
	}

	gh.published.Store(true)
	out, _, err = runCLI(t, "install", "love", "--version", "11.6", "--target", "win64",
		"--cache-dir", cacheRoot, "--project", t.TempDir(), "--json")
	if err != nil {
		t.Fatalf("install 11.6: %v", err)
	}
	var rows []installRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(rows) != 1 || rows[0].Version != "11.6" || !rows[0].Extracted {
		t.Fatalf("unexpected install rows %+v", rows)
	}

	out, _, err = runCLI(t, "releases", "love", "--refresh", "--cache-dir", cacheRoot)
	if err != nil {
		t.Fatalf("releases --refresh: %v", err)
	}
	if !strings.Contains(out, "11.6") {
		t.Fatalf("refresh should list 11.6:\n%s", out)
	}
}

func TestInstallUnknownVersion(t *testing.T) {
	newFakeGitHub(t)
	_, _, err := runCLI(t, "install", "love", "--version", "11.3", "--target", "win64",
		"--cache-dir", t.TempDir(), "--project", t.TempDir(), "--json")
	if err == nil || !strings.Contains(err.Error(), "11.3") {
		t.Fatalf("expected release-not-found error, got %v", err)
	}
}

func TestBuildWin64EndToEnd(t *testing.T) {
	gh := newFakeGitHub(t)
	cacheRoot := t.TempDir()
	dir := filepath.Join(t.TempDir(), "mygame")

	if _, _, err := runCLI(t, "init", "--project", dir, "--version", "11.5", "--target", "win64"); err != nil {
		t.Fatalf("init: %v", err)
	}
	out, _, err := runCLI(t, "build", "--project", dir, "--cache-dir", cacheRoot, "--json")
	if err != nil {
		t.Fatalf("build: %v\n%s", err, out)
	}

	var results []buildResultJSON
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
	res := results[0]
	if res.Status != "built" || res.Framework != "love" || res.Target != "win64" {
		t.Fatalf("unexpected result %+v", res)
	}

	entries, err := archive.Entries(res.Executable)
	if err != nil {
		t.Fatalf("fused executable is not a readable zip: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "main.lua" {
		t.Fatalf("unexpected fused entries %+v", entries)
	}

	var packaged []string
	for _, e := range mustEntries(t, res.Archive) {
		packaged = append(packaged, e.Name)
	}
	if diff := cmp.Diff([]string{"SDL2.dll", "love.dll", "mygame.exe"}, packaged); diff != "" {
		t.Fatalf("package mismatch (-want +got):\n%s", diff)
	}

	// Rebuilding reuses the install cache.
	if _, _, err := runCLI(t, "build", "love", "--project", dir, "--cache-dir", cacheRoot, "--json"); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if n := gh.downloads.Load(); n != 1 {
		t.Fatalf("expected 1 download across builds, got %d", n)
	}
}

func TestBuildPlainOutputReportsFailures(t *testing.T) {
	newFakeGitHub(t)
	dir := filepath.Join(t.TempDir(), "mygame")
	if _, _, err := runCLI(t, "init", "--project", dir, "--version", "11.5", "--target", "win64"); err != nil {
		t.Fatalf("init: %v", err)
	}

	out, _, err := runCLI(t, "build", "--project", dir, "--cache-dir", t.TempDir(), "--target", "macos", "--no-progress")
	if err == nil {
		t.Fatal("expected missing macos asset to fail the build")
	}
	if !strings.Contains(out, "[love/macos]") || !strings.Contains(out, "failed") {
		t.Fatalf("expected plain progress lines:\n%s", out)
	}
}

func TestValidateReportsErrors(t *testing.T) {
	dir := t.TempDir()
	cfg := "[project]\nname = \"demo\"\n\n[build.love]\nversion = \"10.0\"\n"
	if err := os.WriteFile(filepath.Join(dir, "lbt.toml"), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, "validate", "--project", dir)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(out, "error:") {
		t.Fatalf("expected error line:\n%s", out)
	}

	cfg = "[project]\nname = \"demo\"\n\n[build.love]\nversion = \"11.5\"\n"
	if err := os.WriteFile(filepath.Join(dir, "lbt.toml"), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	out, _, err = runCLI(t, "validate", "--project", dir)
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "is valid") {
		t.Fatalf("expected success line:\n%s", out)
	}
}

func TestInspectListsEntries(t *testing.T) {
	src := t.TempDir()
	if err := os.MkdirAll(filepath.Join(src, "assets"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "main.lua"), []byte("print(1)"), 0o644); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(t.TempDir(), "game.love")
	if err := archive.WriteDir(src, dest, true); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, "inspect", dest)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, want := range []string{"NAME", "assets/", "main.lua", "8"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func mustEntries(t *testing.T, path string) []archive.Entry {
	t.Helper()
	entries, err := archive.Entries(path)
	if err != nil {
		t.Fatalf("entries %s: %v", path, err)
	}
	return entries
}
