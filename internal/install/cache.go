package install

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"lbt/internal/archive"
	"lbt/internal/framework"
	"lbt/internal/paths"
	"lbt/internal/release"
	"lbt/internal/version"
)

const archiveDirName = ".archive"

// Downloader fetches a URL into a local file.
type Downloader interface {
	Download(ctx context.Context, url, dest string) error
}

// State describes a framework install for one target.
type State struct {
	Framework  framework.Framework `json:"framework"`
	Target     framework.Target    `json:"target"`
	Version    string              `json:"version"`
	Dir        string              `json:"dir"`
	Executable string              `json:"executable"`
	Archive    string              `json:"archive"`
	Downloaded bool                `json:"downloaded"`
	Extracted  bool                `json:"extracted"`
}

// Cache keeps extracted framework releases under a root directory, one
// subdirectory per target OS.
type Cache struct {
	root   string
	dl     Downloader
	logger *slog.Logger
}

// New returns a cache rooted at root.
func New(root string, dl Downloader, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Cache{root: root, dl: dl, logger: logger}
}

// Root returns the cache root directory.
func (c *Cache) Root() string {
	return c.root
}

// OSDir is <root>/<os> for target.
func (c *Cache) OSDir(target framework.Target) string {
	return filepath.Join(c.root, target.Dir())
}

// ArchiveDir holds raw downloaded assets for target.
func (c *Cache) ArchiveDir(target framework.Target) string {
	return filepath.Join(c.OSDir(target), archiveDirName)
}

// MarkerPath is the file recording the installed version of fw for target.
func (c *Cache) MarkerPath(fw framework.Framework, target framework.Target) string {
	return filepath.Join(c.OSDir(target), "."+string(fw)+"-version")
}

// Ensure makes sure rel is extracted for target, downloading its asset at
// most once. The version marker is written only after the extracted tree is
// complete, so a failed extraction is retried on the next call.
func (c *Cache) Ensure(ctx context.Context, fw framework.Framework, rel *release.Release, target framework.Target) (State, error) {
	tag, err := rel.Version()
	if err != nil {
		return State{}, fmt.Errorf("release tag: %w", err)
	}
	asset, ok := rel.AssetFor(target)
	if !ok {
		return State{}, &release.AssetError{Tag: rel.Tag, Target: target}
	}

	state := State{
		Framework:  fw,
		Target:     target,
		Version:    tag.String(),
		Dir:        fw.InstallDir(c.root, target),
		Executable: fw.Executable(c.root, target),
		Archive:    filepath.Join(c.ArchiveDir(target), asset.Name),
	}
	log := c.logger.With("framework", fw, "target", target, "version", state.Version)

	if err := os.MkdirAll(c.ArchiveDir(target), 0o755); err != nil {
		return state, fmt.Errorf("prepare archive dir: %w", err)
	}

	exists, err := paths.FileExists(state.Archive)
	if err != nil {
		return state, fmt.Errorf("check cached asset: %w", err)
	}
	if !exists {
		log.Info("downloading release asset", "asset", asset.Name, "size", asset.Size)
		if err := c.dl.Download(ctx, asset.BrowserDownloadURL, state.Archive); err != nil {
			return state, err
		}
		state.Downloaded = true
	}

	installed, ok, err := c.Installed(fw, target)
	if err != nil {
		log.Warn("ignoring unreadable version marker", "error", err)
	}
	if ok && installed.Equal(tag) && !state.Downloaded {
		log.Debug("install cache up to date")
		return state, nil
	}

	// The old tree is about to be removed, so the marker must not outlive it.
	if err := c.clearMarker(fw, target); err != nil {
		return state, err
	}
	if asset.IsZip() {
		err = c.extract(state, log)
	} else {
		err = c.place(state, asset.Name, log)
	}
	if err != nil {
		return state, err
	}
	state.Extracted = true

	if err := os.WriteFile(c.MarkerPath(fw, target), []byte(tag.String()), 0o644); err != nil {
		return state, fmt.Errorf("save installed version: %w", err)
	}
	log.Info("installed framework", "dir", state.Dir)
	return state, nil
}

func (c *Cache) extract(state State, log *slog.Logger) error {
	if err := os.RemoveAll(state.Dir); err != nil {
		return fmt.Errorf("remove stale install: %w", err)
	}
	if err := os.MkdirAll(state.Dir, 0o755); err != nil {
		return fmt.Errorf("create install dir: %w", err)
	}
	files, err := archive.Extract(state.Archive, state.Dir, archive.Flatten)
	if err != nil {
		return fmt.Errorf("unzip %s: %w", filepath.Base(state.Archive), err)
	}
	for _, f := range files {
		log.Debug("unzipped file", "path", f)
	}
	return nil
}

// place installs a single-file asset (AppImage, apk) under its canonical
// name. The raw download stays in the archive dir so later calls can skip
// the network.
func (c *Cache) place(state State, assetName string, log *slog.Logger) error {
	if err := os.RemoveAll(state.Dir); err != nil {
		return fmt.Errorf("remove stale install: %w", err)
	}
	if err := os.MkdirAll(state.Dir, 0o755); err != nil {
		return fmt.Errorf("create install dir: %w", err)
	}
	dest := filepath.Join(state.Dir, string(state.Framework)+assetExt(assetName))
	if err := copyFile(state.Archive, dest); err != nil {
		return fmt.Errorf("place %s: %w", assetName, err)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(dest, 0o755); err != nil {
			return fmt.Errorf("chmod %s: %w", dest, err)
		}
	}
	log.Debug("placed single-file asset", "path", dest)
	return nil
}

func (c *Cache) clearMarker(fw framework.Framework, target framework.Target) error {
	if err := os.Remove(c.MarkerPath(fw, target)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear version marker: %w", err)
	}
	return nil
}

// Installed reads the version marker for fw on target.
func (c *Cache) Installed(fw framework.Framework, target framework.Target) (version.Version, bool, error) {
	data, err := os.ReadFile(c.MarkerPath(fw, target))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return version.Version{}, false, nil
		}
		return version.Version{}, false, fmt.Errorf("read version marker: %w", err)
	}
	v, err := version.Parse(string(data))
	if err != nil {
		return version.Version{}, false, err
	}
	return v, true, nil
}

// List reports every recorded install across targets and frameworks.
func (c *Cache) List() ([]State, error) {
	var states []State
	for _, target := range framework.Targets() {
		for _, fw := range framework.Known() {
			v, ok, err := c.Installed(fw, target)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			states = append(states, State{
				Framework:  fw,
				Target:     target,
				Version:    v.String(),
				Dir:        fw.InstallDir(c.root, target),
				Executable: fw.Executable(c.root, target),
			})
		}
	}
	return states, nil
}

// Clean removes the cache for target, or the whole cache when target is empty.
func (c *Cache) Clean(target framework.Target) error {
	dir := c.root
	if target != "" {
		dir = c.OSDir(target)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clean cache: %w", err)
	}
	c.logger.Info("cleaned install cache", "dir", dir)
	return nil
}

func assetExt(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[idx:]
	}
	return ""
}

func copyFile(src, dst string) error {
	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer source.Close()

	dest, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dest, source); err != nil {
		dest.Close()
		return err
	}
	return dest.Close()
}
