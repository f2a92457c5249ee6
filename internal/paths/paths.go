package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/xyproto/env/v2"
)

// CacheDirEnv overrides the install cache root.
const CacheDirEnv = "LBT_CACHE_DIR"

const appName = "lbt"

// ProjectPaths captures canonical locations for an lbt project.
type ProjectPaths struct {
	Root      string
	SourceDir string
	BuildDir  string
	MetaDir   string
	LogsDir   string
}

// Resolve determines the project root using the optional --project flag or the
// current working directory when the flag is empty.
func Resolve(projectFlag string) (ProjectPaths, error) {
	var (
		root string
		err  error
	)

	if projectFlag != "" {
		root, err = filepath.Abs(projectFlag)
	} else {
		root, err = os.Getwd()
	}
	if err != nil {
		return ProjectPaths{}, fmt.Errorf("resolve project root: %w", err)
	}

	return New(root), nil
}

// New lays out the standard directories under root.
func New(root string) ProjectPaths {
	metaDir := filepath.Join(root, ".lbt")
	return ProjectPaths{
		Root:      root,
		SourceDir: filepath.Join(root, "src"),
		BuildDir:  filepath.Join(root, "build"),
		MetaDir:   metaDir,
		LogsDir:   filepath.Join(metaDir, "logs"),
	}
}

// Name is the project directory's base name.
func (p ProjectPaths) Name() string {
	return filepath.Base(p.Root)
}

// EnsureRoot makes sure the project root exists on disk.
func (p ProjectPaths) EnsureRoot() error {
	if err := os.MkdirAll(p.Root, 0o755); err != nil {
		return fmt.Errorf("create project root: %w", err)
	}
	return nil
}

// EnsureSourceDir creates the source directory.
func (p ProjectPaths) EnsureSourceDir() error {
	if err := os.MkdirAll(p.SourceDir, 0o755); err != nil {
		return fmt.Errorf("create source dir: %w", err)
	}
	return nil
}

// CacheRoot resolves the framework install cache root. A non-empty override
// wins, then $LBT_CACHE_DIR, then the per-OS user data directory.
func CacheRoot(override string) (string, error) {
	if override != "" {
		return filepath.Abs(override)
	}
	if dir := env.Str(CacheDirEnv); dir != "" {
		return filepath.Abs(dir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("detect user home: %w", err)
	}
	return defaultCacheRoot(runtime.GOOS, home, env.Str("XDG_DATA_HOME"), env.Str("LOCALAPPDATA")), nil
}

func defaultCacheRoot(goos, home, xdgDataHome, localAppData string) string {
	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", appName)
	case "windows":
		if localAppData != "" {
			return filepath.Join(localAppData, appName)
		}
		return filepath.Join(home, "AppData", "Local", appName)
	default:
		if xdgDataHome != "" {
			return filepath.Join(xdgDataHome, appName)
		}
		return filepath.Join(home, ".local", "share", appName)
	}
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}
