package archive

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/klauspost/compress/zip"
)

// Policy decides where an entry lands on disk.
type Policy int

const (
	// Preserve keeps the archive's directory structure.
	Preserve Policy = iota
	// Flatten places every entry by its final path component only.
	Flatten
)

// creatorUnix is the "version made by" host for unix-mode external attributes.
const creatorUnix = 3

// Entry describes one stored zip entry.
type Entry struct {
	Name string
	Dir  bool
	Mode os.FileMode
	Size uint64
	// UnixMode is set when the entry carries unix permission bits.
	UnixMode bool
}

// Entries lists the stored entries of archivePath in stored order.
func Entries(archivePath string) ([]Entry, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer reader.Close()

	out := make([]Entry, 0, len(reader.File))
	for _, f := range reader.File {
		out = append(out, Entry{
			Name:     f.Name,
			Dir:      strings.HasSuffix(f.Name, "/"),
			Mode:     f.Mode(),
			Size:     f.UncompressedSize64,
			UnixMode: hasUnixMode(f),
		})
	}
	return out, nil
}

// Extract unpacks archivePath into dest according to policy and returns the
// paths of extracted files. Entries with absolute names or parent-directory
// components are skipped. On POSIX systems stored unix modes are restored.
func Extract(archivePath, dest string, policy Policy) ([]string, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer reader.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, fmt.Errorf("prepare extract dir: %w", err)
	}

	var files []string
	for _, f := range reader.File {
		rel, ok := sanitize(f.Name)
		if !ok {
			continue
		}
		target := targetPath(dest, rel, policy)

		if strings.HasSuffix(f.Name, "/") {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return files, fmt.Errorf("create dir %s: %w", target, err)
			}
			continue
		}

		if err := extractFile(f, target); err != nil {
			return files, err
		}
		files = append(files, target)
	}
	return files, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("prepare file %s: %w", target, err)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create file %s: %w", target, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("copy file %s: %w", target, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close file %s: %w", target, err)
	}

	if runtime.GOOS != "windows" && hasUnixMode(f) {
		if err := os.Chmod(target, f.Mode().Perm()); err != nil {
			return fmt.Errorf("chmod %s: %w", target, err)
		}
	}
	return nil
}

// sanitize cleans an entry name and rejects names escaping the destination.
func sanitize(name string) (string, bool) {
	name = strings.ReplaceAll(name, "\\", "/")
	if name == "" || strings.HasPrefix(name, "/") {
		return "", false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return "", false
		}
	}
	cleaned := path.Clean(name)
	if cleaned == "." || strings.Contains(cleaned, ":") {
		return "", false
	}
	return cleaned, true
}

func targetPath(dest, rel string, policy Policy) string {
	if policy == Flatten {
		return filepath.Join(dest, path.Base(rel))
	}
	return filepath.Join(dest, filepath.FromSlash(rel))
}

func hasUnixMode(f *zip.File) bool {
	return f.CreatorVersion>>8 == creatorUnix && f.ExternalAttrs>>16 != 0
}
