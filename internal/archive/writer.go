package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/zip"
)

// EntryMode is stored on every written entry regardless of the source mode.
const EntryMode os.FileMode = 0o755

// ErrPathEncoding is wrapped by PathEncodingError.
var ErrPathEncoding = errors.New("path is not valid UTF-8")

// PathEncodingError reports a path that cannot be stored as a zip entry name.
type PathEncodingError struct {
	Path string
}

func (e *PathEncodingError) Error() string {
	return fmt.Sprintf("%q: %v", e.Path, ErrPathEncoding)
}

func (e *PathEncodingError) Unwrap() error { return ErrPathEncoding }

// Writer builds a deflate zip whose entry names are relative to a prefix.
type Writer struct {
	prefix string
	dest   string
	file   *os.File
	zw     *zip.Writer
}

// Create truncates dest and prepares a writer rooted at prefix.
func Create(prefix, dest string) (*Writer, error) {
	absPrefix, err := filepath.Abs(prefix)
	if err != nil {
		return nil, fmt.Errorf("resolve archive root: %w", err)
	}
	absDest, err := filepath.Abs(dest)
	if err != nil {
		return nil, fmt.Errorf("resolve archive path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absDest), 0o755); err != nil {
		return nil, fmt.Errorf("prepare archive dir: %w", err)
	}
	file, err := os.OpenFile(absDest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	return &Writer{
		prefix: absPrefix,
		dest:   absDest,
		file:   file,
		zw:     zip.NewWriter(file),
	}, nil
}

// AddDir writes the entries of dir. Subdirectories get an explicit entry and
// are descended into when recursive is set. The archive being written is
// never added to itself.
func (w *Writer) AddDir(dir string, recursive bool) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", dir, err)
	}
	entries, err := os.ReadDir(absDir)
	if err != nil {
		return fmt.Errorf("read dir %s: %w", absDir, err)
	}

	for _, entry := range entries {
		path := filepath.Join(absDir, entry.Name())
		if path == w.dest {
			continue
		}

		name, err := w.entryName(path)
		if err != nil {
			return err
		}

		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		// Symlinked files are stored by content. Symlinked directories are
		// skipped since they can point back at an ancestor.
		if entry.Type()&os.ModeSymlink != 0 && info.IsDir() {
			continue
		}

		switch {
		case info.Mode().IsRegular():
			if err := w.addFile(path, name, info); err != nil {
				return err
			}
		case info.IsDir():
			if name == "" {
				continue
			}
			if err := w.addDirEntry(name, info); err != nil {
				return err
			}
			if recursive {
				if err := w.AddDir(path, recursive); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// AddFile writes a single file under its prefix-relative name.
func (w *Writer) AddFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	name, err := w.entryName(abs)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("stat %s: %w", abs, err)
	}
	return w.addFile(abs, name, info)
}

// Close finishes the central directory and closes the file.
func (w *Writer) Close() error {
	if err := w.zw.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("finish archive: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return nil
}

// Abort closes the writer without caring about errors. Partial output is left
// on disk.
func (w *Writer) Abort() {
	_ = w.zw.Close()
	_ = w.file.Close()
}

func (w *Writer) entryName(path string) (string, error) {
	rel, err := filepath.Rel(w.prefix, path)
	if err != nil {
		return "", fmt.Errorf("relative name for %s: %w", path, err)
	}
	if rel == "." {
		return "", nil
	}
	if !utf8.ValidString(rel) {
		return "", &PathEncodingError{Path: rel}
	}
	return filepath.ToSlash(rel), nil
}

func (w *Writer) addFile(path, name string, info os.FileInfo) error {
	fh := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: info.ModTime(),
	}
	fh.SetMode(EntryMode)

	dst, err := w.zw.CreateHeader(fh)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer src.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("compress %s: %w", name, err)
	}
	return w.flush(name)
}

func (w *Writer) addDirEntry(name string, info os.FileInfo) error {
	fh := &zip.FileHeader{
		Name:     strings.TrimSuffix(name, "/") + "/",
		Method:   zip.Deflate,
		Modified: info.ModTime(),
	}
	fh.SetMode(EntryMode | os.ModeDir)
	if _, err := w.zw.CreateHeader(fh); err != nil {
		return fmt.Errorf("add dir %s: %w", name, err)
	}
	return w.flush(name)
}

func (w *Writer) flush(name string) error {
	if err := w.zw.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", name, err)
	}
	return nil
}

// WriteDir zips the contents of root into dest. On error the partially
// written archive is left in place.
func WriteDir(root, dest string, recursive bool) error {
	w, err := Create(root, dest)
	if err != nil {
		return err
	}
	if err := w.AddDir(root, recursive); err != nil {
		w.Abort()
		return err
	}
	return w.Close()
}
