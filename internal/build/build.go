package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"lbt/internal/archive"
	"lbt/internal/framework"
	"lbt/internal/install"
	"lbt/internal/release"
	"lbt/internal/version"
)

// Pipeline stages, in the order Bundle runs them.
const (
	StageInstall    = "install"
	StagePrepare    = "prepare"
	StageLibraries  = "libraries"
	StageExecutable = "executable"
	StageCustomize  = "customize"
	StagePackage    = "package"
)

// Catalog lists published releases of a framework.
type Catalog interface {
	Releases(ctx context.Context, owner, repo string) ([]release.Release, error)
}

// Installer materializes a release for a target.
type Installer interface {
	Root() string
	Ensure(ctx context.Context, fw framework.Framework, rel *release.Release, target framework.Target) (install.State, error)
}

// Reporter observes pipeline progress. It must not influence the build.
type Reporter interface {
	Stage(target framework.Target, stage string)
	Finish(result Result)
}

// Result is the outcome of one target's pipeline.
type Result struct {
	Framework  framework.Framework
	Target     framework.Target
	Dir        string
	Executable string
	Archive    string
	Err        error
}

// OK reports whether every stage succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Options configures a Builder.
type Options struct {
	// Root is the project root; sources are read from <Root>/src.
	Root      string
	Name      string
	Framework framework.Framework
	Version   version.Version
	// Targets defaults to the host target when empty.
	Targets  []framework.Target
	Icons    map[framework.Target]string
	Catalog  Catalog
	Cache    Installer
	Reporter Reporter
	Logger   *slog.Logger
}

// Builder runs the packaging pipeline for one framework build.
type Builder struct {
	opts     Options
	logger   *slog.Logger
	reporter Reporter

	once    sync.Once
	release *release.Release
	relErr  error
}

// New returns a Builder for opts.
func New(opts Options) *Builder {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	reporter := opts.Reporter
	if reporter == nil {
		reporter = nopReporter{}
	}
	return &Builder{
		opts:     opts,
		logger:   logger.With("framework", opts.Framework, "version", opts.Version.String()),
		reporter: reporter,
	}
}

// Targets returns the targets Bundle builds.
func (b *Builder) Targets() []framework.Target {
	if len(b.opts.Targets) == 0 {
		return []framework.Target{framework.HostTarget()}
	}
	return b.opts.Targets
}

// Bundle builds every target in order and returns one result per target.
// A target's failure never skips the others.
func (b *Builder) Bundle(ctx context.Context) []Result {
	targets := b.Targets()
	results := make([]Result, 0, len(targets))

	if err := b.checkVersion(); err != nil {
		b.logger.Error("version gate failed", "error", err)
		for _, t := range targets {
			res := Result{Framework: b.opts.Framework, Target: t, Err: err}
			b.reporter.Finish(res)
			results = append(results, res)
		}
		return results
	}

	for _, t := range targets {
		res := b.bundleTarget(ctx, t)
		b.reporter.Finish(res)
		results = append(results, res)
	}
	return results
}

func (b *Builder) bundleTarget(ctx context.Context, target framework.Target) Result {
	res := Result{Framework: b.opts.Framework, Target: target}
	log := b.logger.With("target", target)
	var errs []error
	record := func(stage string, err error) {
		log.Error("stage failed", "stage", stage, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", stage, err))
	}

	b.reporter.Stage(target, StageInstall)
	if _, err := b.Install(ctx, target); err != nil {
		record(StageInstall, err)
		if IsFatal(err) {
			res.Err = errors.Join(errs...)
			return res
		}
	}

	b.reporter.Stage(target, StagePrepare)
	dir, err := b.OutputDir(target)
	if err != nil {
		record(StagePrepare, err)
		res.Err = errors.Join(errs...)
		return res
	}
	res.Dir = dir

	b.reporter.Stage(target, StageLibraries)
	if err := b.CopyLibraries(target, dir); err != nil {
		record(StageLibraries, err)
	}

	b.reporter.Stage(target, StageExecutable)
	exe, err := b.BuildExecutable(target, dir)
	if err != nil {
		record(StageExecutable, err)
	}
	res.Executable = exe

	b.reporter.Stage(target, StageCustomize)
	if err := b.ApplyCustomizations(target, dir); err != nil {
		record(StageCustomize, err)
	}

	b.reporter.Stage(target, StagePackage)
	archivePath, err := b.Package(target, dir)
	if err != nil {
		record(StagePackage, err)
	} else {
		res.Archive = archivePath
	}

	res.Err = errors.Join(errs...)
	if res.Err == nil {
		log.Info("target built", "archive", res.Archive)
	}
	return res
}

// Release fetches the release list once and picks the configured version.
func (b *Builder) Release(ctx context.Context) (*release.Release, error) {
	b.once.Do(func() {
		def, err := b.definition()
		if err != nil {
			b.relErr = err
			return
		}
		releases, err := b.opts.Catalog.Releases(ctx, def.Owner, def.Repo)
		if err != nil {
			b.relErr = err
			return
		}
		b.release, b.relErr = release.Find(releases, b.opts.Version)
	})
	return b.release, b.relErr
}

func (b *Builder) definition() (framework.Definition, error) {
	def, ok := framework.Lookup(b.opts.Framework)
	if !ok {
		return framework.Definition{}, fmt.Errorf("%w: %q", ErrUnknownFramework, string(b.opts.Framework))
	}
	return def, nil
}

// checkVersion is the gate every target passes before any I/O.
func (b *Builder) checkVersion() error {
	def, err := b.definition()
	if err != nil {
		return err
	}
	return version.CheckMinimum(b.opts.Version, def.Minimum)
}

// Install ensures the framework release is in the install cache for target.
func (b *Builder) Install(ctx context.Context, target framework.Target) (install.State, error) {
	if err := b.checkVersion(); err != nil {
		return install.State{}, err
	}
	rel, err := b.Release(ctx)
	if err != nil {
		return install.State{}, err
	}
	return b.opts.Cache.Ensure(ctx, b.opts.Framework, rel, target)
}

// OutputDir recreates <root>/build/<framework>/<os> for target. Any previous
// contents are discarded.
func (b *Builder) OutputDir(target framework.Target) (string, error) {
	dir := filepath.Join(b.opts.Root, "build", string(b.opts.Framework), target.Dir())
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("remove stale output: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	return dir, nil
}

// CopyLibraries copies the native libraries shipped with the cached
// interpreter into dir.
func (b *Builder) CopyLibraries(target framework.Target, dir string) error {
	ext := target.LibraryExt()
	if ext == "" {
		return nil
	}
	installDir := b.opts.Framework.InstallDir(b.opts.Cache.Root(), target)
	entries, err := os.ReadDir(installDir)
	if err != nil {
		return fmt.Errorf("read install dir: %w", err)
	}
	var copied int
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			continue
		}
		if err := copyFile(filepath.Join(installDir, entry.Name()), filepath.Join(dir, entry.Name()), 0o755); err != nil {
			return err
		}
		copied++
	}
	b.logger.Debug("copied libraries", "target", target, "count", copied)
	return nil
}

// BuildExecutable zips the project sources and fuses them onto a copy of the
// cached interpreter. Only win64 is supported. The intermediate payload is
// removed once fused.
func (b *Builder) BuildExecutable(target framework.Target, dir string) (string, error) {
	if target != framework.TargetWin64 {
		return "", &UnsupportedTargetError{Target: target, Stage: StageExecutable}
	}

	payload := filepath.Join(dir, b.opts.Name+"."+string(b.opts.Framework))
	if err := archive.WriteDir(filepath.Join(b.opts.Root, "src"), payload, true); err != nil {
		return "", fmt.Errorf("archive sources: %w", err)
	}

	out := filepath.Join(dir, b.opts.Name+target.ExecutableExt())
	exe := b.opts.Framework.Executable(b.opts.Cache.Root(), target)
	if err := Fuse(exe, payload, out); err != nil {
		_ = os.Remove(payload)
		return "", err
	}
	if err := os.Remove(payload); err != nil {
		return out, fmt.Errorf("remove payload: %w", err)
	}
	b.logger.Debug("fused executable", "target", target, "path", out)
	return out, nil
}

// ApplyCustomizations is the hook for icon and resource edits of the fused
// executable. Nothing is modified yet.
func (b *Builder) ApplyCustomizations(target framework.Target, dir string) error {
	if target != framework.TargetWin64 {
		return &UnsupportedTargetError{Target: target, Stage: StageCustomize}
	}
	if icon := b.opts.Icons[target]; icon != "" {
		b.logger.Warn("icon embedding is not implemented, skipping", "target", target, "icon", icon)
	}
	return nil
}

// Package zips dir into <dir>/<name>.zip and returns its path.
func (b *Builder) Package(target framework.Target, dir string) (string, error) {
	dest := filepath.Join(dir, b.opts.Name+".zip")
	if err := archive.WriteDir(dir, dest, true); err != nil {
		return "", fmt.Errorf("package %s: %w", target, err)
	}
	return dest, nil
}

type nopReporter struct{}

func (nopReporter) Stage(framework.Target, string) {}
func (nopReporter) Finish(Result)                  {}
