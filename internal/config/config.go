package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"lbt/internal/framework"
	"lbt/internal/version"
)

// Format is the on-disk encoding of a project config.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FileNames lists the config files Locate looks for, in priority order.
var FileNames = []string{"lbt.toml", "lbt.yaml", "lbt.yml"}

// Config is the project configuration.
type Config struct {
	Project ProjectConfig           `toml:"project" yaml:"project"`
	Build   map[string]BuildConfig  `toml:"build" yaml:"build"`
	Target  map[string]TargetConfig `toml:"target,omitempty" yaml:"target,omitempty"`
}

// ProjectConfig names the game and its default icon.
type ProjectConfig struct {
	Name string `toml:"name" yaml:"name"`
	Icon string `toml:"icon,omitempty" yaml:"icon,omitempty"`
}

// BuildConfig pins a framework version and the targets to build for it.
// An empty target list means the host platform.
type BuildConfig struct {
	Version string   `toml:"version" yaml:"version"`
	Targets []string `toml:"targets,omitempty" yaml:"targets,omitempty"`
}

// TargetConfig holds per-target overrides.
type TargetConfig struct {
	Icon string `toml:"icon,omitempty" yaml:"icon,omitempty"`
}

// Build is a validated, typed build section.
type Build struct {
	Framework framework.Framework
	Version   version.Version
	Targets   []framework.Target
}

// Default returns the baseline configuration for a project called name.
func Default(name string) Config {
	latest := framework.Love.Def().Latest
	return Config{
		Project: ProjectConfig{Name: name},
		Build: map[string]BuildConfig{
			string(framework.Love): {Version: latest.String()},
		},
	}
}

// Locate returns the first config file present in root.
func Locate(root string) (string, bool) {
	for _, name := range FileNames {
		path := filepath.Join(root, name)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}

// FormatOf picks the encoding from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported config format: %s", filepath.Base(path))
	}
}

// Load reads the configuration from disk if it exists, otherwise returns the
// default configuration. Unknown keys are rejected.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default("")
			cfg.ApplyDefaults(projectName(path))
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	format, err := FormatOf(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Decode(contents, format)
	if err != nil {
		return Config{}, err
	}
	cfg.ApplyDefaults(projectName(path))
	return cfg, nil
}

// LoadProject locates and loads the config of the project at root. The
// returned path is empty when no config file exists.
func LoadProject(root string) (Config, string, error) {
	path, ok := Locate(root)
	if !ok {
		cfg := Default("")
		cfg.ApplyDefaults(filepath.Base(root))
		return cfg, "", nil
	}
	cfg, err := Load(path)
	return cfg, path, err
}

// Decode parses contents in the given format without applying defaults.
func Decode(contents []byte, format Format) (Config, error) {
	var cfg Config
	switch format {
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(contents))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("unmarshal config: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(contents))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("unmarshal config: %w", err)
		}
	default:
		return Config{}, fmt.Errorf("unsupported config format: %s", format)
	}
	return cfg, nil
}

// Marshal encodes the config in the given format.
func (c Config) Marshal(format Format) ([]byte, error) {
	switch format {
	case FormatTOML:
		return toml.Marshal(c)
	case FormatYAML:
		return yaml.Marshal(c)
	default:
		return nil, fmt.Errorf("unsupported config format: %s", format)
	}
}

// Save writes the config to path, choosing the format from its extension.
func (c Config) Save(path string) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	data, err := c.Marshal(format)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ApplyDefaults fills the project name from the directory name and falls
// back to the default build section when none is configured.
func (c *Config) ApplyDefaults(dirName string) {
	if strings.TrimSpace(c.Project.Name) == "" {
		c.Project.Name = dirName
	}
	if len(c.Build) == 0 {
		c.Build = Default(c.Project.Name).Build
	}
}

// Builds returns the typed build sections sorted by framework name.
func (c Config) Builds() ([]Build, error) {
	names := make([]string, 0, len(c.Build))
	for name := range c.Build {
		names = append(names, name)
	}
	sort.Strings(names)

	builds := make([]Build, 0, len(names))
	for _, name := range names {
		b, err := c.BuildFor(name)
		if err != nil {
			return nil, err
		}
		builds = append(builds, b)
	}
	return builds, nil
}

// BuildFor returns the typed build section for one framework.
func (c Config) BuildFor(name string) (Build, error) {
	fw, err := framework.Parse(name)
	if err != nil {
		return Build{}, err
	}
	section, ok := c.Build[string(fw)]
	if !ok {
		return Build{}, fmt.Errorf("no build section for %s", fw)
	}
	v, err := version.Parse(section.Version)
	if err != nil {
		return Build{}, fmt.Errorf("build.%s.version: %w", fw, err)
	}
	targets := make([]framework.Target, 0, len(section.Targets))
	for _, raw := range section.Targets {
		t, err := framework.ParseTarget(raw)
		if err != nil {
			return Build{}, fmt.Errorf("build.%s.targets: %w", fw, err)
		}
		targets = append(targets, t)
	}
	return Build{Framework: fw, Version: v, Targets: targets}, nil
}

// IconFor returns the icon configured for target, falling back to the
// project icon.
func (c Config) IconFor(target framework.Target) string {
	if tc, ok := c.Target[string(target)]; ok && tc.Icon != "" {
		return tc.Icon
	}
	return c.Project.Icon
}

func projectName(configPath string) string {
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return filepath.Base(filepath.Dir(configPath))
	}
	return filepath.Base(filepath.Dir(abs))
}
