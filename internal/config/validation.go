package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"lbt/internal/framework"
	"lbt/internal/version"
)

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

// Validate checks framework and target names, version syntax and minimums,
// and icon paths relative to projectRoot.
func (c Config) Validate(projectRoot string) []ValidationResult {
	var results []ValidationResult
	results = append(results, c.validateProject()...)
	results = append(results, c.validateBuilds()...)
	results = append(results, c.validateTargets()...)
	results = append(results, c.validateIcons(projectRoot)...)
	return results
}

// Err folds error-level findings into a single error.
func Err(results []ValidationResult) error {
	var errs []error
	for _, r := range results {
		if r.Level == "error" {
			errs = append(errs, errors.New(r.Message))
		}
	}
	return errors.Join(errs...)
}

func (c Config) validateProject() []ValidationResult {
	name := strings.TrimSpace(c.Project.Name)
	if name == "" {
		return []ValidationResult{{Level: "error", Message: "project.name is required"}}
	}
	if strings.ContainsAny(name, `/\:`) {
		return []ValidationResult{{
			Level:   "error",
			Message: fmt.Sprintf("project.name %q must not contain path separators", name),
		}}
	}
	return nil
}

func (c Config) validateBuilds() []ValidationResult {
	if len(c.Build) == 0 {
		return []ValidationResult{{Level: "error", Message: "no build section configured"}}
	}

	names := make([]string, 0, len(c.Build))
	for name := range c.Build {
		names = append(names, name)
	}
	sort.Strings(names)

	var results []ValidationResult
	for _, name := range names {
		section := c.Build[name]
		fw, err := framework.Parse(name)
		if err != nil {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("build.%s: unknown framework (known: %s)", name, knownFrameworks()),
			})
			continue
		}

		v, err := version.Parse(section.Version)
		if err != nil {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("build.%s.version: %v", name, err),
			})
		} else if err := version.CheckMinimum(v, fw.Def().Minimum); err != nil {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("build.%s.version: %v", name, err),
			})
		} else if fw.Def().Latest.Less(v) {
			results = append(results, ValidationResult{
				Level:   "warning",
				Message: fmt.Sprintf("build.%s.version %s is newer than the latest known release %s", name, v, fw.Def().Latest),
			})
		}

		seen := make(map[framework.Target]bool, len(section.Targets))
		for _, raw := range section.Targets {
			t, err := framework.ParseTarget(raw)
			if err != nil {
				results = append(results, ValidationResult{
					Level:   "error",
					Message: fmt.Sprintf("build.%s.targets: %v", name, err),
				})
				continue
			}
			if seen[t] {
				results = append(results, ValidationResult{
					Level:   "warning",
					Message: fmt.Sprintf("build.%s.targets: %s listed more than once", name, t),
				})
			}
			seen[t] = true
		}
	}
	return results
}

func (c Config) validateTargets() []ValidationResult {
	var results []ValidationResult
	for name := range c.Target {
		if _, err := framework.ParseTarget(name); err != nil {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("target.%s: %v", name, err),
			})
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Message < results[j].Message })
	return results
}

func (c Config) validateIcons(projectRoot string) []ValidationResult {
	icons := map[string]string{}
	if c.Project.Icon != "" {
		icons["project.icon"] = c.Project.Icon
	}
	for name, tc := range c.Target {
		if tc.Icon != "" {
			icons["target."+name+".icon"] = tc.Icon
		}
	}

	keys := make([]string, 0, len(icons))
	for k := range icons {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var results []ValidationResult
	for _, key := range keys {
		path := ResolvePath(projectRoot, icons[key])
		if _, err := os.Stat(path); err != nil {
			results = append(results, ValidationResult{
				Level:   "warning",
				Message: fmt.Sprintf("%s: %q not found", key, icons[key]),
			})
		}
	}
	return results
}

// ResolvePath returns path as-is if absolute, otherwise joins it with projectRoot.
func ResolvePath(projectRoot, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(projectRoot, path)
}

func knownFrameworks() string {
	names := make([]string, 0)
	for _, fw := range framework.Known() {
		names = append(names, string(fw))
	}
	return strings.Join(names, ", ")
}
