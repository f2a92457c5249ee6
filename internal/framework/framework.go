package framework

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"lbt/internal/version"
)

// Framework identifies a supported game runtime.
type Framework string

const (
	Love Framework = "love"
	Lovr Framework = "lovr"
)

// Definition contains the metadata required to fetch and package a framework.
type Definition struct {
	Name    Framework
	Owner   string
	Repo    string
	Minimum version.Version
	Latest  version.Version
	Sample  string
}

var definitions = map[Framework]Definition{
	Love: {
		Name:    Love,
		Owner:   "love2d",
		Repo:    "love",
		Minimum: version.New(11, 0),
		Latest:  version.New(11, 5),
		Sample: `function love.draw()
    love.graphics.print("Hello World!", 400, 300)
end
`,
	},
	Lovr: {
		Name:    Lovr,
		Owner:   "bjornbytes",
		Repo:    "lovr",
		Minimum: version.NewPatch(0, 15, 0),
		Latest:  version.NewPatch(0, 17, 0),
		Sample: `function lovr.draw(pass)
    pass:text("hello world", 0, 1.7, -3, 0.5)
end
`,
	},
}

// Known returns the supported frameworks sorted by name.
func Known() []Framework {
	names := make([]Framework, 0, len(definitions))
	for name := range definitions {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Parse resolves a framework name.
func Parse(s string) (Framework, error) {
	fw := Framework(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := definitions[fw]; !ok {
		return "", fmt.Errorf("invalid framework: %s", s)
	}
	return fw, nil
}

// Lookup returns the definition for fw.
func Lookup(fw Framework) (Definition, bool) {
	def, ok := definitions[fw]
	return def, ok
}

// Def returns the definition for a known framework and panics otherwise.
func (f Framework) Def() Definition {
	def, ok := definitions[f]
	if !ok {
		panic(fmt.Sprintf("framework: unknown framework %q", string(f)))
	}
	return def
}

func (f Framework) String() string {
	return string(f)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Framework) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// InstallDir is the extracted interpreter tree for target under cacheRoot.
func (f Framework) InstallDir(cacheRoot string, target Target) string {
	return filepath.Join(cacheRoot, target.Dir(), string(f))
}

// Executable is the cached interpreter the fused executable is copied from.
func (f Framework) Executable(cacheRoot string, target Target) string {
	return filepath.Join(f.InstallDir(cacheRoot, target), string(f)+target.ExecutableExt())
}
