package framework

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// Target is a platform a project can be built for.
type Target string

const (
	TargetWin64   Target = "win64"
	TargetMacOS   Target = "macos"
	TargetLinux   Target = "linux"
	TargetIOS     Target = "ios"
	TargetAndroid Target = "android"
)

var targetDirs = map[Target]string{
	TargetWin64:   "windows",
	TargetMacOS:   "macos",
	TargetLinux:   "linux",
	TargetIOS:     "ios",
	TargetAndroid: "android",
}

// Targets returns every known target sorted by name.
func Targets() []Target {
	out := make([]Target, 0, len(targetDirs))
	for t := range targetDirs {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseTarget accepts the config spelling (win64) as well as the OS
// directory name (windows).
func ParseTarget(s string) (Target, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if _, ok := targetDirs[Target(s)]; ok {
		return Target(s), nil
	}
	for t, dir := range targetDirs {
		if dir == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown target: %s", s)
}

// HostTarget maps the running OS to a target. Unknown systems fall back to
// linux, which is the closest cache layout.
func HostTarget() Target {
	switch runtime.GOOS {
	case "windows":
		return TargetWin64
	case "darwin":
		return TargetMacOS
	case "ios":
		return TargetIOS
	case "android":
		return TargetAndroid
	default:
		return TargetLinux
	}
}

// Dir is the OS directory name used by the install cache and build output.
func (t Target) Dir() string {
	if dir, ok := targetDirs[t]; ok {
		return dir
	}
	return string(t)
}

func (t Target) Valid() bool {
	_, ok := targetDirs[t]
	return ok
}

func (t Target) String() string {
	return string(t)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Target) UnmarshalText(text []byte) error {
	parsed, err := ParseTarget(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// LibraryExt is the file extension of native libraries shipped next to the
// interpreter for the target.
func (t Target) LibraryExt() string {
	switch t {
	case TargetWin64:
		return ".dll"
	case TargetMacOS:
		return ".dylib"
	case TargetLinux, TargetAndroid:
		return ".so"
	default:
		return ""
	}
}

// ExecutableExt is the extension of the interpreter artefact for the target.
func (t Target) ExecutableExt() string {
	switch t {
	case TargetWin64:
		return ".exe"
	case TargetMacOS:
		return ".app"
	case TargetLinux:
		return ".AppImage"
	case TargetAndroid:
		return ".apk"
	case TargetIOS:
		return ".ipa"
	default:
		return ""
	}
}
