package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrParse is wrapped by every ParseError.
	ErrParse = errors.New("invalid version")
	// ErrBelowMinimum is returned when a requested build version is older
	// than the framework supports.
	ErrBelowMinimum = errors.New("version below minimum")
)

// Version is a major.minor[.patch] identifier. The zero value is 0.0.
type Version struct {
	major    uint
	minor    uint
	patch    uint
	hasPatch bool
}

// New builds a version without a patch component.
func New(major, minor uint) Version {
	return Version{major: major, minor: minor}
}

// NewPatch builds a version with an explicit patch component.
func NewPatch(major, minor, patch uint) Version {
	return Version{major: major, minor: minor, patch: patch, hasPatch: true}
}

func (v Version) Major() uint { return v.major }
func (v Version) Minor() uint { return v.minor }

// Patch returns the patch number and whether one was given.
func (v Version) Patch() (uint, bool) {
	return v.patch, v.hasPatch
}

// IsZero reports whether v is the zero value.
func (v Version) IsZero() bool {
	return v == Version{}
}

func (v Version) String() string {
	if v.hasPatch {
		return fmt.Sprintf("%d.%d.%d", v.major, v.minor, v.patch)
	}
	return fmt.Sprintf("%d.%d", v.major, v.minor)
}

// ParseError describes a version string that could not be parsed.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid version %q: %s", e.Input, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// Parse reads "major.minor" or "major.minor.patch", optionally prefixed with v.
func Parse(s string) (Version, error) {
	raw := s
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	if s == "" {
		return Version{}, &ParseError{Input: raw, Reason: "empty"}
	}

	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return Version{}, &ParseError{Input: raw, Reason: "expected major.minor"}
	}
	if len(parts) > 3 {
		return Version{}, &ParseError{Input: raw, Reason: "too many components"}
	}

	nums := make([]uint, len(parts))
	for i, part := range parts {
		n, err := parseComponent(part)
		if err != nil {
			return Version{}, &ParseError{Input: raw, Reason: err.Error()}
		}
		nums[i] = n
	}

	if len(nums) == 3 {
		return NewPatch(nums[0], nums[1], nums[2]), nil
	}
	return New(nums[0], nums[1]), nil
}

func parseComponent(part string) (uint, error) {
	if part == "" {
		return 0, errors.New("empty component")
	}
	for _, r := range part {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-numeric component %q", part)
		}
	}
	n, err := strconv.ParseUint(part, 10, 0)
	if err != nil {
		return 0, fmt.Errorf("component %q out of range", part)
	}
	return uint(n), nil
}

// MustParse is like Parse but panics on error. Use it for constants.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Compare returns -1, 0 or +1. A version without a patch sorts before any
// version with a patch for the same major and minor, so 11.5 < 11.5.0.
func Compare(a, b Version) int {
	if c := cmpUint(a.major, b.major); c != 0 {
		return c
	}
	if c := cmpUint(a.minor, b.minor); c != 0 {
		return c
	}
	switch {
	case !a.hasPatch && !b.hasPatch:
		return 0
	case !a.hasPatch:
		return -1
	case !b.hasPatch:
		return 1
	}
	return cmpUint(a.patch, b.patch)
}

func cmpUint(a, b uint) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (v Version) Less(other Version) bool  { return Compare(v, other) < 0 }
func (v Version) Equal(other Version) bool { return Compare(v, other) == 0 }

// MinimumError reports a build version older than the framework minimum.
type MinimumError struct {
	Requested Version
	Minimum   Version
}

func (e *MinimumError) Error() string {
	return fmt.Sprintf("version %s below minimum supported %s", e.Requested, e.Minimum)
}

func (e *MinimumError) Unwrap() error { return ErrBelowMinimum }

// CheckMinimum fails when requested is older than minimum.
func CheckMinimum(requested, minimum Version) error {
	if requested.Less(minimum) {
		return &MinimumError{Requested: requested, Minimum: minimum}
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
