package release

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"lbt/internal/framework"
	"lbt/internal/version"
)

var (
	// ErrReleaseNotFound is returned when no release carries the requested tag.
	ErrReleaseNotFound = errors.New("release not found")
	// ErrAssetNotFound is returned when a release has no asset for a target.
	ErrAssetNotFound = errors.New("no release asset for target")
)

// Release is a published GitHub release.
type Release struct {
	Tag         string    `json:"tag_name"`
	Name        string    `json:"name"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
	HTMLURL     string    `json:"html_url"`
	Assets      []Asset   `json:"assets"`
}

// Version parses the release tag.
func (r Release) Version() (version.Version, error) {
	return version.Parse(r.Tag)
}

// AssetFor returns the first asset built for target.
func (r *Release) AssetFor(target framework.Target) (*Asset, bool) {
	for i := range r.Assets {
		if t, ok := r.Assets[i].Type.Target(); ok && t == target {
			return &r.Assets[i], true
		}
	}
	return nil, false
}

// AssetForHost returns the asset matching the running OS.
func (r *Release) AssetForHost() (*Asset, bool) {
	return r.AssetFor(framework.HostTarget())
}

// AssetError reports a release without an asset for a target.
type AssetError struct {
	Tag    string
	Target framework.Target
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("release %s has no download for %s", e.Tag, e.Target)
}

func (e *AssetError) Unwrap() error { return ErrAssetNotFound }

// Find returns the release whose tag equals v exactly. Tags that do not parse
// as versions are ignored.
func Find(releases []Release, v version.Version) (*Release, error) {
	for i := range releases {
		tag, err := releases[i].Version()
		if err != nil {
			continue
		}
		if tag.Equal(v) {
			return &releases[i], nil
		}
	}
	return nil, fmt.Errorf("release version %s: %w", v, ErrReleaseNotFound)
}

// Sort orders releases newest first by semantic version. Tags semver cannot
// read sort last in their original order.
func Sort(releases []Release) {
	sort.SliceStable(releases, func(i, j int) bool {
		a, b := canonicalTag(releases[i].Tag), canonicalTag(releases[j].Tag)
		switch {
		case a == "" && b == "":
			return false
		case a == "":
			return false
		case b == "":
			return true
		}
		return semver.Compare(a, b) > 0
	})
}

// Latest returns the newest non-draft release, skipping prereleases unless
// includePrerelease is set.
func Latest(releases []Release, includePrerelease bool) (*Release, bool) {
	var best *Release
	bestTag := ""
	for i := range releases {
		r := &releases[i]
		if r.Draft || (r.Prerelease && !includePrerelease) {
			continue
		}
		tag := canonicalTag(r.Tag)
		if tag == "" {
			continue
		}
		if best == nil || semver.Compare(tag, bestTag) > 0 {
			best, bestTag = r, tag
		}
	}
	return best, best != nil
}

func canonicalTag(tag string) string {
	tag = strings.TrimSpace(tag)
	if !strings.HasPrefix(tag, "v") {
		tag = "v" + tag
	}
	if !semver.IsValid(tag) {
		return ""
	}
	return tag
}

func hasSuffixFold(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}
