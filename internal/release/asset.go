package release

import (
	"fmt"
	"regexp"

	"lbt/internal/framework"
)

// AssetType is the platform classification of a release asset.
type AssetType string

const (
	AssetAndroid AssetType = "android"
	AssetIOS     AssetType = "ios"
	AssetMacOS   AssetType = "macos"
	AssetLinux   AssetType = "linux"
	AssetWin64   AssetType = "win64"
	// AssetOther covers checksums, changelogs and source archives.
	AssetOther AssetType = "other"
)

var assetPattern = regexp.MustCompile(`^(love|lovr)-(v?\d+(?:\.\d+)*)[-.](?P<os>android|ios|macos|win64|x86_64|apk|app)\.(apk|zip|AppImage)$`)

var assetOSIndex = assetPattern.SubexpIndex("os")

// Classify maps a release asset filename to the platform it targets.
// Filenames that do not look like a framework build are AssetOther.
func Classify(name string) (AssetType, error) {
	m := assetPattern.FindStringSubmatch(name)
	if m == nil {
		return AssetOther, nil
	}
	switch token := m[assetOSIndex]; token {
	case "android", "apk":
		return AssetAndroid, nil
	case "ios":
		return AssetIOS, nil
	case "macos", "app":
		return AssetMacOS, nil
	case "x86_64":
		return AssetLinux, nil
	case "win64":
		return AssetWin64, nil
	default:
		// Unreachable while every alternative in assetPattern is mapped above.
		// A token added to the pattern without a case lands here.
		return AssetOther, fmt.Errorf("unknown asset os: %s", token)
	}
}

// Target returns the build target an asset type serves.
func (t AssetType) Target() (framework.Target, bool) {
	switch t {
	case AssetAndroid:
		return framework.TargetAndroid, true
	case AssetIOS:
		return framework.TargetIOS, true
	case AssetMacOS:
		return framework.TargetMacOS, true
	case AssetLinux:
		return framework.TargetLinux, true
	case AssetWin64:
		return framework.TargetWin64, true
	default:
		return "", false
	}
}

// Asset is a downloadable file attached to a release.
type Asset struct {
	Name               string    `json:"name"`
	BrowserDownloadURL string    `json:"browser_download_url"`
	Size               int64     `json:"size"`
	ContentType        string    `json:"content_type"`
	Type               AssetType `json:"-"`
}

// IsZip reports whether the asset is a zip container that must be extracted.
func (a Asset) IsZip() bool {
	return hasSuffixFold(a.Name, ".zip")
}
