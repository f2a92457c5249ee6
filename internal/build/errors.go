package build

import (
	"errors"
	"fmt"

	"lbt/internal/framework"
	"lbt/internal/release"
	"lbt/internal/version"
)

var (
	// ErrUnsupportedTarget is wrapped by UnsupportedTargetError.
	ErrUnsupportedTarget = errors.New("unsupported target")
	// ErrUnknownFramework is returned when Options.Framework has no definition.
	ErrUnknownFramework = errors.New("unknown framework")
)

// UnsupportedTargetError reports a pipeline stage not implemented for a target.
type UnsupportedTargetError struct {
	Target framework.Target
	Stage  string
}

func (e *UnsupportedTargetError) Error() string {
	return fmt.Sprintf("%s: %v %s", e.Stage, ErrUnsupportedTarget, e.Target)
}

func (e *UnsupportedTargetError) Unwrap() error { return ErrUnsupportedTarget }

// IsFatal reports whether err stops a target's pipeline at once. An unknown
// framework, the version gate and missing releases or assets leave nothing
// for later stages to do.
func IsFatal(err error) bool {
	return errors.Is(err, ErrUnknownFramework) ||
		errors.Is(err, version.ErrBelowMinimum) ||
		errors.Is(err, release.ErrReleaseNotFound) ||
		errors.Is(err, release.ErrAssetNotFound)
}
