package backup

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// CurrentVersion is stamped on every exported envelope.
const CurrentVersion = "1.0.0"

// Envelopes written before versioning carry no version and are read as 1.0.0.
const legacyVersion = "1.0.0"

var supported = mustConstraint("^1")

func mustConstraint(c string) *semver.Constraints {
	constraint, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return constraint
}

// CheckVersion reports whether an envelope version can be imported.
func CheckVersion(version string) error {
	if version == "" {
		version = legacyVersion
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("version %q is not a semantic version", version)
	}
	if !supported.Check(v) {
		return fmt.Errorf("version %s is not supported (want %s)", v, supported)
	}
	return nil
}
