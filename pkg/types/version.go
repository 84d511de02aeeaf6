package types

import (
	"github.com/Masterminds/semver/v3"
)

// VersionChange classifies the move between two reported versions.
type VersionChange string

const (
	VersionSame      VersionChange = "same"
	VersionUpgrade   VersionChange = "upgrade"
	VersionDowngrade VersionChange = "downgrade"
	// VersionChanged is used when either side is not a semantic version.
	VersionChanged VersionChange = "changed"
)

// CompareVersions compares two bridge reported versions. Versions are free
// form; semantic ordering is applied only when both sides parse.
func CompareVersions(prev, next string) VersionChange {
	if prev == next {
		return VersionSame
	}
	pv, err := semver.NewVersion(prev)
	if err != nil {
		return VersionChanged
	}
	nv, err := semver.NewVersion(next)
	if err != nil {
		return VersionChanged
	}
	switch pv.Compare(nv) {
	case -1:
		return VersionUpgrade
	case 1:
		return VersionDowngrade
	default:
		return VersionSame
	}
}
