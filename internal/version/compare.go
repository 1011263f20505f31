// Package version compares version strings for update reporting.
package version

import "github.com/Masterminds/semver/v3"

// IsNewer reports whether newVersion is strictly greater than oldVersion.
// Semantic versioning is used when both strings parse as semver; otherwise
// plain lexicographic comparison decides.
func IsNewer(newVersion, oldVersion string) bool {
	newSemver, errNew := semver.NewVersion(newVersion)
	oldSemver, errOld := semver.NewVersion(oldVersion)

	if errNew != nil || errOld != nil {
		return newVersion > oldVersion
	}

	return newSemver.GreaterThan(oldSemver)
}
