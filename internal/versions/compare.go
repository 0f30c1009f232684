package versions

import "github.com/Masterminds/semver/v3"

// IsNewerVersion reports whether newVersion is strictly greater than oldVersion.
// Both are compared as semantic versions when they parse, and as plain strings
// otherwise.
func IsNewerVersion(newVersion, oldVersion string) bool {
	newSemver, errNew := semver.NewVersion(newVersion)
	oldSemver, errOld := semver.NewVersion(oldVersion)

	if errNew != nil || errOld != nil {
		return newVersion > oldVersion
	}

	return newSemver.GreaterThan(oldSemver)
}

// WrittenByNewer reports whether a report recorded by version recorded came
// from a release newer than the running binary. Development builds never
// compare as newer or older.
func WrittenByNewer(recorded string) bool {
	current := GetVersionInfo().Version
	if !isRelease(recorded) || !isRelease(current) {
		return false
	}
	return IsNewerVersion(recorded, current)
}

func isRelease(v string) bool {
	_, err := semver.NewVersion(v)
	return err == nil
}
