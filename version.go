// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Ortham

package bsa

const (
	versionMajor = 1
	versionMinor = 0
	versionPatch = 0
)

// Version reports this package's semantic version.
func Version() (major, minor, patch int) {
	return versionMajor, versionMinor, versionPatch
}

// IsCompatible reports whether a client built against the given version
// can use this package, under ordinary semver rules: same major version,
// and not newer in minor.patch than what is actually available.
func IsCompatible(major, minor, patch int) bool {
	if major != versionMajor {
		return false
	}
	if minor != versionMinor {
		return minor < versionMinor
	}
	return patch <= versionPatch
}
