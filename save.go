// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Ortham

package bsa

import "path/filepath"

// Save writes the archive's catalog to destPath in the layout and
// compression policy selected by flags. The handle's in-memory catalog
// and SourcePath are not mutated by a successful save; a subsequent
// extract still reads from the original source file unless the archive
// is re-opened against the new output.
func (a *Archive) Save(destPath string, flags SaveFlags) error {
	if a.closed {
		return newErr(KindInvalidArgs, "archive is closed")
	}
	if destPath == "" {
		return newErr(KindInvalidArgs, "destPath is empty")
	}
	if err := flags.validate(); err != nil {
		return err
	}

	switch flags.Format {
	case FormatTes3:
		return saveTes3(a, destPath, flags)
	case FormatTes4, FormatTes5:
		return saveTes4(a, destPath, flags)
	default:
		return newErr(KindInvalidArgs, "unknown format %d", flags.Format)
	}
}

// stagingPath returns the path Save should actually write to, staging to
// "<destPath>.new" when destPath is the same file the archive was opened
// from. It reports whether staging was applied, in which case the caller
// must rename the staged file to destPath on success.
func stagingPath(destPath, sourcePath string) (path string, staged bool) {
	destAbs, errDest := filepath.Abs(destPath)
	srcAbs, errSrc := filepath.Abs(sourcePath)
	if errDest == nil && errSrc == nil && destAbs == srcAbs {
		return destPath + ".new", true
	}
	return destPath, false
}
