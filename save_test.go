// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Ortham

package bsa

import (
	"path/filepath"
	"testing"
)

func TestStagingPathSameFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "archive.bsa")

	path, staged := stagingPath(src, src)
	if !staged {
		t.Fatal("expected staging when destPath equals sourcePath")
	}
	if path != src+".new" {
		t.Errorf("stagingPath = %q, want %q", path, src+".new")
	}
}

func TestStagingPathDifferentFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "archive.bsa")
	dest := filepath.Join(dir, "other.bsa")

	path, staged := stagingPath(dest, src)
	if staged {
		t.Fatal("expected no staging when destPath differs from sourcePath")
	}
	if path != dest {
		t.Errorf("stagingPath = %q, want %q", path, dest)
	}
}

func TestSaveRejectsEmptyDestPath(t *testing.T) {
	t.Parallel()

	a := &Archive{format: FormatTes3, assets: map[string]Asset{}}
	if err := a.Save("", SaveFlags{Format: FormatTes3, Compression: Level0}); err == nil {
		t.Fatal("expected Save to reject an empty destPath")
	}
}

func TestSaveRejectsInvalidFlags(t *testing.T) {
	t.Parallel()

	a := &Archive{format: FormatTes3, assets: map[string]Asset{}}
	err := a.Save(filepath.Join(t.TempDir(), "out.bsa"), SaveFlags{Format: FormatTes3, Compression: Level5})
	if err == nil {
		t.Fatal("expected Save to reject a compressed tes3 flag combination")
	}
}
