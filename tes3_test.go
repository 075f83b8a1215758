// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Ortham

package bsa

import (
	"os"
	"path/filepath"
	"testing"
)

// buildFakeSource writes payload blobs back-to-back into a file and
// returns the absolute byte offset each blob was written at, so tests
// can construct an Archive whose Asset.Offset points at real bytes
// without needing a fully-formed source archive.
func buildFakeSource(t *testing.T, dir string, blobs [][]byte) (path string, offsets []uint32) {
	t.Helper()

	path = filepath.Join(dir, "fake-source.bin")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fake source: %v", err)
	}
	defer f.Close()

	var cursor uint32
	for _, blob := range blobs {
		offsets = append(offsets, cursor)
		if _, err := f.Write(blob); err != nil {
			t.Fatalf("write fake source: %v", err)
		}
		cursor += uint32(len(blob))
	}

	return path, offsets
}

func TestTes3SaveOpenRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blobs := [][]byte{
		[]byte("armor mesh payload"),
		[]byte("texture payload data, a bit longer than the mesh one"),
		[]byte("x"),
	}
	srcPath, offsets := buildFakeSource(t, dir, blobs)

	paths := []string{
		`meshes\armor\cuirass.nif`,
		`textures\armor\cuirass.dds`,
		`icons\a.dds`,
	}

	assets := make(map[string]Asset, len(paths))
	for i, p := range paths {
		assets[p] = Asset{
			Path:   p,
			Hash:   HashTes3(p),
			Size:   uint32(len(blobs[i])),
			Offset: offsets[i],
		}
	}

	a := &Archive{format: FormatTes3, version: tes3Version, sourcePath: srcPath, assets: assets}

	outPath := filepath.Join(dir, "out.bsa")
	if err := a.Save(outPath, SaveFlags{Format: FormatTes3, Compression: Level0}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reopened, err := Open(outPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reopened.Close()

	if reopened.Format() != FormatTes3 {
		t.Fatalf("Format() = %v, want FormatTes3", reopened.Format())
	}
	if reopened.Len() != len(paths) {
		t.Fatalf("Len() = %d, want %d", reopened.Len(), len(paths))
	}

	for i, p := range paths {
		got, err := reopened.ExtractToBuffer(p)
		if err != nil {
			t.Fatalf("ExtractToBuffer(%q): %v", p, err)
		}
		if string(got) != string(blobs[i]) {
			t.Errorf("ExtractToBuffer(%q) = %q, want %q", p, got, blobs[i])
		}
	}
}

func TestTes3OpenRecordsHashMismatchAsWarning(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	srcPath, offsets := buildFakeSource(t, dir, [][]byte{[]byte("mismatched payload")})

	path := `meshes\broken.nif`
	assets := map[string]Asset{
		path: {
			Path:   path,
			Hash:   HashTes3(path) ^ 1, // deliberately wrong
			Size:   18,
			Offset: offsets[0],
		},
	}

	a := &Archive{format: FormatTes3, version: tes3Version, sourcePath: srcPath, assets: assets}
	outPath := filepath.Join(dir, "out.bsa")
	if err := a.Save(outPath, SaveFlags{Format: FormatTes3, Compression: Level0}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reopened, err := Open(outPath)
	if err != nil {
		t.Fatalf("Open should succeed despite a tes3 hash mismatch: %v", err)
	}
	defer reopened.Close()

	warnings := reopened.HashWarnings()
	if len(warnings) != 1 {
		t.Fatalf("HashWarnings() = %v, want exactly 1 entry", warnings)
	}

	if _, err := reopened.ExtractToBuffer(path); err != nil {
		t.Fatalf("ExtractToBuffer should still succeed after a soft hash warning: %v", err)
	}
}

func TestTes3SaveRejectsCompression(t *testing.T) {
	t.Parallel()

	a := &Archive{format: FormatTes3, sourcePath: "unused", assets: map[string]Asset{}}
	err := a.Save(filepath.Join(t.TempDir(), "out.bsa"), SaveFlags{Format: FormatTes3, Compression: Level9})
	if err == nil {
		t.Fatal("expected an error saving a compressed tes3 archive")
	}
}
