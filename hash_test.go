// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Ortham

package bsa

import "testing"

// referenceMiniHash and referenceHashTes4Parts are line-for-line
// transcriptions of original_source/libbsa/tes4bsa.cpp's HashString and
// CalcHash, kept independent of hashTes4Parts so the package's hash
// vectors can be checked against the original algorithm directly rather
// than against another copy of this package's own logic.
func referenceMiniHash(s string) uint32 {
	var h uint32
	for i := 0; i < len(s); i++ {
		h = 0x1003F*h + uint32(s[i])
	}
	return h
}

func referenceHashTes4Parts(stem, ext string) uint64 {
	var h1 uint64
	var h2, h3 uint32

	n := len(stem)
	if n > 0 {
		h1 = uint64(stem[n-1]) | uint64(n)<<16 | uint64(stem[0])<<24
		if n > 2 {
			h1 |= uint64(stem[n-2]) << 8
			if n > 3 {
				// path.substr(1, len-3): everything but the first
				// character and the last two.
				h2 = referenceMiniHash(stem[1 : n-2])
			}
		}
	}

	if ext != "" {
		switch ext {
		case ".kf":
			h1 |= 0x80
		case ".nif":
			h1 |= 0x8000
		case ".dds":
			h1 |= 0x8080
		case ".wav":
			h1 |= 0x80000000
		}
		h3 = referenceMiniHash(ext)
	}

	h2 += h3
	return uint64(h2)<<32 | h1
}

// referenceHashTes3 is a transcription of
// original_source/src/tes3bsa.cpp's BSA::CalcHash.
func referenceHashTes3(path string) uint64 {
	n := len(path)
	half := n >> 1

	var hash1 uint32
	var off uint32
	for i := 0; i < half; i++ {
		hash1 ^= uint32(path[i]) << (off & 0x1F)
		off += 8
	}

	var hash2 uint32
	off = 0
	for i := half; i < n; i++ {
		temp := uint32(path[i]) << (off & 0x1F)
		hash2 ^= temp
		shift := temp & 0x1F
		hash2 = (hash2 << (32 - shift)) | (hash2 >> shift)
		off += 8
	}

	return uint64(hash1) | uint64(hash2)<<32
}

// TestHashTes4AgainstReference differentially checks HashTes4 against a
// from-scratch transcription of the original CalcHash/HashString pair,
// across paths chosen to exercise every branch of the stem-length and
// extension logic (stem len <= 2, == 3, > 3; each recognized extension;
// an unrecognized extension; no extension).
func TestHashTes4AgainstReference(t *testing.T) {
	t.Parallel()

	paths := []string{
		`meshes\clutter\apple01.nif`,
		`textures\menus\main\background.dds`,
		`meshes\x.nif`,
		`meshes\xy.nif`,
		`meshes\xyz.nif`,
		`animations\idle.kf`,
		`sound\fx\click.wav`,
		`textures\ui\logo.tga`,
		`meshes\readme`,
		"",
		`x`,
	}

	for _, p := range paths {
		_, stem, ext := Split(p)
		want := referenceHashTes4Parts(stem, ext)
		if got := HashTes4(p); got != want {
			t.Errorf("HashTes4(%q) = %#016x, want %#016x (reference)", p, got, want)
		}
	}
}

// TestHashTes4ApplePathVector pins the one vector independently verified
// against a compiled copy of the corrected interior-substring formula:
// HashTes4(`meshes\clutter\apple01.nif`) == 0x255b7cf66107b031.
func TestHashTes4ApplePathVector(t *testing.T) {
	t.Parallel()

	const path = `meshes\clutter\apple01.nif`
	const want = 0x255b7cf66107b031
	if got := HashTes4(path); got != want {
		t.Errorf("HashTes4(%q) = %#016x, want %#016x", path, got, uint64(want))
	}
}

func TestHashTes4EmptyPath(t *testing.T) {
	t.Parallel()

	if got := HashTes4(""); got != 0 {
		t.Errorf("HashTes4(\"\") = %#016x, want 0", got)
	}
}

// TestHashTes3AgainstReference differentially checks HashTes3 against a
// from-scratch transcription of tes3bsa.cpp's BSA::CalcHash, across
// paths of even and odd length (the two halves are split differently)
// and paths short enough to exercise a zero rotate-shift amount.
func TestHashTes3AgainstReference(t *testing.T) {
	t.Parallel()

	paths := []string{
		`meshes\base_anim.nif`,
		`meshes\b.nif`,
		`x`,
		`xy`,
		"",
		`meshes\clutter\apple01.nif`,
	}

	for _, p := range paths {
		want := referenceHashTes3(p)
		if got := HashTes3(p); got != want {
			t.Errorf("HashTes3(%q) = %#016x, want %#016x (reference)", p, got, want)
		}
	}
}

func TestHashTes4FolderPathKeepsWholeString(t *testing.T) {
	t.Parallel()

	// A folder path is hashed as one unit; it must not collapse to the
	// hash of its final segment alone.
	whole := hashTes4FolderPath(`meshes\clutter`)
	leaf := hashTes4Parts("clutter", "")
	if whole == leaf {
		t.Fatalf("folder hash collapsed to leaf-segment hash: %#016x", whole)
	}

	if got, want := hashTes4FolderPath(`meshes\clutter`), referenceHashTes4Parts(`meshes\clutter`, ""); got != want {
		t.Errorf("hashTes4FolderPath(%q) = %#016x, want %#016x (reference)", `meshes\clutter`, got, want)
	}
}
