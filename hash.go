// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Ortham

package bsa

import "math/bits"

// HashTes3 computes Morrowind's path hash. path must already be
// normalized (see Normalize).
func HashTes3(path string) uint64 {
	n := len(path)
	half := n >> 1

	var sum uint32
	var off uint32
	for i := 0; i < half; i++ {
		sum ^= uint32(path[i]) << (off & 0x1F)
		off += 8
	}
	lo := sum

	sum, off = 0, 0
	for i := half; i < n; i++ {
		t := uint32(path[i]) << (off & 0x1F)
		sum ^= t
		sum = bits.RotateLeft32(sum, -int(t&0x1F))
		off += 8
	}
	hi := sum

	return uint64(hi)<<32 | uint64(lo)
}

// HashTes4 computes the Oblivion/Skyrim/Fallout/SSE path hash of a full
// asset path. path must already be normalized (see Normalize); any
// folder component is discarded, matching the engine's own behavior of
// hashing a file by its name and extension alone.
func HashTes4(path string) uint64 {
	_, stem, ext := Split(path)
	return hashTes4Parts(stem, ext)
}

// hashTes4FolderPath hashes a bare folder path (e.g. `meshes\clutter`)
// as a single unit, with no extension. Unlike HashTes4, this does NOT
// strip the folder's own last segment: a multi-component folder path is
// hashed in full, matching how tes4/SSE folder records are keyed.
func hashTes4FolderPath(folder string) uint64 {
	return hashTes4Parts(folder, "")
}

// hashTes4Parts implements the core tes4/SSE hash formula over an
// already-split stem and extension.
func hashTes4Parts(stem, ext string) uint64 {
	var h1 uint64
	var h2, h3 uint32

	n := len(stem)
	if n > 0 {
		h1 = uint64(stem[n-1]) | uint64(n)<<16 | uint64(stem[0])<<24
		if n > 2 {
			h1 |= uint64(stem[n-2]) << 8
			if n > 3 {
				// tes4bsa.cpp's CalcHash mini-hashes the interior of the
				// stem only: path.substr(1, len-3), i.e. everything
				// except the first character and the last two.
				h2 = miniHash(stem[1 : n-2])
			}
		}
	}

	if ext != "" {
		switch ext {
		case ".kf":
			h1 |= 0x00000080
		case ".nif":
			h1 |= 0x00008000
		case ".dds":
			h1 |= 0x00008080
		case ".wav":
			h1 |= 0x80000000
		}
		h3 = miniHash(ext)
	}

	h2 += h3
	return uint64(h2)<<32 | h1
}

// miniHash folds a string into a 32-bit hash: h = 0x1003F*h + byte, with
// both operations wrapping in uint32.
func miniHash(s string) uint32 {
	var h uint32
	for i := 0; i < len(s); i++ {
		h = 0x1003F*h + uint32(s[i])
	}
	return h
}
