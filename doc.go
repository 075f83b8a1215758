// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Ortham

// Package bsa reads, inspects, extracts from, and rewrites Bethesda
// Softworks Archive (BSA) files: Morrowind's tes3 layout and the
// Oblivion-through-Skyrim-Special-Edition tes4/SSE layout.
//
// # Reading
//
// Open auto-detects the on-disk layout from the file's magic bytes and
// returns a read-only handle over its catalog:
//
//	a, err := bsa.Open("Skyrim - Meshes.bsa")
//	if err != nil {
//		return err
//	}
//	defer a.Close()
//
// # Finding assets
//
// Assets takes a case-insensitive regular expression; an empty pattern
// matches every asset in the catalog:
//
//	clutter, err := a.Assets(`^meshes\\clutter\\`)
//
// Has and Get look up one asset by its normalized path.
//
// # Extracting
//
// ExtractOne and ExtractMany write decompressed payloads to disk;
// ExtractToBuffer returns a payload in memory instead:
//
//	if err := a.ExtractOne(`meshes\clutter\apple01.nif`, "out/apple01.nif", false); err != nil {
//		return err
//	}
//
//	data, err := a.ExtractToBuffer(`meshes\clutter\apple01.nif`)
//
// Checksum returns the CRC-32 of an asset's decompressed payload, useful
// for verifying an extracted copy against the archive without
// re-reading both from disk.
//
// # Saving
//
// Save rewrites the catalog to a new file in the layout and compression
// policy given by SaveFlags. It never mutates the handle it is called
// on; a subsequent extract still reads from the original source file.
//
//	err := a.Save("Skyrim - Meshes.bsa", bsa.SaveFlags{
//		Format:      bsa.FormatTes5,
//		Compression: bsa.NoChange,
//	})
//
// # Path conventions
//
// Asset paths are backslash-separated and case-insensitive on disk;
// Normalize and Split implement the same folding rules the engines use
// for path comparison and are exported so callers can match the
// catalog's conventions when building their own paths.
//
// # Limitations
//
// An Archive is not safe for concurrent use by multiple goroutines;
// distinct Archives are independent. There is no in-place archive
// mutation — Save always produces a new file. Tes3 archives cannot be
// compressed; passing anything but Level0 to Save for FormatTes3 is
// rejected as ErrInvalidArgs. A tes3 archive whose stored hash does not
// match its recomputed path hash still opens successfully (the original
// engine logs and continues rather than rejecting the file); call
// HashWarnings to see what, if anything, didn't match. Tes4/SSE has no
// equivalent: a hash mismatch there fails Open outright.
package bsa
