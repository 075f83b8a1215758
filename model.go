// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Ortham

package bsa

// On-disk format constants shared by the tes4/SSE reader and writer.
const (
	// fileInvertCompressed is the high bit of a tes4/SSE file record's
	// size field. Its presence XORs the archive-wide BSA_COMPRESSED flag
	// for that one file.
	fileInvertCompressed uint32 = 0x40000000
	// bsaCompressed is the archive_flags bit that makes every file in
	// the archive compressed by default.
	bsaCompressed uint32 = 0x0004

	tes3Version     uint32 = 0x100
	tes4MagicOblion uint32 = 0x67
	tes4MagicSkyrim uint32 = 0x68
	tes4MagicSSE    uint32 = 0x69
)

// Format identifies which on-disk BSA layout an archive uses or should be
// written as.
type Format int

// The three layouts this package reads and writes.
const (
	// FormatTes3 is the Morrowind layout.
	FormatTes3 Format = iota
	// FormatTes4 is the classic Oblivion/Skyrim/Fallout layout.
	FormatTes4
	// FormatTes5 is the Skyrim Special Edition variant of the tes4
	// layout (64-bit folder-record offsets).
	FormatTes5
)

func (f Format) String() string {
	switch f {
	case FormatTes3:
		return "Tes3"
	case FormatTes4:
		return "Tes4"
	case FormatTes5:
		return "Tes5"
	default:
		return "Unknown"
	}
}

// Compression selects a save-time zlib compression level, or the sentinel
// value that preserves each file's existing compressed/uncompressed state.
type Compression int

// Compression levels accepted by Save. Level0 is the only level
// FormatTes3 accepts. For tes4/SSE, Level0 clears the archive-wide
// BSA_COMPRESSED flag and Level1..Level9 set it; Save never re-encodes a
// payload, so no level changes a file's stored compressed state.
const (
	Level0 Compression = iota
	Level1
	Level2
	Level3
	Level4
	Level5
	Level6
	Level7
	Level8
	Level9
	// NoChange preserves the source archive's per-file compressed state
	// when re-saving; it has no meaning for a freshly built archive.
	NoChange
)

// SaveFlags selects the on-disk format and compression policy for Save.
type SaveFlags struct {
	Format      Format
	Compression Compression
}

// validate reports the flag-level constraints: FormatTes3 cannot carry a
// compressed payload, and Compression must be one of the defined values.
func (f SaveFlags) validate() error {
	if f.Format == FormatTes3 && f.Compression != Level0 {
		return newErr(KindInvalidArgs, "tes3 archives cannot be compressed (got level %d)", f.Compression)
	}
	if f.Compression < Level0 || f.Compression > NoChange {
		return newErr(KindInvalidArgs, "compression level %d out of range", f.Compression)
	}
	return nil
}

// Asset describes one file stored in an archive's catalog.
type Asset struct {
	// Path is the canonical, normalized, UTF-8 path (see Normalize).
	Path string
	// Hash is the format-specific path hash (see HashTes3/HashTes4).
	Hash uint64
	// Size is the stored payload size in bytes. For tes4/SSE this
	// includes the FILE_INVERT_COMPRESSED high bit; use StoredSize for
	// the actual byte count on disk.
	Size uint32
	// Offset is the absolute byte offset of the payload within the
	// source archive file.
	Offset uint32
	// compressed records whether this asset's payload is stored zlib
	// compressed, resolved at load time from the archive-wide flag XOR
	// this asset's FILE_INVERT_COMPRESSED bit. Always false for tes3.
	compressed bool
}

// Compressed reports whether this asset's payload is stored zlib
// compressed in the source archive.
func (a Asset) Compressed() bool {
	return a.compressed
}

// StoredSize is the number of payload bytes actually present on disk at
// Offset, with the FILE_INVERT_COMPRESSED bit masked off.
func (a Asset) StoredSize() uint32 {
	return a.Size &^ fileInvertCompressed
}

// Archive is a read handle over one opened BSA file. It is immutable
// after Open returns: Save produces a new file without mutating the
// handle's catalog, and extraction always re-reads SourcePath. A single
// Archive is not safe for concurrent use; distinct Archives are.
type Archive struct {
	format       Format
	version      uint32
	sourcePath   string
	archiveFlags uint32
	fileFlags    uint32
	assets       map[string]Asset
	// hashWarnings records tes3 entries whose stored hash did not match
	// the recomputed one. Tes3 treats this as a soft integrity warning
	// (the original engine logs and continues); tes4/SSE instead fails
	// Open outright, so this is always empty for those formats.
	hashWarnings []string
	closed       bool
}

// Format reports which on-disk layout this archive was read from.
func (a *Archive) Format() Format {
	return a.format
}

// SourcePath returns the path this handle was opened from. Extraction
// operations re-read payloads from this path.
func (a *Archive) SourcePath() string {
	return a.sourcePath
}

// ArchiveFlags returns the raw tes4/SSE archive_flags bitfield, preserved
// verbatim from the header. Always zero for tes3.
func (a *Archive) ArchiveFlags() uint32 {
	return a.archiveFlags
}

// FileFlags returns the raw tes4/SSE file_flags bitfield, preserved
// verbatim from the header. Always zero for tes3.
func (a *Archive) FileFlags() uint32 {
	return a.fileFlags
}

// Len reports the number of assets in the catalog.
func (a *Archive) Len() int {
	return len(a.assets)
}

// HashWarnings reports any tes3 entries whose stored hash did not match
// HashTes3(Normalize(path)) when the archive was opened. The mismatch is
// not fatal (the original engine logs and continues), so callers that
// care about catalog integrity should inspect this rather than assume
// a successful Open means every hash verified. Always empty for
// tes4/SSE, which fails Open outright on a hash mismatch instead.
func (a *Archive) HashWarnings() []string {
	return append([]string(nil), a.hashWarnings...)
}
