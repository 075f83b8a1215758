// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Ortham

package bsa

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"sort"
	"sync"
)

const (
	tes3HeaderSize      = 12
	tes3FileRecordSize  = 8
	tes3NameOffsetSize  = 4
	tes3HashRecordSize  = 8
	tes3TableBufferSize = 64 * 1024
)

// tes3TableReaderPool reuses buffered readers for sequential tes3 index
// parsing, the same shape as the teacher's entryTableReaderPool.
var tes3TableReaderPool = sync.Pool{
	New: func() any {
		return bufio.NewReaderSize(bytes.NewReader(nil), tes3TableBufferSize)
	},
}

type tes3FileRecord struct {
	size       uint32
	dataOffset uint32
}

// openTes3 reads and validates a tes3 (Morrowind) archive from path.
func openTes3(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wrapErr(KindFilesystemError, err, "open %s", path)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, wrapErr(KindFilesystemError, err, "stat %s", path)
	}

	var header [tes3HeaderSize]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		return nil, wrapErr(KindParseFail, err, "read tes3 header")
	}

	version := binary.LittleEndian.Uint32(header[0:4])
	if version != tes3Version {
		return nil, newErr(KindParseFail, "tes3 version %#x, want %#x", version, tes3Version)
	}
	hashOffset := binary.LittleEndian.Uint32(header[4:8])
	fileCount := binary.LittleEndian.Uint32(header[8:12])

	indexLen := int64(hashOffset) + int64(fileCount)*tes3HashRecordSize
	if indexLen < 0 || tes3HeaderSize+indexLen > fi.Size() {
		return nil, newErr(KindParseFail, "tes3 index table (%d bytes) exceeds file size", indexLen)
	}

	sr := io.NewSectionReader(f, tes3HeaderSize, indexLen)
	br := tes3TableReaderPool.Get().(*bufio.Reader) //nolint:forcetypeassert // pool contains only *bufio.Reader
	br.Reset(sr)
	defer tes3TableReaderPool.Put(br)

	fileRecords := make([]tes3FileRecord, fileCount)
	for i := range fileRecords {
		var rec [tes3FileRecordSize]byte
		if _, err := io.ReadFull(br, rec[:]); err != nil {
			return nil, wrapErr(KindParseFail, err, "read tes3 file record %d", i)
		}
		fileRecords[i] = tes3FileRecord{
			size:       binary.LittleEndian.Uint32(rec[0:4]),
			dataOffset: binary.LittleEndian.Uint32(rec[4:8]),
		}
	}

	nameOffsets := make([]uint32, fileCount)
	for i := range nameOffsets {
		var b [tes3NameOffsetSize]byte
		if _, err := io.ReadFull(br, b[:]); err != nil {
			return nil, wrapErr(KindParseFail, err, "read tes3 name offset %d", i)
		}
		nameOffsets[i] = binary.LittleEndian.Uint32(b[:])
	}

	nameRecordsLen := int64(hashOffset) - int64(fileCount)*(tes3FileRecordSize+tes3NameOffsetSize)
	if nameRecordsLen < 0 {
		return nil, newErr(KindParseFail, "tes3 name table has negative length")
	}
	nameRecords := make([]byte, nameRecordsLen)
	if _, err := io.ReadFull(br, nameRecords); err != nil {
		return nil, wrapErr(KindParseFail, err, "read tes3 name records")
	}

	hashRecords := make([]uint64, fileCount)
	for i := range hashRecords {
		var b [tes3HashRecordSize]byte
		if _, err := io.ReadFull(br, b[:]); err != nil {
			return nil, wrapErr(KindParseFail, err, "read tes3 hash record %d", i)
		}
		hashRecords[i] = binary.LittleEndian.Uint64(b[:])
	}

	payloadStart := tes3HeaderSize + int64(hashOffset) + int64(fileCount)*tes3HashRecordSize

	assets := make(map[string]Asset, fileCount)
	var hashWarnings []string
	for i := uint32(0); i < fileCount; i++ {
		name, err := readNameAt(nameRecords, nameOffsets[i])
		if err != nil {
			return nil, wrapErr(KindParseFail, err, "tes3 entry %d name", i)
		}

		path, err := toUTF8(name)
		if err != nil {
			return nil, err
		}
		path = Normalize(path)

		// Mismatch is a soft integrity warning per the format: the
		// original engine recomputes the hash, logs a mismatch, and
		// keeps loading rather than rejecting the archive.
		if want := HashTes3(path); want != hashRecords[i] {
			hashWarnings = append(hashWarnings, newErr(KindParseFail,
				"tes3 entry %q: stored hash %#016x, recomputed %#016x", path, hashRecords[i], want).Error())
		}

		assets[path] = Asset{
			Path:   path,
			Hash:   hashRecords[i],
			Size:   fileRecords[i].size,
			Offset: uint32(payloadStart) + fileRecords[i].dataOffset,
		}
	}

	return &Archive{
		format:       FormatTes3,
		version:      version,
		sourcePath:   path,
		assets:       assets,
		hashWarnings: hashWarnings,
	}, nil
}

// readNameAt reads a zero-terminated Windows-1252 string out of a
// name-records blob starting at the given byte offset.
func readNameAt(blob []byte, offset uint32) ([]byte, error) {
	if int64(offset) > int64(len(blob)) {
		return nil, newErr(KindParseFail, "name offset %d exceeds table of %d bytes", offset, len(blob))
	}
	rest := blob[offset:]
	idx := bytes.IndexByte(rest, 0)
	if idx < 0 {
		return nil, newErr(KindParseFail, "unterminated name at offset %d", offset)
	}
	return rest[:idx], nil
}

// saveTes3 writes the archive's catalog out in tes3 layout. Tes3 payloads
// are never compressed; any non-zero compression level is rejected
// before any I/O happens.
func saveTes3(a *Archive, destPath string, flags SaveFlags) error {
	if flags.Compression != Level0 {
		return newErr(KindInvalidArgs, "tes3 archives cannot be compressed")
	}

	type entry struct {
		path       string
		hash       uint64
		size       uint32
		oldOffset  uint32
		dataOffset uint32
	}

	entries := make([]entry, 0, len(a.assets))
	for _, asset := range a.assets {
		entries = append(entries, entry{path: asset.Path, hash: asset.Hash, size: asset.Size, oldOffset: asset.Offset})
	}

	// Step 1: path order assigns sequential data offsets.
	sort.Slice(entries, func(i, j int) bool { return entries[i].path < entries[j].path })
	var cursor uint32
	for i := range entries {
		entries[i].dataOffset = cursor
		cursor += entries[i].size
	}
	pathOrder := make([]entry, len(entries))
	copy(pathOrder, entries)

	// Step 2: hash order is the on-disk table order.
	sort.Slice(entries, func(i, j int) bool { return entries[i].hash < entries[j].hash })

	nameBlobs := make([][]byte, len(entries))
	nameOffsets := make([]uint32, len(entries))
	var nameCursor uint32
	for i, e := range entries {
		raw, err := fromUTF8(e.path)
		if err != nil {
			return err
		}
		raw = append(raw, 0)
		nameBlobs[i] = raw
		nameOffsets[i] = nameCursor
		nameCursor += uint32(len(raw))
	}

	fileCount := uint32(len(entries))
	hashOffset := fileCount*(tes3FileRecordSize+tes3NameOffsetSize) + nameCursor

	srcPath := a.sourcePath
	outPath, staged := stagingPath(destPath, srcPath)

	out, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return wrapErr(KindFilesystemError, err, "create %s", outPath)
	}
	w := bufio.NewWriterSize(out, 1<<20)

	writeErr := func() error {
		var header [tes3HeaderSize]byte
		binary.LittleEndian.PutUint32(header[0:4], tes3Version)
		binary.LittleEndian.PutUint32(header[4:8], hashOffset)
		binary.LittleEndian.PutUint32(header[8:12], fileCount)
		if _, err := w.Write(header[:]); err != nil {
			return wrapErr(KindFilesystemError, err, "write tes3 header")
		}

		for _, e := range entries {
			var rec [tes3FileRecordSize]byte
			binary.LittleEndian.PutUint32(rec[0:4], e.size)
			binary.LittleEndian.PutUint32(rec[4:8], e.dataOffset)
			if _, err := w.Write(rec[:]); err != nil {
				return wrapErr(KindFilesystemError, err, "write tes3 file record")
			}
		}

		for _, off := range nameOffsets {
			var b [tes3NameOffsetSize]byte
			binary.LittleEndian.PutUint32(b[:], off)
			if _, err := w.Write(b[:]); err != nil {
				return wrapErr(KindFilesystemError, err, "write tes3 name offset")
			}
		}

		for _, blob := range nameBlobs {
			if _, err := w.Write(blob); err != nil {
				return wrapErr(KindFilesystemError, err, "write tes3 name record")
			}
		}

		for _, e := range entries {
			var b [tes3HashRecordSize]byte
			binary.LittleEndian.PutUint64(b[:], e.hash)
			if _, err := w.Write(b[:]); err != nil {
				return wrapErr(KindFilesystemError, err, "write tes3 hash record")
			}
		}

		src, err := os.Open(srcPath)
		if err != nil {
			return wrapErr(KindFilesystemError, err, "open source %s", srcPath)
		}
		defer src.Close()

		buf := make([]byte, 256*1024)
		for _, e := range pathOrder {
			if _, err := io.CopyBuffer(w, io.NewSectionReader(src, int64(e.oldOffset), int64(e.size)), buf); err != nil {
				return wrapErr(KindFilesystemError, err, "stream payload for %s", e.path)
			}
		}

		return w.Flush()
	}()

	closeErr := out.Close()
	if writeErr != nil {
		return writeErr
	}
	if closeErr != nil {
		return wrapErr(KindFilesystemError, closeErr, "close %s", outPath)
	}

	if staged {
		if err := os.Rename(outPath, destPath); err != nil {
			return wrapErr(KindFilesystemError, err, "rename %s to %s", outPath, destPath)
		}
	}

	return nil
}
