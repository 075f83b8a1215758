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
)

const (
	tes4HeaderSize          = 36
	tes4FolderRecordSize    = 16
	tes4FolderRecordSizeSSE = 24
	tes4FileRecordSize      = 16
)

var tes4Magic = [4]byte{'B', 'S', 'A', 0}

type tes4Header struct {
	version             uint32
	archiveFlags        uint32
	folderCount         uint32
	fileCount           uint32
	totalFolderNameLen  uint32
	totalFileNameLen    uint32
	fileFlags           uint32
}

type tes4FolderRecord struct {
	hash   uint64
	count  uint32
	offset uint64
}

type tes4FileRecord struct {
	hash       uint64
	size       uint32
	dataOffset uint32
}

func isSSE(version uint32) bool { return version == tes4MagicSSE }

// openTes4 reads and validates a tes4/SSE archive from path.
func openTes4(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wrapErr(KindFilesystemError, err, "open %s", path)
	}
	defer f.Close()

	var raw [tes4HeaderSize]byte
	if _, err := io.ReadFull(f, raw[:]); err != nil {
		return nil, wrapErr(KindParseFail, err, "read tes4 header")
	}

	if !bytes.Equal(raw[0:4], tes4Magic[:]) {
		return nil, newErr(KindParseFail, "bad tes4 magic")
	}

	h := tes4Header{
		version:            binary.LittleEndian.Uint32(raw[4:8]),
		archiveFlags:       binary.LittleEndian.Uint32(raw[12:16]),
		folderCount:        binary.LittleEndian.Uint32(raw[16:20]),
		fileCount:          binary.LittleEndian.Uint32(raw[20:24]),
		totalFolderNameLen: binary.LittleEndian.Uint32(raw[24:28]),
		totalFileNameLen:   binary.LittleEndian.Uint32(raw[28:32]),
		fileFlags:          binary.LittleEndian.Uint32(raw[32:36]),
	}
	folderRecordOffset := binary.LittleEndian.Uint32(raw[8:12])
	if folderRecordOffset != tes4HeaderSize {
		return nil, newErr(KindParseFail, "folder_record_offset %d, want %d", folderRecordOffset, tes4HeaderSize)
	}

	switch h.version {
	case tes4MagicOblion, tes4MagicSkyrim, tes4MagicSSE:
	default:
		return nil, newErr(KindParseFail, "unrecognized tes4 version %#x", h.version)
	}

	sse := isSSE(h.version)
	folderRecordSize := tes4FolderRecordSize
	if sse {
		folderRecordSize = tes4FolderRecordSizeSSE
	}

	folderRecords := make([]tes4FolderRecord, h.folderCount)
	for i := range folderRecords {
		buf := make([]byte, folderRecordSize)
		if _, err := io.ReadFull(f, buf); err != nil {
			return nil, wrapErr(KindParseFail, err, "read tes4 folder record %d", i)
		}
		rec := tes4FolderRecord{
			hash:  binary.LittleEndian.Uint64(buf[0:8]),
			count: binary.LittleEndian.Uint32(buf[8:12]),
		}
		if sse {
			rec.offset = binary.LittleEndian.Uint64(buf[16:24])
		} else {
			rec.offset = uint64(binary.LittleEndian.Uint32(buf[12:16]))
		}
		folderRecords[i] = rec
	}

	blocksLen := int64(h.folderCount) + int64(h.totalFolderNameLen) + int64(h.fileCount)*tes4FileRecordSize
	br := bufio.NewReaderSize(io.LimitReader(f, blocksLen), 256*1024)

	startOfBlocks := tes4HeaderSize + int64(h.folderCount)*int64(folderRecordSize)

	type parsedFile struct {
		folderName string
		rec        tes4FileRecord
	}
	parsedFiles := make([]parsedFile, 0, h.fileCount)

	cursor := startOfBlocks
	for fi, folder := range folderRecords {
		wantAbs := int64(folder.offset) - int64(h.totalFileNameLen)
		if wantAbs != cursor {
			return nil, newErr(KindParseFail, "tes4 folder %d offset rebases to %d, expected %d", fi, wantAbs, cursor)
		}

		var lenByte [1]byte
		if _, err := io.ReadFull(br, lenByte[:]); err != nil {
			return nil, wrapErr(KindParseFail, err, "read tes4 folder name length")
		}
		cursor++
		nameLen := int(lenByte[0])
		if nameLen == 0 {
			return nil, newErr(KindParseFail, "tes4 folder %d has zero-length name field", fi)
		}

		nameBuf := make([]byte, nameLen)
		if _, err := io.ReadFull(br, nameBuf); err != nil {
			return nil, wrapErr(KindParseFail, err, "read tes4 folder name")
		}
		cursor += int64(nameLen)
		if nameBuf[nameLen-1] != 0 {
			return nil, newErr(KindParseFail, "tes4 folder %d name not NUL-terminated", fi)
		}

		folderName, err := toUTF8(nameBuf[:nameLen-1])
		if err != nil {
			return nil, err
		}
		folderName = Normalize(folderName)

		for j := uint32(0); j < folder.count; j++ {
			var rb [tes4FileRecordSize]byte
			if _, err := io.ReadFull(br, rb[:]); err != nil {
				return nil, wrapErr(KindParseFail, err, "read tes4 file record")
			}
			cursor += tes4FileRecordSize

			parsedFiles = append(parsedFiles, parsedFile{
				folderName: folderName,
				rec: tes4FileRecord{
					hash:       binary.LittleEndian.Uint64(rb[0:8]),
					size:       binary.LittleEndian.Uint32(rb[8:12]),
					dataOffset: binary.LittleEndian.Uint32(rb[12:16]),
				},
			})
		}
	}

	nameBlock := make([]byte, h.totalFileNameLen)
	if _, err := io.ReadFull(f, nameBlock); err != nil {
		return nil, wrapErr(KindParseFail, err, "read tes4 file name block")
	}

	assets := make(map[string]Asset, h.fileCount)
	nameCursor := 0
	for i, pf := range parsedFiles {
		rest := nameBlock[nameCursor:]
		idx := bytes.IndexByte(rest, 0)
		if idx < 0 {
			return nil, newErr(KindParseFail, "tes4 file name block truncated at entry %d", i)
		}
		fileName, err := toUTF8(rest[:idx])
		if err != nil {
			return nil, err
		}
		nameCursor += idx + 1

		fileName = Normalize(fileName)
		path := fileName
		if pf.folderName != "" {
			path = pf.folderName + `\` + fileName
		}

		if HashTes4(path) != pf.rec.hash {
			return nil, newErr(KindParseFail, "tes4 hash mismatch for %q", path)
		}

		compressedByFlag := h.archiveFlags&bsaCompressed != 0
		invertedByFile := pf.rec.size&fileInvertCompressed != 0
		assets[path] = Asset{
			Path:       path,
			Hash:       pf.rec.hash,
			Size:       pf.rec.size,
			Offset:     pf.rec.dataOffset,
			compressed: compressedByFlag != invertedByFile,
		}
	}

	return &Archive{
		format:       fromTes4Version(h.version),
		version:      h.version,
		sourcePath:   path,
		archiveFlags: h.archiveFlags,
		fileFlags:    h.fileFlags,
		assets:       assets,
	}, nil
}

func fromTes4Version(version uint32) Format {
	if version == tes4MagicSSE {
		return FormatTes5
	}
	return FormatTes4
}

func toTes4Version(flags SaveFlags, currentVersion uint32) uint32 {
	switch flags.Format {
	case FormatTes5:
		return tes4MagicSSE
	case FormatTes4:
		if currentVersion == tes4MagicOblion || currentVersion == tes4MagicSkyrim {
			return currentVersion
		}
		return tes4MagicSkyrim
	default:
		return tes4MagicSkyrim
	}
}

// saveTes4 writes the archive's catalog out in tes4 or SSE layout,
// depending on flags.Format. Payload bytes are always copied verbatim
// from the source archive; Save never recompresses a file.
func saveTes4(a *Archive, destPath string, flags SaveFlags) error {
	sse := flags.Format == FormatTes5
	folderRecordSize := tes4FolderRecordSize
	if sse {
		folderRecordSize = tes4FolderRecordSizeSSE
	}

	type fileEntry struct {
		folder     string
		fileName   string
		hash       uint64
		size       uint32
		oldOffset  uint32
		dataOffset uint32
	}

	byFolder := make(map[string][]fileEntry)
	for _, asset := range a.assets {
		folder, stem, ext := Split(asset.Path)
		fileEntries := byFolder[folder]
		fileEntries = append(fileEntries, fileEntry{
			folder:    folder,
			fileName:  stem + ext,
			hash:      asset.Hash,
			size:      asset.Size,
			oldOffset: asset.Offset,
		})
		byFolder[folder] = fileEntries
	}

	type folderEntry struct {
		name  string
		hash  uint64
		files []fileEntry
	}
	folders := make([]folderEntry, 0, len(byFolder))
	var totalFileNameLen uint32
	for name, files := range byFolder {
		sort.Slice(files, func(i, j int) bool { return files[i].hash < files[j].hash })
		for _, fe := range files {
			totalFileNameLen += uint32(len(fe.fileName)) + 1
		}
		folders = append(folders, folderEntry{name: name, hash: hashTes4FolderPath(name), files: files})
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].hash < folders[j].hash })

	var totalFolderNameLen uint32
	for _, fo := range folders {
		totalFolderNameLen += uint32(len(fo.name)) + 1
	}

	fileCount := uint32(0)
	for _, fo := range folders {
		fileCount += uint32(len(fo.files))
	}

	archiveFlags := a.archiveFlags
	switch {
	case flags.Compression == Level0:
		archiveFlags &^= bsaCompressed
	case flags.Compression != NoChange:
		archiveFlags |= bsaCompressed
	}

	// Payloads are copied verbatim, so when the archive-wide default
	// changes, every file's invert bit is flipped to keep each payload's
	// stored compressed state.
	if (archiveFlags^a.archiveFlags)&bsaCompressed != 0 {
		for fi := range folders {
			for fj := range folders[fi].files {
				folders[fi].files[fj].size ^= fileInvertCompressed
			}
		}
	}

	startOfPayload := int64(tes4HeaderSize) +
		int64(len(folders))*int64(folderRecordSize) +
		int64(totalFolderNameLen) +
		int64(len(folders)) +
		int64(totalFileNameLen) +
		int64(fileCount)*tes4FileRecordSize

	dataCursor := startOfPayload
	for fi := range folders {
		for fj := range folders[fi].files {
			folders[fi].files[fj].dataOffset = uint32(dataCursor)
			dataCursor += int64(folders[fi].files[fj].size &^ fileInvertCompressed)
		}
	}

	startOfBlocks := int64(tes4HeaderSize) + int64(len(folders))*int64(folderRecordSize)
	blockCursor := startOfBlocks
	folderOffsets := make([]uint64, len(folders))
	for fi, fo := range folders {
		folderOffsets[fi] = uint64(blockCursor) + uint64(totalFileNameLen)
		blockCursor += 1 + int64(len(fo.name)) + 1 + int64(len(fo.files))*tes4FileRecordSize
	}

	srcPath := a.sourcePath
	outPath, staged := stagingPath(destPath, srcPath)

	out, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return wrapErr(KindFilesystemError, err, "create %s", outPath)
	}
	w := bufio.NewWriterSize(out, 1<<20)

	writeErr := func() error {
		var header [tes4HeaderSize]byte
		copy(header[0:4], tes4Magic[:])
		version := toTes4Version(flags, a.version)
		binary.LittleEndian.PutUint32(header[4:8], version)
		binary.LittleEndian.PutUint32(header[8:12], tes4HeaderSize)
		binary.LittleEndian.PutUint32(header[12:16], archiveFlags)
		binary.LittleEndian.PutUint32(header[16:20], uint32(len(folders)))
		binary.LittleEndian.PutUint32(header[20:24], fileCount)
		binary.LittleEndian.PutUint32(header[24:28], totalFolderNameLen)
		binary.LittleEndian.PutUint32(header[28:32], totalFileNameLen)
		binary.LittleEndian.PutUint32(header[32:36], a.fileFlags)
		if _, err := w.Write(header[:]); err != nil {
			return wrapErr(KindFilesystemError, err, "write tes4 header")
		}

		for fi, fo := range folders {
			var rec [tes4FolderRecordSizeSSE]byte
			binary.LittleEndian.PutUint64(rec[0:8], fo.hash)
			binary.LittleEndian.PutUint32(rec[8:12], uint32(len(fo.files)))
			if sse {
				binary.LittleEndian.PutUint64(rec[16:24], folderOffsets[fi])
				if _, err := w.Write(rec[:tes4FolderRecordSizeSSE]); err != nil {
					return wrapErr(KindFilesystemError, err, "write tes4 folder record")
				}
			} else {
				binary.LittleEndian.PutUint32(rec[12:16], uint32(folderOffsets[fi]))
				if _, err := w.Write(rec[:tes4FolderRecordSize]); err != nil {
					return wrapErr(KindFilesystemError, err, "write tes4 folder record")
				}
			}
		}

		for _, fo := range folders {
			nameBytes, err := fromUTF8(fo.name)
			if err != nil {
				return err
			}
			if err := w.WriteByte(byte(len(nameBytes) + 1)); err != nil {
				return wrapErr(KindFilesystemError, err, "write tes4 folder name length")
			}
			if _, err := w.Write(nameBytes); err != nil {
				return wrapErr(KindFilesystemError, err, "write tes4 folder name")
			}
			if err := w.WriteByte(0); err != nil {
				return wrapErr(KindFilesystemError, err, "write tes4 folder name terminator")
			}

			for _, fe := range fo.files {
				var rb [tes4FileRecordSize]byte
				binary.LittleEndian.PutUint64(rb[0:8], fe.hash)
				binary.LittleEndian.PutUint32(rb[8:12], fe.size)
				binary.LittleEndian.PutUint32(rb[12:16], fe.dataOffset)
				if _, err := w.Write(rb[:]); err != nil {
					return wrapErr(KindFilesystemError, err, "write tes4 file record")
				}
			}
		}

		for _, fo := range folders {
			for _, fe := range fo.files {
				nameBytes, err := fromUTF8(fe.fileName)
				if err != nil {
					return err
				}
				if _, err := w.Write(nameBytes); err != nil {
					return wrapErr(KindFilesystemError, err, "write tes4 file name")
				}
				if err := w.WriteByte(0); err != nil {
					return wrapErr(KindFilesystemError, err, "write tes4 file name terminator")
				}
			}
		}

		src, err := os.Open(srcPath)
		if err != nil {
			return wrapErr(KindFilesystemError, err, "open source %s", srcPath)
		}
		defer src.Close()

		buf := make([]byte, 256*1024)
		for _, fo := range folders {
			for _, fe := range fo.files {
				storedSize := int64(fe.size &^ fileInvertCompressed)
				if _, err := io.CopyBuffer(w, io.NewSectionReader(src, int64(fe.oldOffset), storedSize), buf); err != nil {
					return wrapErr(KindFilesystemError, err, "stream payload for %s\\%s", fo.name, fe.fileName)
				}
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
