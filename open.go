// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Ortham

package bsa

import (
	"encoding/binary"
	"io"
	"os"
)

// Open reads and parses path, auto-detecting tes3, tes4, or SSE layout
// from the leading magic bytes.
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wrapErr(KindFilesystemError, err, "open %s", path)
	}

	var magic [4]byte
	_, err = io.ReadFull(f, magic[:])
	closeErr := f.Close()
	if err != nil {
		return nil, wrapErr(KindParseFail, err, "read magic bytes of %s", path)
	}
	if closeErr != nil {
		return nil, wrapErr(KindFilesystemError, closeErr, "close %s", path)
	}

	if binary.LittleEndian.Uint32(magic[:]) == tes3Version {
		return openTes3(path)
	}
	if magic == tes4Magic {
		return openTes4(path)
	}

	return nil, newErr(KindParseFail, "%s is not a recognized BSA archive", path)
}

// Close releases resources held by the archive. Archive holds no open
// file descriptors between calls (every read and extract operation opens
// SourcePath fresh), so Close only marks the handle closed: a later Save
// fails, while lookups and extraction do not check the mark.
func (a *Archive) Close() error {
	a.closed = true
	return nil
}
