// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Ortham

package bsa

import (
	"bytes"
	"compress/zlib"
	"io"
)

// zlibLevel maps a Compression level to the compress/zlib constant.
// Level0 is never routed through here (stored payloads are never
// deflated); NoChange is resolved by callers before reaching this point.
func zlibLevel(c Compression) int {
	switch c {
	case Level1:
		return 1
	case Level2:
		return 2
	case Level3:
		return 3
	case Level4:
		return 4
	case Level5:
		return 5
	case Level6:
		return 6
	case Level7:
		return 7
	case Level8:
		return 8
	case Level9:
		return 9
	default:
		return zlib.DefaultCompression
	}
}

// deflate compresses data with the given level, a thin wrapper around
// compress/zlib.
func deflate(data []byte, level Compression) ([]byte, error) {
	var buf bytes.Buffer

	w, err := zlib.NewWriterLevel(&buf, zlibLevel(level))
	if err != nil {
		return nil, wrapErr(KindZlibError, err, "create zlib writer at level %d", level)
	}

	if _, err := w.Write(data); err != nil {
		return nil, wrapErr(KindZlibError, err, "zlib write")
	}

	if err := w.Close(); err != nil {
		return nil, wrapErr(KindZlibError, err, "zlib close")
	}

	return buf.Bytes(), nil
}

// inflate decompresses a zlib stream, trusting uncompressedSize as the
// expected output length. It fails loudly on any corruption rather than
// returning a truncated result.
func inflate(data []byte, uncompressedSize uint32) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, wrapErr(KindZlibError, err, "create zlib reader")
	}
	defer r.Close()

	result := make([]byte, uncompressedSize)
	n, err := io.ReadFull(r, result)
	if err != nil {
		return nil, wrapErr(KindZlibError, err, "zlib inflate: read %d of %d bytes", n, uncompressedSize)
	}

	// A well-formed stream has nothing left after uncompressedSize
	// bytes; one more byte means the archive lied about the size.
	var extra [1]byte
	if _, err := r.Read(extra[:]); err != io.EOF {
		return nil, newErr(KindZlibError, "zlib stream longer than declared uncompressed size %d", uncompressedSize)
	}

	return result, nil
}
