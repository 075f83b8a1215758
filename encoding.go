// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Ortham

package bsa

import (
	"golang.org/x/text/encoding/charmap"
)

// toUTF8 decodes a Windows-1252 byte string as stored on disk into a Go
// (UTF-8) string. Windows-1252 maps every byte value to some code point,
// so this direction cannot fail.
func toUTF8(b []byte) (string, error) {
	out, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return "", wrapErr(KindBadString, err, "decoding %d bytes as windows-1252", len(b))
	}
	return string(out), nil
}

// fromUTF8 encodes a Go string to Windows-1252 for on-disk storage. Any
// rune with no Windows-1252 representation fails loudly rather than being
// replaced with a substitute byte.
func fromUTF8(s string) ([]byte, error) {
	out, err := charmap.Windows1252.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, wrapErr(KindBadString, err, "encoding %q as windows-1252", s)
	}
	return out, nil
}
