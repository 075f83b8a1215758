// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Ortham

package bsa

import "strings"

// Normalize converts an asset path to its canonical on-disk form: ASCII
// letters lowercased, "/" rewritten to "\", and a leading "\" stripped.
// No other cleanup is performed — a trailing separator is left alone and
// dot segments are not collapsed, matching the engine's own lookup
// behavior rather than filesystem path semantics.
func Normalize(path string) string {
	path = asciiLower(path)
	path = strings.ReplaceAll(path, "/", `\`)
	return strings.TrimPrefix(path, `\`)
}

// Split breaks a normalized path into folder, stem, and extension.
// folder is everything before the last "\", or empty. ext includes the
// leading dot; if the last segment has no dot, ext is empty and stem is
// the whole segment.
func Split(path string) (folder, stem, ext string) {
	if idx := strings.LastIndex(path, `\`); idx >= 0 {
		folder, path = path[:idx], path[idx+1:]
	}

	if dot := strings.LastIndex(path, "."); dot >= 0 {
		stem, ext = path[:dot], path[dot:]
	} else {
		stem = path
	}

	return folder, stem, ext
}

// asciiLower lowercases ASCII letters only, leaving all other bytes
// untouched so non-ASCII Windows-1252 bytes round-trip unmodified.
func asciiLower(s string) string {
	b := []byte(s)
	changed := false
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
			changed = true
		}
	}
	if !changed {
		return s
	}
	return string(b)
}
