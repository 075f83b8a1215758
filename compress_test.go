// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Ortham

package bsa

import (
	"bytes"
	"testing"
)

func TestDeflateInflateRoundTrip(t *testing.T) {
	t.Parallel()

	original := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 200)

	for level := Level1; level <= Level9; level++ {
		compressed, err := deflate(original, level)
		if err != nil {
			t.Fatalf("deflate at level %d: %v", level, err)
		}

		got, err := inflate(compressed, uint32(len(original)))
		if err != nil {
			t.Fatalf("inflate at level %d: %v", level, err)
		}

		if !bytes.Equal(got, original) {
			t.Fatalf("round trip at level %d produced different data", level)
		}
	}
}

func TestInflateRejectsCorruption(t *testing.T) {
	t.Parallel()

	compressed, err := deflate([]byte("hello world"), Level6)
	if err != nil {
		t.Fatalf("deflate: %v", err)
	}

	corrupted := append([]byte(nil), compressed...)
	corrupted[len(corrupted)/2] ^= 0xFF

	if _, err := inflate(corrupted, 11); err == nil {
		t.Fatal("expected inflate to fail on corrupted data")
	}
}

func TestInflateRejectsWrongSize(t *testing.T) {
	t.Parallel()

	original := []byte("hello world, this is a longer message")
	compressed, err := deflate(original, Level6)
	if err != nil {
		t.Fatalf("deflate: %v", err)
	}

	if _, err := inflate(compressed, uint32(len(original))-5); err == nil {
		t.Fatal("expected inflate to fail when declared size is too small")
	}
}
