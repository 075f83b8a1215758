// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Ortham

package bsa

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"regexp/syntax"
	"runtime"
	"sort"
	"sync"
)

// Has reports whether path (normalized) names an asset in the catalog.
func (a *Archive) Has(path string) bool {
	_, ok := a.assets[Normalize(path)]
	return ok
}

// Get returns the asset stored under path, or ErrFileNotFound.
func (a *Archive) Get(path string) (Asset, error) {
	asset, ok := a.assets[Normalize(path)]
	if !ok {
		return Asset{}, newErr(KindFileNotFound, "%s", path)
	}
	return asset, nil
}

// Assets returns every asset whose path matches pattern, a
// case-insensitive POSIX extended regular expression. An empty pattern
// matches every asset. The returned slice is sorted by path for
// deterministic iteration.
func (a *Archive) Assets(pattern string) ([]Asset, error) {
	if pattern == "" {
		pattern = ".*"
	}

	// Only POSIX extended syntax is accepted; Perl-style extensions such
	// as \d or (?i) are rejected here before compiling for matching.
	if _, err := syntax.Parse(pattern, syntax.POSIX|syntax.FoldCase); err != nil {
		return nil, wrapErr(KindInvalidArgs, err, "compile pattern %q", pattern)
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, wrapErr(KindInvalidArgs, err, "compile pattern %q", pattern)
	}

	out := make([]Asset, 0, len(a.assets))
	for path, asset := range a.assets {
		if re.MatchString(path) {
			out = append(out, asset)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// readPayload reads and, if necessary, inflates one asset's stored bytes
// from the archive's source file.
func readPayload(sourcePath string, asset Asset) ([]byte, error) {
	f, err := os.Open(sourcePath)
	if err != nil {
		return nil, wrapErr(KindFilesystemError, err, "open %s", sourcePath)
	}
	defer f.Close()

	return readPayloadFrom(f, asset)
}

func readPayloadFrom(ra io.ReaderAt, asset Asset) ([]byte, error) {
	stored := make([]byte, asset.StoredSize())
	if _, err := ra.ReadAt(stored, int64(asset.Offset)); err != nil {
		return nil, wrapErr(KindFilesystemError, err, "read payload for %s", asset.Path)
	}

	if !asset.Compressed() {
		return stored, nil
	}

	if len(stored) < 4 {
		return nil, newErr(KindParseFail, "compressed payload for %s shorter than size prefix", asset.Path)
	}
	uncompressedSize := binary.LittleEndian.Uint32(stored[0:4])
	return inflate(stored[4:], uncompressedSize)
}

// ExtractToBuffer reads and decompresses one asset's payload into memory.
func (a *Archive) ExtractToBuffer(path string) ([]byte, error) {
	asset, err := a.Get(path)
	if err != nil {
		return nil, err
	}
	return readPayload(a.sourcePath, asset)
}

// ExtractOne writes one asset's decompressed payload to destPath,
// creating parent directories as needed. When overwrite is false and
// destPath already exists, it fails with ErrFilesystemError.
func (a *Archive) ExtractOne(path, destPath string, overwrite bool) error {
	asset, err := a.Get(path)
	if err != nil {
		return err
	}

	data, err := readPayload(a.sourcePath, asset)
	if err != nil {
		return err
	}

	return writeExtractedFile(destPath, data, overwrite)
}

func writeExtractedFile(destPath string, data []byte, overwrite bool) error {
	if dir := filepath.Dir(destPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return wrapErr(KindFilesystemError, err, "create directory for %s", destPath)
		}
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}

	f, err := os.OpenFile(destPath, flags, 0o644)
	if err != nil {
		return wrapErr(KindFilesystemError, err, "open %s", destPath)
	}

	_, writeErr := f.Write(data)
	closeErr := f.Close()
	if writeErr != nil {
		return wrapErr(KindFilesystemError, writeErr, "write %s", destPath)
	}
	if closeErr != nil {
		return wrapErr(KindFilesystemError, closeErr, "close %s", destPath)
	}
	return nil
}

// ExtractMany extracts every asset in assets under destDir, preserving
// each asset's relative path, with a single logical open of the source
// file shared across a bounded worker pool. The returned slice of
// written paths preserves the iteration order of assets regardless of
// completion order. On failure, the first error by input order is
// returned; there is no cancellation of in-flight workers.
func (a *Archive) ExtractMany(assets []Asset, destDir string, overwrite bool) ([]string, error) {
	if len(assets) == 0 {
		return nil, nil
	}

	src, err := os.Open(a.sourcePath)
	if err != nil {
		return nil, wrapErr(KindFilesystemError, err, "open %s", a.sourcePath)
	}
	defer src.Close()

	results := make([]string, len(assets))
	errs := make([]error, len(assets))

	workers := runtime.GOMAXPROCS(0)
	if workers > len(assets) {
		workers = len(assets)
	}

	type job struct {
		index int
		asset Asset
	}
	jobs := make(chan job, len(assets))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				destPath := filepath.Join(destDir, filepath.FromSlash(toSlashPath(j.asset.Path)))
				data, err := readPayloadFrom(src, j.asset)
				if err == nil {
					err = writeExtractedFile(destPath, data, overwrite)
				}
				if err != nil {
					errs[j.index] = err
					continue
				}
				results[j.index] = destPath
			}
		}()
	}

	for i, asset := range assets {
		jobs <- job{index: i, asset: asset}
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// toSlashPath turns an archive's backslash-separated path into a
// forward-slash path suitable for filepath.FromSlash.
func toSlashPath(path string) string {
	out := make([]byte, len(path))
	for i := 0; i < len(path); i++ {
		if path[i] == '\\' {
			out[i] = '/'
		} else {
			out[i] = path[i]
		}
	}
	return string(out)
}

// Checksum returns the CRC-32 (ISO-HDLC) of an asset's decompressed
// payload.
func (a *Archive) Checksum(path string) (uint32, error) {
	data, err := a.ExtractToBuffer(path)
	if err != nil {
		return 0, err
	}
	return crc32Sum(data), nil
}
