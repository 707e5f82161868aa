// Copyright (c) 2024 The GAAC Script Tool Authors.
// SPDX-License-Identifier: GPL-3.0-or-later

//nolint:dupl // Archive implementations are intentionally similar but use different types
package archive

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
)

// SevenZipArchive provides access to files in a 7z archive.
type SevenZipArchive struct {
	reader *sevenzip.ReadCloser
	path   string
}

// OpenSevenZip opens a 7z archive for reading.
func OpenSevenZip(path string) (*SevenZipArchive, error) {
	reader, err := sevenzip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open 7z archive: %w", err)
	}

	return &SevenZipArchive{
		reader: reader,
		path:   path,
	}, nil
}

// List returns the internal path of every regular-file member, so callers
// can filter for .arc names without this package caring about sizes.
func (sza *SevenZipArchive) List() ([]string, error) {
	names := make([]string, 0, len(sza.reader.File))

	for _, file := range sza.reader.File {
		// Skip directories
		if file.FileInfo().IsDir() {
			continue
		}
		names = append(names, file.Name)
	}

	return names, nil
}

// open reads one member of the 7z archive.
func (sza *SevenZipArchive) open(internalPath string) (io.ReadCloser, int64, error) {
	// Normalize path separators
	internalPath = filepath.ToSlash(internalPath)

	for _, file := range sza.reader.File {
		if strings.EqualFold(file.Name, internalPath) {
			reader, err := file.Open()
			if err != nil {
				return nil, 0, fmt.Errorf("open file in 7z: %w", err)
			}
			//nolint:gosec // Safe: file sizes don't exceed int64
			return reader, int64(file.UncompressedSize), nil
		}
	}

	return nil, 0, FileNotFoundError{
		Archive:      sza.path,
		InternalPath: internalPath,
	}
}

// OpenReaderAt opens a file and returns an io.ReaderAt interface.
// The file contents are buffered in memory.
//
//nolint:revive // 4 return values is necessary for this interface pattern
func (sza *SevenZipArchive) OpenReaderAt(internalPath string) (io.ReaderAt, int64, io.Closer, error) {
	return bufferFile(sza, internalPath)
}

// Close closes the 7z archive.
func (sza *SevenZipArchive) Close() error {
	return sza.reader.Close() //nolint:wrapcheck // Close error passthrough is intentional
}
