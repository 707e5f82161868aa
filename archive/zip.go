// Copyright (c) 2024 The GAAC Script Tool Authors.
// SPDX-License-Identifier: GPL-3.0-or-later

//nolint:dupl // Archive implementations are intentionally similar but use different types
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ZIPArchive provides access to files in a ZIP archive.
type ZIPArchive struct {
	reader *zip.ReadCloser
	path   string
}

// OpenZIP opens a ZIP archive for reading.
func OpenZIP(path string) (*ZIPArchive, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open ZIP archive: %w", err)
	}

	return &ZIPArchive{
		reader: reader,
		path:   path,
	}, nil
}

// List returns the internal path of every regular-file member, so callers
// can filter for .arc names without this package caring about sizes.
func (za *ZIPArchive) List() ([]string, error) {
	names := make([]string, 0, len(za.reader.File))

	for _, file := range za.reader.File {
		// Skip directories
		if file.FileInfo().IsDir() {
			continue
		}
		names = append(names, file.Name)
	}

	return names, nil
}

// open reads one member of the ZIP archive.
func (za *ZIPArchive) open(internalPath string) (io.ReadCloser, int64, error) {
	// Normalize path separators
	internalPath = filepath.ToSlash(internalPath)

	for _, file := range za.reader.File {
		if strings.EqualFold(file.Name, internalPath) {
			reader, err := file.Open()
			if err != nil {
				return nil, 0, fmt.Errorf("open file in ZIP: %w", err)
			}
			//nolint:gosec // Safe: file sizes don't exceed int64
			return reader, int64(file.UncompressedSize64), nil
		}
	}

	return nil, 0, FileNotFoundError{
		Archive:      za.path,
		InternalPath: internalPath,
	}
}

// OpenReaderAt opens a file and returns an io.ReaderAt interface.
// The file contents are buffered in memory.
//
//nolint:revive // 4 return values is necessary for this interface pattern
func (za *ZIPArchive) OpenReaderAt(internalPath string) (io.ReaderAt, int64, io.Closer, error) {
	return bufferFile(za, internalPath)
}

// Close closes the ZIP archive.
func (za *ZIPArchive) Close() error {
	return za.reader.Close() //nolint:wrapcheck // Close error passthrough is intentional
}
