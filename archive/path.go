// Copyright (c) 2024 The GAAC Script Tool Authors.
// SPDX-License-Identifier: GPL-3.0-or-later

package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Path represents a parsed archive path with optional internal path.
type Path struct {
	ArchivePath  string // Path to the archive file
	InternalPath string // Path inside the archive (empty means auto-detect)
}

// archiveExtensions are the supported archive extensions.
var archiveExtensions = []string{".zip", ".7z", ".rar"}

// ParsePath parses a path that may reference a file inside an archive, e.g.
// "/path/to/installer.zip/folder/script.arc". findArcSources uses this to
// let an install path name one container member directly, instead of
// always scanning the whole container for .arc members.
//
// Returns:
//   - (*Path, nil) if the path contains an archive reference
//   - (nil, nil) if the path is not an archive reference
//   - (nil, error) if there was an error checking the path
//
//nolint:gocognit,nilnil,revive // Complex path parsing logic requires branching; nil,nil is documented API behavior
func ParsePath(path string) (*Path, error) {
	// Normalize path separators
	normalizedPath := filepath.ToSlash(path)

	// Search for archive extensions followed by a path separator
	for _, ext := range archiveExtensions {
		// Look for pattern like ".zip/" in the path
		pattern := ext + "/"
		idx := strings.Index(strings.ToLower(normalizedPath), pattern)

		if idx != -1 {
			archivePath := path[:idx+len(ext)]
			internalPath := path[idx+len(ext)+1:]

			// Verify the archive file exists
			if _, err := os.Stat(archivePath); err != nil {
				if os.IsNotExist(err) {
					// Archive doesn't exist, this might not be an archive path
					continue
				}
				return nil, fmt.Errorf("stat archive %s: %w", archivePath, err)
			}

			return &Path{
				ArchivePath:  archivePath,
				InternalPath: internalPath,
			}, nil
		}
	}

	// Check if the path itself is an archive (for auto-detection)
	ext := strings.ToLower(filepath.Ext(path))
	if IsArchiveExtension(ext) {
		// Verify the archive file exists
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return nil, nil // Not an archive path
			}
			return nil, fmt.Errorf("stat archive %s: %w", path, err)
		}

		return &Path{
			ArchivePath:  path,
			InternalPath: "", // Auto-detect
		}, nil
	}

	return nil, nil // Not an archive path
}
