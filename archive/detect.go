// Copyright (c) 2024 The GAAC Script Tool Authors.
// SPDX-License-Identifier: GPL-3.0-or-later

package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// arcExtension is the suffix this scanner looks for inside an installer
// container; matching is case-insensitive and independent of nesting depth
// within the archive.
const arcExtension = ".arc"

// IsArcMember checks whether an archive-internal path names an ARC file.
func IsArcMember(name string) bool {
	return strings.EqualFold(filepath.Ext(name), arcExtension)
}

// FindArcMembers lists every member of an opened archive whose name ends in
// .arc, sorted for deterministic iteration order. It returns NoGameFilesError
// if the archive contains none.
func FindArcMembers(arc Archive) ([]string, error) {
	names, err := arc.List()
	if err != nil {
		return nil, fmt.Errorf("list archive files: %w", err)
	}

	var members []string
	for _, name := range names {
		if IsArcMember(name) {
			members = append(members, name)
		}
	}
	if len(members) == 0 {
		return nil, NoGameFilesError{Archive: "archive"}
	}

	sort.Strings(members)
	return members, nil
}

// FindArcFiles recursively walks root on fsys and returns every regular file
// whose name ends in .arc, sorted for deterministic iteration order. Passing
// afero.NewOsFs() walks the real filesystem; tests can substitute an
// afero.NewMemMapFs() to stage a tree without touching disk.
func FindArcFiles(fsys afero.Fs, root string) ([]string, error) {
	var found []string
	err := afero.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if IsArcMember(path) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	if len(found) == 0 {
		return nil, NoGameFilesError{Archive: root}
	}

	sort.Strings(found)
	return found, nil
}
