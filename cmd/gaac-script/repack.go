// Copyright (c) 2024 The GAAC Script Tool Authors.
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jvernay-tools/gaac-script/arc"
	"github.com/jvernay-tools/gaac-script/deflate"
	"github.com/jvernay-tools/gaac-script/gmd"
	"github.com/jvernay-tools/gaac-script/sanitize"
	"github.com/jvernay-tools/gaac-script/sidecar"
	"github.com/jvernay-tools/gaac-script/stream"
)

// repack rebuilds an ARC container for every extracted archive directory
// under editedFolder, writing each one as <SourceName> under targetFolder.
func repack(logger *slog.Logger, editedFolder, targetFolder string) error {
	dirEntries, err := os.ReadDir(editedFolder)
	if err != nil {
		return fmt.Errorf("read %s: %w", editedFolder, err)
	}
	if err := os.MkdirAll(targetFolder, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", targetFolder, err)
	}

	found := 0
	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}
		archiveDir := filepath.Join(editedFolder, de.Name())
		meta, err := readArchiveMeta(archiveDir)
		if err != nil {
			if os.IsNotExist(err) {
				continue // not an extracted-archive directory
			}
			return fmt.Errorf("%s: %w", archiveDir, err)
		}
		found++

		if err := repackOne(logger, archiveDir, meta, targetFolder); err != nil {
			return fmt.Errorf("repack %s: %w", archiveDir, err)
		}
	}

	logger.Info("repacked archives", "count", found)
	return nil
}

func readArchiveMeta(archiveDir string) (sidecar.ArchiveMeta, error) {
	if f, err := os.Open(filepath.Join(archiveDir, "__meta__.json")); err == nil {
		defer func() { _ = f.Close() }()
		return sidecar.ReadJSON(f)
	}
	f, err := os.Open(filepath.Join(archiveDir, "__meta__.xml"))
	if err != nil {
		return sidecar.ArchiveMeta{}, err
	}
	defer func() { _ = f.Close() }()
	return sidecar.ReadXML(f)
}

func repackOne(logger *slog.Logger, archiveDir string, meta sidecar.ArchiveMeta, targetFolder string) error {
	entries := make([]arc.ArcEntry, len(meta.Entries))
	for i, em := range meta.Entries {
		entryID := fmt.Sprintf("%04d_%s", i, sanitize.ToID(em.Filename))
		entryDir := filepath.Join(archiveDir, entryID)

		var content []byte
		var err error
		if info, statErr := os.Stat(entryDir); statErr == nil && info.IsDir() {
			content, err = repackGmdEntry(entryDir)
		} else {
			content, err = os.ReadFile(filepath.Join(archiveDir, entryID+".bin")) //nolint:gosec // path built from caller-controlled folder
		}
		if err != nil {
			return fmt.Errorf("entry %q: %w", em.Filename, err)
		}

		decompSize := uint32(len(content))
		payload := content
		if em.Compressed {
			payload, err = deflate.Compress(content)
			if err != nil {
				return fmt.Errorf("entry %q: %w", em.Filename, err)
			}
		}

		entries[i] = arc.ArcEntry{
			Filename:     em.Filename,
			Ext:          em.ExtensionHash,
			Content:      payload,
			DecompSize:   decompSize,
			UnknownFlags: em.UnknownFlags,
			IsCompressed: em.Compressed,
		}
	}

	a := &arc.ArcArchive{
		Version:          meta.Version,
		HasExtendedNames: meta.HasExtendedNames,
		Entries:          entries,
	}

	targetPath := filepath.Join(targetFolder, meta.SourceName)
	out, err := stream.CreateFile(targetPath)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if err := arc.Save(a, out); err != nil {
		return err
	}
	logger.Debug("repacked archive", "name", meta.SourceName, "entries", len(entries))
	return nil
}

func repackGmdEntry(entryDir string) ([]byte, error) {
	metaFile, err := os.Open(filepath.Join(entryDir, gmdMetaFile)) //nolint:gosec // path built from caller-controlled folder
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", gmdMetaFile, err)
	}
	defer func() { _ = metaFile.Close() }()

	var gm gmdMeta
	if err := json.NewDecoder(metaFile).Decode(&gm); err != nil {
		return nil, fmt.Errorf("decode %s: %w", gmdMetaFile, err)
	}

	reg := &gmd.GmdRegistry{
		Version:  gm.Version,
		Language: gm.Language,
		Name:     gm.Name,
		Padding:  gm.Padding,
		Entries:  make([]gmd.GmdEntry, len(gm.Keys)),
	}
	for j, key := range gm.Keys {
		textPath := filepath.Join(entryDir, fmt.Sprintf("%04d_%s.txt", j, sanitize.ToID(key)))
		value, err := os.ReadFile(textPath) //nolint:gosec // path built from caller-controlled folder
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", textPath, err)
		}
		reg.Entries[j] = gmd.GmdEntry{Key: key, Value: string(value)}
	}

	buf := stream.NewBufferWriter(gm.Name)
	if err := gmd.Save(reg, buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
