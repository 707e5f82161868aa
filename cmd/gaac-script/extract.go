// Copyright (c) 2024 The GAAC Script Tool Authors.
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/jvernay-tools/gaac-script/arc"
	"github.com/jvernay-tools/gaac-script/archive"
	"github.com/jvernay-tools/gaac-script/gmd"
	"github.com/jvernay-tools/gaac-script/sanitize"
	"github.com/jvernay-tools/gaac-script/sidecar"
	"github.com/jvernay-tools/gaac-script/stream"
)

// gmdMeta is the private sidecar for one GMD-typed entry: the registry
// header fields plus the original (unsanitized) keys, in entry order, since
// the per-key text files are named from a sanitized and therefore lossy
// form of the key.
type gmdMeta struct {
	Version  uint32    `json:"version"`
	Language uint32    `json:"language"`
	Name     string    `json:"name"`
	Padding  [2]uint32 `json:"padding"`
	Keys     []string  `json:"keys"`
}

const gmdMetaFile = "__gmd__.json"

// extract discovers every ARC container reachable from installPath (a
// directory tree or a .zip/.7z/.rar installer image) and writes one
// directory per archive under destFolder, holding one file per entry plus a
// metadata sidecar repack can read back.
func extract(logger *slog.Logger, installPath, destFolder string, xmlMeta bool) error {
	sources, err := findArcSources(logger, installPath)
	if err != nil {
		return err
	}
	logger.Info("discovered archives", "count", len(sources))

	for _, src := range sources {
		if err := extractOne(logger, src, destFolder, xmlMeta); err != nil {
			return fmt.Errorf("extract %s: %w", src.name, err)
		}
	}
	return nil
}

// arcSource is one ARC container located by findArcSources, already backed
// by an open Stream positioned at the start.
type arcSource struct {
	name string
	s    stream.Stream
	done func() error
}

const arcFileExtension = ".arc"

// findArcSources resolves installPath to one or more ARC containers. A path
// that names a member inside an installer image directly (e.g.
// "patch.zip/data/script.arc") is handled via ParsePath without ever
// scanning the rest of the container; everything else falls back to the
// existing directory walk / single-file / whole-container dispatch.
func findArcSources(logger *slog.Logger, installPath string) ([]arcSource, error) {
	parsed, err := archive.ParsePath(installPath)
	if err != nil {
		return nil, err
	}
	if parsed != nil {
		if parsed.InternalPath != "" {
			return openContainerMember(parsed.ArchivePath, parsed.InternalPath)
		}
		return openContainerSources(logger, parsed.ArchivePath)
	}

	info, err := os.Stat(installPath)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", installPath, err)
	}

	if info.IsDir() {
		paths, err := archive.FindArcFiles(afero.NewOsFs(), installPath)
		if err != nil {
			return nil, err
		}
		return openFileSources(paths)
	}

	ext := strings.ToLower(filepath.Ext(installPath))
	if ext == arcFileExtension {
		return openFileSources([]string{installPath})
	}
	return nil, fmt.Errorf("%s: not a directory, .arc file, or supported container", installPath)
}

func openFileSources(paths []string) ([]arcSource, error) {
	sources := make([]arcSource, len(paths))
	for i, p := range paths {
		f, err := stream.OpenFile(p)
		if err != nil {
			return nil, err
		}
		sources[i] = arcSource{name: p, s: f, done: f.Close}
	}
	return sources, nil
}

// openContainerSources opens every .arc-named member of a .zip/.7z/.rar
// installer image, buffering each fully into memory since BufferStream needs
// random-access bytes rather than a streaming reader. Installer packers
// sometimes carry unrelated files that merely happen to end in ".arc", so
// each candidate is sniffed with arc.LooksLikeArc before being kept; a
// mismatch is logged and skipped rather than failing the whole batch.
func openContainerSources(logger *slog.Logger, installPath string) ([]arcSource, error) {
	container, err := archive.Open(installPath)
	if err != nil {
		return nil, err
	}

	members, err := archive.FindArcMembers(container)
	if err != nil {
		_ = container.Close()
		return nil, err
	}

	var sources []arcSource
	for _, member := range members {
		reader, size, closer, err := container.OpenReaderAt(member)
		if err != nil {
			_ = container.Close()
			return nil, fmt.Errorf("open member %s: %w", member, err)
		}
		data := make([]byte, size)
		_, readErr := reader.ReadAt(data, 0)
		_ = closer.Close()
		if readErr != nil && readErr != io.EOF {
			_ = container.Close()
			return nil, fmt.Errorf("read member %s: %w", member, readErr)
		}

		if ok, sniffErr := arc.LooksLikeArc(bytes.NewReader(data)); sniffErr != nil {
			_ = container.Close()
			return nil, fmt.Errorf("sniff member %s: %w", member, sniffErr)
		} else if !ok {
			logger.Warn("skipping member with .arc name but no ARC magic", "archive", installPath, "member", member)
			continue
		}

		sources = append(sources, arcSource{
			name: filepath.Base(member),
			s:    stream.NewBuffer(filepath.Base(member), data),
			done: func() error { return nil },
		})
	}
	if len(sources) == 0 {
		_ = container.Close()
		return nil, archive.NoGameFilesError{Archive: installPath}
	}
	sources[len(sources)-1].done = container.Close
	return sources, nil
}

// openContainerMember opens a single named member of a .zip/.7z/.rar
// installer image, as addressed by a "container.zip/path/to/script.arc"
// style install path. Unlike openContainerSources this targets exactly one
// member the caller already identified, so a format mismatch surfaces
// through arc.Load's own BadMagicError rather than being skipped.
func openContainerMember(archivePath, internalPath string) ([]arcSource, error) {
	container, err := archive.Open(archivePath)
	if err != nil {
		return nil, err
	}

	reader, size, closer, err := container.OpenReaderAt(internalPath)
	if err != nil {
		_ = container.Close()
		return nil, fmt.Errorf("open member %s: %w", internalPath, err)
	}
	data := make([]byte, size)
	_, readErr := reader.ReadAt(data, 0)
	_ = closer.Close()
	if readErr != nil && readErr != io.EOF {
		_ = container.Close()
		return nil, fmt.Errorf("read member %s: %w", internalPath, readErr)
	}

	name := filepath.Base(internalPath)
	return []arcSource{{
		name: name,
		s:    stream.NewBuffer(name, data),
		done: container.Close,
	}}, nil
}

func extractOne(logger *slog.Logger, src arcSource, destFolder string, xmlMeta bool) error {
	defer func() { _ = src.done() }()

	a, err := arc.Load(src.s)
	if err != nil {
		return err
	}

	base := filepath.Base(src.name)
	archiveID := sanitize.ToID(strings.TrimSuffix(base, filepath.Ext(base)))
	archiveDir := filepath.Join(destFolder, archiveID)
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", archiveDir, err)
	}

	meta := sidecar.ArchiveMeta{
		SourceName:       base,
		Version:          a.Version,
		HasExtendedNames: a.HasExtendedNames,
		Entries:          make([]sidecar.EntryMeta, len(a.Entries)),
	}

	for i, e := range a.Entries {
		decompressed, err := e.Decompressed()
		if err != nil {
			return err
		}
		entryID := fmt.Sprintf("%04d_%s", i, sanitize.ToID(e.Filename))
		meta.Entries[i] = sidecar.EntryMeta{
			Filename:      e.Filename,
			ExtensionHash: e.Ext,
			DecompSize:    e.DecompSize,
			UnknownFlags:  e.UnknownFlags,
			Compressed:    e.IsCompressed,
		}

		if looksLikeGmd(decompressed) {
			if err := extractGmdEntry(archiveDir, entryID, e.Filename, decompressed); err != nil {
				return fmt.Errorf("entry %q: %w", e.Filename, err)
			}
			continue
		}

		outPath := filepath.Join(archiveDir, entryID+".bin")
		if err := os.WriteFile(outPath, decompressed, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", outPath, err)
		}
	}

	logger.Debug("extracted archive", "name", base, "entries", len(a.Entries))
	return writeArchiveMeta(archiveDir, meta, xmlMeta)
}

func looksLikeGmd(data []byte) bool {
	return len(data) >= 4 && bytes.Equal(data[:4], []byte("GMD\x00"))
}

func extractGmdEntry(archiveDir, entryID, filename string, payload []byte) error {
	reg, err := gmd.Load(stream.NewBuffer(filename, payload))
	if err != nil {
		return err
	}

	entryDir := filepath.Join(archiveDir, entryID)
	if err := os.MkdirAll(entryDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", entryDir, err)
	}

	gm := gmdMeta{
		Version:  reg.Version,
		Language: reg.Language,
		Name:     reg.Name,
		Padding:  reg.Padding,
		Keys:     make([]string, len(reg.Entries)),
	}
	for j, entry := range reg.Entries {
		gm.Keys[j] = entry.Key
		textPath := filepath.Join(entryDir, fmt.Sprintf("%04d_%s.txt", j, sanitize.ToID(entry.Key)))
		if err := os.WriteFile(textPath, []byte(entry.Value), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", textPath, err)
		}
	}

	metaPath := filepath.Join(entryDir, gmdMetaFile)
	f, err := os.Create(metaPath) //nolint:gosec // path built from caller-controlled destination folder
	if err != nil {
		return fmt.Errorf("create %s: %w", metaPath, err)
	}
	defer func() { _ = f.Close() }()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(gm); err != nil {
		return fmt.Errorf("encode %s: %w", metaPath, err)
	}
	return nil
}

func writeArchiveMeta(archiveDir string, meta sidecar.ArchiveMeta, xmlMeta bool) error {
	name := "__meta__.json"
	if xmlMeta {
		name = "__meta__.xml"
	}
	path := filepath.Join(archiveDir, name)
	f, err := os.Create(path) //nolint:gosec // path built from caller-controlled destination folder
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if xmlMeta {
		return sidecar.WriteXML(meta, f)
	}
	return sidecar.WriteJSON(meta, f)
}
