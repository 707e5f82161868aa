// Copyright (c) 2024 The GAAC Script Tool Authors.
// SPDX-License-Identifier: GPL-3.0-or-later

// Package arc reads and writes the ARC outer archive container: a flat
// header, a fixed-width entry table (one record per member, in either a
// short or an extended name width), and a block of member payloads that may
// individually be zlib-compressed.
package arc

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/jvernay-tools/gaac-script/deflate"
	"github.com/jvernay-tools/gaac-script/stream"
)

const (
	magic = "ARC\x00"

	headerSize = 8 // magic[4] + version uint16 + entryCount uint16

	shortNameLen = 64
	extNameLen   = 128

	shortRecordSize = shortNameLen + 4 + 4 + 4 + 4 // 80
	extRecordSize   = extNameLen + 4 + 4 + 4 + 4    // 144

	// contentAlign is the block size payloads are padded up to; the game
	// streams entries off disk in these chunks.
	contentAlign = 0x8000

	decompSizeMask = 0x00FFFFFF
)

// ArcEntry is one member of an ARC archive.
type ArcEntry struct {
	Filename string

	// Ext is an opaque per-entry tag copied verbatim from the source
	// record; its meaning is not interpreted by this package.
	Ext uint32

	// Content holds the entry payload exactly as it appears on disk: if
	// IsCompressed is true, this is the zlib-compressed form and
	// DecompSize is the size after inflating it.
	Content []byte

	DecompSize   uint32
	UnknownFlags uint8
	IsCompressed bool
}

// ArcArchive is a fully-loaded ARC container.
type ArcArchive struct {
	Version uint16

	// HasExtendedNames reports whether entry records use the 128-byte
	// name field (true) or the 64-byte one (false).
	HasExtendedNames bool

	Entries []ArcEntry
}

// Decompressed returns the entry's payload, inflating it first if
// IsCompressed is set.
func (e *ArcEntry) Decompressed() ([]byte, error) {
	if !e.IsCompressed {
		return e.Content, nil
	}
	out, err := deflate.Decompress(e.Content, int(e.DecompSize))
	if err != nil {
		return nil, fmt.Errorf("entry %q: %w", e.Filename, err)
	}
	return out, nil
}

func nameWidth(extended bool) int {
	if extended {
		return extNameLen
	}
	return shortNameLen
}

func recordSize(extended bool) int {
	if extended {
		return extRecordSize
	}
	return shortRecordSize
}

// Load parses an ARC container from s.
func Load(s stream.Stream) (*ArcArchive, error) {
	var hdr [headerSize]byte
	if err := s.ReadExact(hdr[:]); err != nil {
		return nil, fmt.Errorf("%s: read ARC header: %w", s.Name(), err)
	}
	var wantMagic [4]byte
	copy(wantMagic[:], magic)
	var gotMagic [4]byte
	copy(gotMagic[:], hdr[0:4])
	if gotMagic != wantMagic {
		return nil, BadMagicError{Stream: s.Name(), Expected: wantMagic, Actual: gotMagic}
	}
	version := binary.LittleEndian.Uint16(hdr[4:6])
	if version != 7 && version != 8 {
		return nil, BadVersionError{Stream: s.Name(), Found: version}
	}
	entryCount := binary.LittleEndian.Uint16(hdr[6:8])

	tableStart, err := s.Tell()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name(), err)
	}

	extended, err := probeExtendedNames(s, tableStart, entryCount)
	if err != nil {
		return nil, err
	}

	if _, err := s.Seek(tableStart, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%s: seek to entry table: %w", s.Name(), err)
	}

	entries := make([]ArcEntry, entryCount)
	width := nameWidth(extended)
	rec := make([]byte, recordSize(extended))
	for i := range entries {
		if err := s.ReadExact(rec); err != nil {
			return nil, fmt.Errorf("%s: read entry %d record: %w", s.Name(), i, err)
		}
		name := cString(rec[:width])
		off := width
		ext := binary.LittleEndian.Uint32(rec[off : off+4])
		off += 4
		compSize := binary.LittleEndian.Uint32(rec[off : off+4])
		off += 4
		decompRaw := binary.LittleEndian.Uint32(rec[off : off+4])
		off += 4
		payloadOffset := binary.LittleEndian.Uint32(rec[off : off+4])

		decompSize := decompRaw & decompSizeMask
		unknownFlags := uint8(decompRaw >> 24)

		payload := make([]byte, compSize)
		if compSize > 0 {
			pos, err := s.Tell()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", s.Name(), err)
			}
			if _, err := s.Seek(int64(payloadOffset), io.SeekStart); err != nil {
				return nil, fmt.Errorf("%s: entry %q: seek to payload: %w", s.Name(), name, err)
			}
			if err := s.ReadExact(payload); err != nil {
				return nil, fmt.Errorf("%s: entry %q: read payload: %w", s.Name(), name, err)
			}
			if _, err := s.Seek(pos, io.SeekStart); err != nil {
				return nil, fmt.Errorf("%s: %w", s.Name(), err)
			}
		}

		entries[i] = ArcEntry{
			Filename:     name,
			Ext:          ext,
			Content:      payload,
			DecompSize:   decompSize,
			UnknownFlags: unknownFlags,
			IsCompressed: compSize != decompSize,
		}
	}

	return &ArcArchive{
		Version:          version,
		HasExtendedNames: extended,
		Entries:          entries,
	}, nil
}

// probeExtendedNames peeks at the first entry record using the short
// (64-byte name) layout and checks whether its trailing fields look
// plausible. The game itself never mixes widths across a single archive, so
// one record is enough to decide for the whole table. A zero ext, decompSize,
// or offset on an otherwise-populated record means those bytes actually
// belong to the wider name field of an extended-name archive. The probed
// fields overlap bytes 64-79 of an extended name, so a first filename of 77
// bytes or more leaves all three nonzero and the table is read as short-form.
func probeExtendedNames(s stream.Stream, tableStart int64, entryCount uint16) (bool, error) {
	if entryCount == 0 {
		return false, nil
	}
	if _, err := s.Seek(tableStart, io.SeekStart); err != nil {
		return false, fmt.Errorf("%s: seek to entry table: %w", s.Name(), err)
	}
	rec := make([]byte, shortRecordSize)
	if err := s.ReadExact(rec); err != nil {
		return false, fmt.Errorf("%s: probe first entry record: %w", s.Name(), err)
	}
	ext := binary.LittleEndian.Uint32(rec[shortNameLen : shortNameLen+4])
	decompRaw := binary.LittleEndian.Uint32(rec[shortNameLen+8 : shortNameLen+12])
	offset := binary.LittleEndian.Uint32(rec[shortNameLen+12 : shortNameLen+16])
	return ext == 0 || decompRaw == 0 || offset == 0, nil
}

// Save writes a as an ARC container to s, choosing the record width that
// fits every filename (falling back to extended names only when required).
func Save(a *ArcArchive, s stream.Stream) error {
	extended := a.HasExtendedNames
	width := nameWidth(extended)
	for _, e := range a.Entries {
		// width bytes hold the filename plus its trailing NUL, so the name
		// itself must leave room for at least one NUL: len+1 < width.
		if len(e.Filename) >= width-1 {
			if extended {
				return NameTooLongError{Filename: e.Filename, MaxLen: width - 2}
			}
			extended = true
			width = nameWidth(true)
		}
	}

	var hdr [headerSize]byte
	copy(hdr[0:4], magic)
	binary.LittleEndian.PutUint16(hdr[4:6], a.Version)
	binary.LittleEndian.PutUint16(hdr[6:8], uint16(len(a.Entries)))
	if err := s.WriteAll(hdr[:]); err != nil {
		return fmt.Errorf("%s: write ARC header: %w", s.Name(), err)
	}

	tableSize := int64(len(a.Entries)) * int64(recordSize(extended))
	contentBase := alignUp(headerSize+tableSize, contentAlign)

	offsets := make([]uint32, len(a.Entries))
	cursor := contentBase
	for i, e := range a.Entries {
		offsets[i] = uint32(cursor)
		cursor += int64(len(e.Content))
	}

	rec := make([]byte, recordSize(extended))
	for i, e := range a.Entries {
		for j := range rec {
			rec[j] = 0
		}
		copy(rec[:width-1], e.Filename)
		off := width
		binary.LittleEndian.PutUint32(rec[off:off+4], e.Ext)
		off += 4
		binary.LittleEndian.PutUint32(rec[off:off+4], uint32(len(e.Content)))
		off += 4
		decompRaw := (e.DecompSize & decompSizeMask) | uint32(e.UnknownFlags)<<24
		binary.LittleEndian.PutUint32(rec[off:off+4], decompRaw)
		off += 4
		binary.LittleEndian.PutUint32(rec[off:off+4], offsets[i])
		if err := s.WriteAll(rec); err != nil {
			return fmt.Errorf("%s: write entry %q record: %w", s.Name(), e.Filename, err)
		}
	}

	pos, err := s.Tell()
	if err != nil {
		return fmt.Errorf("%s: %w", s.Name(), err)
	}
	if pad := contentBase - pos; pad > 0 {
		if err := s.WriteAll(make([]byte, pad)); err != nil {
			return fmt.Errorf("%s: write padding: %w", s.Name(), err)
		}
	}

	for _, e := range a.Entries {
		if err := s.WriteAll(e.Content); err != nil {
			return fmt.Errorf("%s: write entry %q payload: %w", s.Name(), e.Filename, err)
		}
	}

	return nil
}

func alignUp(n, align int64) int64 {
	if rem := n % align; rem != 0 {
		return n + (align - rem)
	}
	return n
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
