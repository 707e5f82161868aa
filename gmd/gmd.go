// Copyright (c) 2024 The GAAC Script Tool Authors.
// SPDX-License-Identifier: GPL-3.0-or-later

// Package gmd reads and writes the GMD inner dictionary container: a header,
// an embedded name, a label-entry table, an optional hash-bucket index, and
// two pooled regions of NUL-terminated strings (labels and sections) joined
// by entry index.
package gmd

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/jvernay-tools/gaac-script/gmdhash"
	"github.com/jvernay-tools/gaac-script/stream"
)

const (
	magic       = "GMD\x00"
	wantVersion = 0x010302

	headerSize     = 40
	labelEntrySize = 32
	bucketCount    = 256
	bucketsSize    = bucketCount * 8

	// firstEntrySentinel is the listLink/bucket value meaning "index 0",
	// used because 0 itself means "empty slot or end of chain".
	firstEntrySentinel = ^uint64(0)
)

// GmdEntry is one key/value pair of a GMD dictionary.
type GmdEntry struct {
	Key   string
	Value string

	// Hash1, Hash2 are the chained CRC-32 values over Key, verified on
	// load and always recomputed on save.
	Hash1 uint32
	Hash2 uint32
}

// GmdRegistry is a fully-loaded GMD dictionary.
type GmdRegistry struct {
	Version  uint32
	Language uint32
	Name     string

	// Padding preserves the header's reserved 8-byte field verbatim so a
	// save reproduces bytes the original tool wrote there, without this
	// package asserting any meaning for them.
	Padding [2]uint32

	Entries []GmdEntry
}

type labelEntry struct {
	sectionID   uint32
	hash1       uint32
	hash2       uint32
	zeroPadding uint32
	labelOffset uint64
	listLink    uint64
}

// Load parses a GMD dictionary from s.
func Load(s stream.Stream) (*GmdRegistry, error) {
	fileSize, err := stream.Size(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name(), err)
	}

	var hdr [headerSize]byte
	if err := s.ReadExact(hdr[:]); err != nil {
		return nil, fmt.Errorf("%s: read GMD header: %w", s.Name(), err)
	}

	var wantMagic, gotMagic [4]byte
	copy(wantMagic[:], magic)
	copy(gotMagic[:], hdr[0:4])
	if gotMagic != wantMagic {
		return nil, BadMagicError{Stream: s.Name(), Expected: wantMagic, Actual: gotMagic}
	}

	version := binary.LittleEndian.Uint32(hdr[4:8])
	if version != wantVersion {
		return nil, BadVersionError{Stream: s.Name(), Found: version}
	}
	language := binary.LittleEndian.Uint32(hdr[8:12])
	var padding [2]uint32
	padding[0] = binary.LittleEndian.Uint32(hdr[12:16])
	padding[1] = binary.LittleEndian.Uint32(hdr[16:20])
	labelCount := binary.LittleEndian.Uint32(hdr[20:24])
	sectionCount := binary.LittleEndian.Uint32(hdr[24:28])
	labelSize := binary.LittleEndian.Uint32(hdr[28:32])
	sectionSize := binary.LittleEndian.Uint32(hdr[32:36])
	nameSize := binary.LittleEndian.Uint32(hdr[36:40])

	if labelCount != sectionCount {
		return nil, BadFormatError{Stream: s.Name(), Message: fmt.Sprintf(
			"labelCount (%d) != sectionCount (%d)", labelCount, sectionCount)}
	}

	nameBytes, err := s.ReadCString()
	if err != nil {
		return nil, fmt.Errorf("%s: read GMD name: %w", s.Name(), err)
	}
	if len(nameBytes) != int(nameSize) {
		return nil, BadFormatError{Stream: s.Name(), Message: fmt.Sprintf(
			"name length %d does not match declared nameSize %d", len(nameBytes), nameSize)}
	}
	name := string(nameBytes)

	labelEntries := make([]labelEntry, labelCount)
	rec := make([]byte, labelEntrySize)
	for i := range labelEntries {
		if err := s.ReadExact(rec); err != nil {
			return nil, fmt.Errorf("%s: read label entry %d: %w", s.Name(), i, err)
		}
		labelEntries[i] = labelEntry{
			sectionID:   binary.LittleEndian.Uint32(rec[0:4]),
			hash1:       binary.LittleEndian.Uint32(rec[4:8]),
			hash2:       binary.LittleEndian.Uint32(rec[8:12]),
			zeroPadding: binary.LittleEndian.Uint32(rec[12:16]),
			labelOffset: binary.LittleEndian.Uint64(rec[16:24]),
			listLink:    binary.LittleEndian.Uint64(rec[24:32]),
		}
	}

	prefixSize, err := s.Tell()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name(), err)
	}

	wantBuckets := int64(0)
	if labelCount > 0 {
		wantBuckets = bucketsSize
	}
	textSize := int64(labelSize) + int64(sectionSize)
	expectedFileSize := prefixSize + wantBuckets + textSize
	if expectedFileSize != fileSize {
		return nil, BadSizeError{Stream: s.Name(), Expected: expectedFileSize, Actual: fileSize}
	}

	if wantBuckets > 0 {
		// The bucket table only accelerates random lookups in the game;
		// this package recomputes it from scratch on save, so its
		// stored contents need not be retained.
		if _, err := s.Seek(wantBuckets, io.SeekCurrent); err != nil {
			return nil, fmt.Errorf("%s: skip bucket table: %w", s.Name(), err)
		}
	}

	labelBegin, err := s.Tell()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name(), err)
	}
	labelEnd := labelBegin + int64(labelSize)

	labelsByOffset := make(map[int64]string)
	for {
		pos, err := s.Tell()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name(), err)
		}
		if pos >= labelEnd {
			break
		}
		str, err := s.ReadCString()
		if err != nil {
			return nil, fmt.Errorf("%s: read label string: %w", s.Name(), err)
		}
		labelsByOffset[pos-labelBegin] = string(str)
	}
	if pos, _ := s.Tell(); pos != labelEnd {
		return nil, BadFormatError{Stream: s.Name(), Message: "labelSize does not match a string boundary"}
	}

	sections := make([]string, sectionCount)
	for i := range sections {
		str, err := s.ReadCString()
		if err != nil {
			return nil, fmt.Errorf("%s: read section %d: %w", s.Name(), i, err)
		}
		sections[i] = string(str)
	}
	if pos, _ := s.Tell(); pos != fileSize {
		return nil, BadFormatError{Stream: s.Name(), Message: "sectionSize does not match a string boundary"}
	}

	entries := make([]GmdEntry, sectionCount)
	for sectionID := range sections {
		var found *labelEntry
		for i := range labelEntries {
			if labelEntries[i].sectionID == uint32(sectionID) {
				found = &labelEntries[i]
				break
			}
		}
		if found == nil {
			return nil, BadFormatError{Stream: s.Name(), Message: fmt.Sprintf(
				"section %d has no matching label entry", sectionID)}
		}
		label, ok := labelsByOffset[int64(found.labelOffset)]
		if !ok {
			return nil, BadFormatError{Stream: s.Name(), Message: fmt.Sprintf(
				"section %d: labelOffset %d is not at a string boundary", sectionID, found.labelOffset)}
		}

		if err := verifyChain(s.Name(), sectionID, label, found.hash1, found.hash2); err != nil {
			return nil, err
		}

		entries[sectionID] = GmdEntry{
			Key:   label,
			Value: sections[sectionID],
			Hash1: found.hash1,
			Hash2: found.hash2,
		}
	}

	return &GmdRegistry{
		Version:  version,
		Language: language,
		Name:     name,
		Padding:  padding,
		Entries:  entries,
	}, nil
}

// verifyChain recomputes the chained CRC-32 over key and confirms it
// matches the stored hash1/hash2.
func verifyChain(streamName string, index int, key string, hash1, hash2 uint32) error {
	_, wantH1, wantH2 := gmdhash.Chain([]byte(key))
	if wantH1 != hash1 || wantH2 != hash2 {
		return HashMismatchError{
			Stream: streamName, Index: index,
			ExpectedHash1: wantH1, GotHash1: hash1,
			ExpectedHash2: wantH2, GotHash2: hash2,
		}
	}
	return nil
}

// Save writes g as a GMD dictionary to s.
func Save(g *GmdRegistry, s stream.Stream) error {
	n := len(g.Entries)

	type built struct {
		sectionID   uint32
		hash1       uint32
		hash2       uint32
		labelOffset uint64
		listLink    uint64
	}
	entries := make([]built, n)

	var labelSize, sectionSize uint32
	for i, e := range g.Entries {
		_, h1, h2 := gmdhash.Chain([]byte(e.Key))
		entries[i] = built{
			sectionID:   uint32(i),
			hash1:       h1,
			hash2:       h2,
			labelOffset: uint64(labelSize),
		}
		labelSize += uint32(len(e.Key)) + 1
		sectionSize += uint32(len(e.Value)) + 1
	}

	buckets := make([]uint64, bucketCount)
	tails := make([]int, bucketCount)
	for i := range tails {
		tails[i] = -1
	}
	for i, e := range g.Entries {
		h0, _, _ := gmdhash.Chain([]byte(e.Key))
		b := gmdhash.Bucket(h0)
		link := uint64(i)
		if i == 0 {
			link = firstEntrySentinel
		}
		if tails[b] == -1 {
			buckets[b] = link
		} else {
			entries[tails[b]].listLink = link
		}
		tails[b] = i
	}

	var hdr [headerSize]byte
	copy(hdr[0:4], magic)
	binary.LittleEndian.PutUint32(hdr[4:8], g.Version)
	binary.LittleEndian.PutUint32(hdr[8:12], g.Language)
	binary.LittleEndian.PutUint32(hdr[12:16], g.Padding[0])
	binary.LittleEndian.PutUint32(hdr[16:20], g.Padding[1])
	binary.LittleEndian.PutUint32(hdr[20:24], uint32(n))
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(n))
	binary.LittleEndian.PutUint32(hdr[28:32], labelSize)
	binary.LittleEndian.PutUint32(hdr[32:36], sectionSize)
	binary.LittleEndian.PutUint32(hdr[36:40], uint32(len(g.Name)))
	if err := s.WriteAll(hdr[:]); err != nil {
		return fmt.Errorf("%s: write GMD header: %w", s.Name(), err)
	}

	if err := writeCString(s, g.Name); err != nil {
		return fmt.Errorf("%s: write GMD name: %w", s.Name(), err)
	}

	rec := make([]byte, labelEntrySize)
	for _, e := range entries {
		binary.LittleEndian.PutUint32(rec[0:4], e.sectionID)
		binary.LittleEndian.PutUint32(rec[4:8], e.hash1)
		binary.LittleEndian.PutUint32(rec[8:12], e.hash2)
		binary.LittleEndian.PutUint32(rec[12:16], 0xCDCDCDCD)
		binary.LittleEndian.PutUint64(rec[16:24], e.labelOffset)
		binary.LittleEndian.PutUint64(rec[24:32], e.listLink)
		if err := s.WriteAll(rec); err != nil {
			return fmt.Errorf("%s: write label entry: %w", s.Name(), err)
		}
	}

	if n > 0 {
		bucketBytes := make([]byte, bucketsSize)
		for i, v := range buckets {
			binary.LittleEndian.PutUint64(bucketBytes[i*8:i*8+8], v)
		}
		if err := s.WriteAll(bucketBytes); err != nil {
			return fmt.Errorf("%s: write bucket table: %w", s.Name(), err)
		}
	}

	for _, e := range g.Entries {
		if err := writeCString(s, e.Key); err != nil {
			return fmt.Errorf("%s: write label %q: %w", s.Name(), e.Key, err)
		}
	}
	for _, e := range g.Entries {
		if err := writeCString(s, e.Value); err != nil {
			return fmt.Errorf("%s: write section for %q: %w", s.Name(), e.Key, err)
		}
	}

	return nil
}

func writeCString(s stream.Stream, str string) error {
	buf := make([]byte, len(str)+1)
	copy(buf, str)
	return s.WriteAll(buf)
}
