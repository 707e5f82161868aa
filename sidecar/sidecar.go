// Copyright (c) 2024 The GAAC Script Tool Authors.
// SPDX-License-Identifier: GPL-3.0-or-later

// Package sidecar reads and writes the metadata file written next to an
// extracted archive tree, recording the non-content fields of each ArcEntry
// so repack can rebuild the original container from edited plain files. It
// is pure plumbing: neither arc nor gmd import it.
package sidecar

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
)

// EntryMeta is the non-content fields of one ArcEntry.
type EntryMeta struct {
	Filename      string `json:"filename"       xml:"filename"`
	ExtensionHash uint32 `json:"extensionHash"  xml:"extensionHash"`
	DecompSize    uint32 `json:"decompSize"     xml:"decompSize"`
	UnknownFlags  uint8  `json:"unknownFlags"   xml:"unknownFlags"`
	Compressed    bool   `json:"compressed"     xml:"compressed"`
}

// ArchiveMeta records one extracted ARC archive: its header fields and the
// order-preserving list of its entries' metadata.
type ArchiveMeta struct {
	XMLName xml.Name `json:"-" xml:"archive"`

	// SourceName is the original ARC filename (with extension), so repack
	// can write the rebuilt container back under the same name even
	// though the destination directory it was extracted into may have
	// been sanitized.
	SourceName string `json:"sourceName" xml:"sourceName"`

	Version          uint16      `json:"version"          xml:"version"`
	HasExtendedNames bool        `json:"hasExtendedNames" xml:"hasExtendedNames"`
	Entries          []EntryMeta `json:"entries"           xml:"entry"`
}

// WriteJSON writes m to w as indented JSON.
func WriteJSON(m ArchiveMeta, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode archive metadata: %w", err)
	}
	return nil
}

// ReadJSON reads an ArchiveMeta previously written by WriteJSON.
func ReadJSON(r io.Reader) (ArchiveMeta, error) {
	var m ArchiveMeta
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return ArchiveMeta{}, fmt.Errorf("decode archive metadata: %w", err)
	}
	return m, nil
}

// WriteXML writes m to w as indented XML, rooted at <archive>.
func WriteXML(m ArchiveMeta, w io.Writer) error {
	m.XMLName = xml.Name{Local: "archive"}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode archive metadata: %w", err)
	}
	return nil
}

// ReadXML reads an ArchiveMeta previously written by WriteXML.
func ReadXML(r io.Reader) (ArchiveMeta, error) {
	var m ArchiveMeta
	if err := xml.NewDecoder(r).Decode(&m); err != nil {
		return ArchiveMeta{}, fmt.Errorf("decode archive metadata: %w", err)
	}
	return m, nil
}
