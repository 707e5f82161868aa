// Copyright (c) 2024 The GAAC Script Tool Authors.
// SPDX-License-Identifier: GPL-3.0-or-later

// Package roundtrip drives the load-save-compare check used to validate
// that the arc and gmd codecs reproduce a shipped file byte-for-byte.
package roundtrip

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jvernay-tools/gaac-script/arc"
	"github.com/jvernay-tools/gaac-script/gmd"
	"github.com/jvernay-tools/gaac-script/stream"
)

const gmdMagic = "GMD\x00"

// Mismatch describes the first differing byte between an original file and
// its re-encoded form.
type Mismatch struct {
	Offset   int64
	Original byte
	Reencode byte
	Context  string
}

// FileResult is the outcome of checking a single .arc file and every GMD
// payload nested inside it.
type FileResult struct {
	Path      string
	OK        bool
	Mismatch  *Mismatch
	EntryName string // set when a nested GMD entry failed, empty for an ARC-level failure
	Err       error
}

// Report is the aggregate outcome of a directory sweep.
type Report struct {
	Files   []FileResult
	Checked int
	Failed  int
}

// CheckDir recursively finds every .arc file under root, loads it, re-saves
// it to a buffer, and compares the result byte-exact to the original bytes.
// For every entry whose decompressed payload starts with the GMD magic, it
// additionally parses, re-emits, and compares that payload. A cache keyed by
// content hash skips nested GMD payloads already validated once, since
// installer trees frequently duplicate the same asset across archives.
func CheckDir(root string) (Report, error) {
	seen, err := lru.New[string, bool](4096)
	if err != nil {
		return Report{}, fmt.Errorf("create round-trip cache: %w", err)
	}

	var report Report
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".arc") {
			return nil
		}
		report.Checked++
		result := checkArcFile(path, seen)
		if !result.OK {
			report.Failed++
		}
		report.Files = append(report.Files, result)
		return nil
	})
	if walkErr != nil {
		return report, fmt.Errorf("walk %s: %w", root, walkErr)
	}
	return report, nil
}

func checkArcFile(path string, seen *lru.Cache[string, bool]) FileResult {
	in, err := stream.OpenFile(path)
	if err != nil {
		return FileResult{Path: path, Err: fmt.Errorf("open: %w", err)}
	}
	defer func() { _ = in.Close() }()

	original, err := in.ReadAll()
	if err != nil {
		return FileResult{Path: path, Err: fmt.Errorf("read: %w", err)}
	}

	if _, err := in.Seek(0, io.SeekStart); err != nil {
		return FileResult{Path: path, Err: fmt.Errorf("seek: %w", err)}
	}
	archive, err := arc.Load(in)
	if err != nil {
		return FileResult{Path: path, Err: fmt.Errorf("load: %w", err)}
	}

	out := stream.NewBufferWriter(path)
	if err := arc.Save(archive, out); err != nil {
		return FileResult{Path: path, Err: fmt.Errorf("save: %w", err)}
	}

	if mm := compareBytes(original, out.Bytes()); mm != nil {
		return FileResult{Path: path, Mismatch: mm}
	}

	for _, e := range archive.Entries {
		payload, err := e.Decompressed()
		if err != nil {
			return FileResult{Path: path, EntryName: e.Filename, Err: fmt.Errorf("entry %q: %w", e.Filename, err)}
		}
		if len(payload) < 4 || string(payload[:4]) != gmdMagic {
			continue
		}

		digest := sha256.Sum256(payload)
		key := string(digest[:])
		if ok, present := seen.Get(key); present && ok {
			continue
		}

		if result := checkGmdPayload(path, e.Filename, payload); !result {
			seen.Add(key, false)
			return FileResult{Path: path, EntryName: e.Filename, Err: fmt.Errorf(
				"entry %q: nested GMD round trip mismatch", e.Filename)}
		}
		seen.Add(key, true)
	}

	return FileResult{Path: path, OK: true}
}

func checkGmdPayload(arcPath, entryName string, payload []byte) bool {
	in := stream.NewBuffer(arcPath+"/"+entryName, payload)
	reg, err := gmd.Load(in)
	if err != nil {
		return false
	}
	out := stream.NewBufferWriter(arcPath + "/" + entryName)
	if err := gmd.Save(reg, out); err != nil {
		return false
	}
	return bytes.Equal(payload, out.Bytes())
}

func compareBytes(original, reencoded []byte) *Mismatch {
	n := len(original)
	if len(reencoded) < n {
		n = len(reencoded)
	}
	for i := 0; i < n; i++ {
		if original[i] != reencoded[i] {
			return &Mismatch{
				Offset:   int64(i),
				Original: original[i],
				Reencode: reencoded[i],
				Context:  hexContext(original, i),
			}
		}
	}
	if len(original) != len(reencoded) {
		return &Mismatch{
			Offset:  int64(n),
			Context: fmt.Sprintf("length differs: original %d bytes, re-encoded %d bytes", len(original), len(reencoded)),
		}
	}
	return nil
}

// hexContext renders up to 8 bytes around offset for a diagnostic message.
func hexContext(data []byte, offset int) string {
	start := offset - 4
	if start < 0 {
		start = 0
	}
	end := offset + 4
	if end > len(data) {
		end = len(data)
	}
	return fmt.Sprintf("%x", data[start:end])
}
