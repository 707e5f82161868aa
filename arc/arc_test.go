// Copyright (c) 2024 The GAAC Script Tool Authors.
// SPDX-License-Identifier: GPL-3.0-or-later

package arc

import (
	"bytes"
	"errors"
	"testing"

	"github.com/jvernay-tools/gaac-script/stream"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		arc  *ArcArchive
	}{
		{
			name: "empty archive",
			arc:  &ArcArchive{Version: 8, Entries: nil},
		},
		{
			name: "single uncompressed entry",
			arc: &ArcArchive{
				Version: 8,
				Entries: []ArcEntry{
					{Filename: "script/001.gmd", Ext: 0x242BB29A, Content: []byte("Objection!"), DecompSize: uint32(len("Objection!"))},
				},
			},
		},
		{
			name: "multiple entries with flags",
			arc: &ArcArchive{
				Version: 7,
				Entries: []ArcEntry{
					{Filename: "a.gmd", Ext: 1, Content: []byte("aaa"), DecompSize: 3, UnknownFlags: 0x05},
					{Filename: "b.gmd", Ext: 2, Content: []byte("bbbbbb"), DecompSize: 6},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			buf := stream.NewBufferWriter("test.arc")
			if err := Save(tt.arc, buf); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			in := stream.NewBuffer("test.arc", buf.Bytes())
			got, err := Load(in)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}

			if got.Version != tt.arc.Version {
				t.Errorf("Version = %d, want %d", got.Version, tt.arc.Version)
			}
			if len(got.Entries) != len(tt.arc.Entries) {
				t.Fatalf("len(Entries) = %d, want %d", len(got.Entries), len(tt.arc.Entries))
			}
			for i, e := range got.Entries {
				want := tt.arc.Entries[i]
				if e.Filename != want.Filename {
					t.Errorf("entry %d Filename = %q, want %q", i, e.Filename, want.Filename)
				}
				if e.Ext != want.Ext {
					t.Errorf("entry %d Ext = %d, want %d", i, e.Ext, want.Ext)
				}
				if !bytes.Equal(e.Content, want.Content) {
					t.Errorf("entry %d Content = %q, want %q", i, e.Content, want.Content)
				}
				if e.DecompSize != want.DecompSize {
					t.Errorf("entry %d DecompSize = %d, want %d", i, e.DecompSize, want.DecompSize)
				}
				if e.UnknownFlags != want.UnknownFlags {
					t.Errorf("entry %d UnknownFlags = %d, want %d", i, e.UnknownFlags, want.UnknownFlags)
				}
			}
		})
	}
}

func TestLoadBadMagic(t *testing.T) {
	t.Parallel()

	in := stream.NewBuffer("bad.arc", []byte("XXXX\x07\x00\x00\x00"))
	_, err := Load(in)

	var magicErr BadMagicError
	if !errors.As(err, &magicErr) {
		t.Fatalf("Load() error = %v, want BadMagicError", err)
	}
}

func TestLoadBadVersion(t *testing.T) {
	t.Parallel()

	in := stream.NewBuffer("bad.arc", []byte("ARC\x00\x63\x00\x00\x00"))
	_, err := Load(in)

	var versionErr BadVersionError
	if !errors.As(err, &versionErr) {
		t.Fatalf("Load() error = %v, want BadVersionError", err)
	}
}

func TestSaveNameTooLongForcesExtendedWidth(t *testing.T) {
	t.Parallel()

	longName := make([]byte, 70)
	for i := range longName {
		longName[i] = 'a'
	}

	a := &ArcArchive{
		Version: 8,
		Entries: []ArcEntry{
			{Filename: string(longName), Content: []byte("x"), DecompSize: 1},
		},
	}

	buf := stream.NewBufferWriter("test.arc")
	if err := Save(a, buf); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	in := stream.NewBuffer("test.arc", buf.Bytes())
	got, err := Load(in)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !got.HasExtendedNames {
		t.Error("HasExtendedNames = false, want true for a name exceeding the short width")
	}
	if got.Entries[0].Filename != string(longName) {
		t.Errorf("Filename = %q, want %q", got.Entries[0].Filename, string(longName))
	}
}

func TestSaveNameTooLongForExtendedWidthFails(t *testing.T) {
	t.Parallel()

	longName := make([]byte, 200)
	for i := range longName {
		longName[i] = 'a'
	}

	a := &ArcArchive{
		Version:          8,
		HasExtendedNames: true,
		Entries: []ArcEntry{
			{Filename: string(longName), Content: []byte("x"), DecompSize: 1},
		},
	}

	buf := stream.NewBufferWriter("test.arc")
	err := Save(a, buf)

	var nameErr NameTooLongError
	if !errors.As(err, &nameErr) {
		t.Fatalf("Save() error = %v, want NameTooLongError", err)
	}
}

// TestSaveNameBoundary checks the exact cutoff between a name that fits the
// short 64-byte record (leaving room for its trailing NUL) and one that
// forces (or, for an already-extended archive, overflows) the 128-byte
// extended record: name+NUL must stay strictly under the record width.
func TestSaveNameBoundary(t *testing.T) {
	t.Parallel()

	name := func(n int) string {
		b := make([]byte, n)
		for i := range b {
			b[i] = 'a'
		}
		return string(b)
	}

	t.Run("62 bytes fits the short record", func(t *testing.T) {
		t.Parallel()

		a := &ArcArchive{Version: 8, Entries: []ArcEntry{
			{Filename: name(62), Content: []byte("x"), DecompSize: 1},
		}}
		buf := stream.NewBufferWriter("test.arc")
		if err := Save(a, buf); err != nil {
			t.Fatalf("Save() error = %v, want nil", err)
		}
	})

	t.Run("63 bytes forces extended names instead of failing", func(t *testing.T) {
		t.Parallel()

		a := &ArcArchive{Version: 8, Entries: []ArcEntry{
			{Filename: name(63), Content: []byte("x"), DecompSize: 1},
		}}
		buf := stream.NewBufferWriter("test.arc")
		if err := Save(a, buf); err != nil {
			t.Fatalf("Save() error = %v, want nil (should auto-extend)", err)
		}
	})

	t.Run("126 bytes fits the extended record", func(t *testing.T) {
		t.Parallel()

		a := &ArcArchive{Version: 8, HasExtendedNames: true, Entries: []ArcEntry{
			{Filename: name(126), Content: []byte("x"), DecompSize: 1},
		}}
		buf := stream.NewBufferWriter("test.arc")
		if err := Save(a, buf); err != nil {
			t.Fatalf("Save() error = %v, want nil", err)
		}
	})

	t.Run("127 bytes overflows the extended record", func(t *testing.T) {
		t.Parallel()

		a := &ArcArchive{Version: 8, HasExtendedNames: true, Entries: []ArcEntry{
			{Filename: name(127), Content: []byte("x"), DecompSize: 1},
		}}
		buf := stream.NewBufferWriter("test.arc")
		err := Save(a, buf)

		var nameErr NameTooLongError
		if !errors.As(err, &nameErr) {
			t.Fatalf("Save() error = %v, want NameTooLongError", err)
		}
	})
}
