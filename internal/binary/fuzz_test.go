// Copyright (c) 2024 The GAAC Script Tool Authors.
// SPDX-License-Identifier: GPL-3.0-or-later

package binary

import (
	"bytes"
	"testing"
)

// FuzzBytesEqual fuzzes byte slice comparison.
func FuzzBytesEqual(f *testing.F) {
	f.Add([]byte("test"), []byte("test"))
	f.Add([]byte("test"), []byte("tests"))
	f.Add([]byte{}, []byte{})
	f.Add([]byte{0x00}, []byte{0x00})

	f.Fuzz(func(t *testing.T, first, second []byte) {
		result := BytesEqual(first, second)

		expected := bytes.Equal(first, second)
		if result != expected {
			t.Errorf("BytesEqual(%v, %v) = %v, want %v", first, second, result, expected)
		}
	})
}

// FuzzReadBytesAt fuzzes offset-based reads against an in-memory buffer.
func FuzzReadBytesAt(f *testing.F) {
	f.Add([]byte("hello world"), int64(0), 5)
	f.Add([]byte("hello world"), int64(6), 5)
	f.Add([]byte{}, int64(0), 0)
	f.Add([]byte("ARC\x00"), int64(0), 4)

	f.Fuzz(func(t *testing.T, data []byte, offset int64, n int) {
		if n < 0 || n > 1<<20 {
			return
		}
		reader := bytes.NewReader(data)

		got, err := ReadBytesAt(reader, offset, n)
		if err != nil {
			return
		}
		if len(got) != n {
			t.Errorf("ReadBytesAt() returned %d bytes, want %d", len(got), n)
		}
	})
}
