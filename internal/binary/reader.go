// Copyright (c) 2024 The GAAC Script Tool Authors.
// SPDX-License-Identifier: GPL-3.0-or-later

// Package binary provides small helpers for peeking at fixed-width fields
// inside a container member without fully decoding it, such as magic-number
// sniffing ahead of a real Load call.
package binary

import (
	"fmt"
	"io"
)

// ReadAt reads len(buf) bytes from r at offset.
func ReadAt(r io.ReaderAt, offset int64, buf []byte) error {
	_, err := r.ReadAt(buf, offset)
	if err != nil {
		return fmt.Errorf("read at offset %d: %w", offset, err)
	}
	return nil
}

// ReadBytesAt reads n bytes from r at offset.
func ReadBytesAt(r io.ReaderAt, offset int64, n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := ReadAt(r, offset, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// BytesEqual compares two byte slices for equality.
func BytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
