// Copyright (c) 2024 The GAAC Script Tool Authors.
// SPDX-License-Identifier: GPL-3.0-or-later

package stream

import (
	"errors"
	"fmt"
	"io"
)

// BufferStream is a Stream backed by an in-memory byte slice. It may hold a
// slice borrowed from the caller (NewBuffer) or one it grows itself
// (NewBufferWriter), chosen by which constructor is used.
type BufferStream struct {
	data []byte
	pos  int64
	name string
}

// NewBuffer wraps an existing byte slice for reading and in-place overwrite
// under Name name. A write past the end of the slice replaces it with a
// grown copy, so later writes no longer reach the caller's slice.
func NewBuffer(name string, data []byte) *BufferStream {
	return &BufferStream{data: data, name: name}
}

// NewBufferWriter creates an empty, growable buffer stream suitable as a
// Save target, e.g. for re-encoding an archive entirely in memory.
func NewBufferWriter(name string) *BufferStream {
	return &BufferStream{data: make([]byte, 0, 4096), name: name}
}

// Bytes returns the buffer's current content. The caller must not retain it
// across further writes to the stream.
func (bs *BufferStream) Bytes() []byte {
	return bs.data
}

func (bs *BufferStream) Seek(offset int64, whence int) (int64, error) {
	size := int64(len(bs.data))
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = bs.pos + offset
	case io.SeekEnd:
		target = size + offset
	default:
		return 0, fmt.Errorf("seek %s: invalid whence %d", bs.name, whence)
	}

	switch {
	case target < 0:
		target = 0
	case target > size:
		target = size
	}

	bs.pos = target
	return bs.pos, nil
}

func (bs *BufferStream) Tell() (int64, error) {
	return bs.pos, nil
}

func (bs *BufferStream) ReadExact(dst []byte) error {
	available := int64(len(bs.data)) - bs.pos
	if available < int64(len(dst)) {
		return fmt.Errorf("%s: %w", bs.name, ErrShortRead)
	}
	copy(dst, bs.data[bs.pos:bs.pos+int64(len(dst))])
	bs.pos += int64(len(dst))
	return nil
}

func (bs *BufferStream) WriteAll(src []byte) error {
	end := bs.pos + int64(len(src))
	if end > int64(len(bs.data)) {
		grown := make([]byte, end)
		copy(grown, bs.data)
		bs.data = grown
	}
	copy(bs.data[bs.pos:end], src)
	bs.pos = end
	return nil
}

func (bs *BufferStream) ReadCString() ([]byte, error) {
	return readCString(bs)
}

func (bs *BufferStream) ReadAll() ([]byte, error) {
	out := make([]byte, len(bs.data))
	copy(out, bs.data)
	return out, nil
}

func (bs *BufferStream) Name() string {
	return bs.name
}

// readCString implements Stream.ReadCString in terms of ReadExact, shared by
// both Stream implementations.
func readCString(s Stream) ([]byte, error) {
	var out []byte
	var b [1]byte
	for {
		if err := s.ReadExact(b[:]); err != nil {
			if errors.Is(err, ErrShortRead) {
				return nil, fmt.Errorf("%s: %w", s.Name(), ErrUnterminatedCString)
			}
			return nil, err
		}
		if b[0] == 0 {
			return out, nil
		}
		out = append(out, b[0])
	}
}
