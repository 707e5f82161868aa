// Copyright (c) 2024 The GAAC Script Tool Authors.
// SPDX-License-Identifier: GPL-3.0-or-later

// Package deflate decompresses and compresses ARC entry payloads. Compressed
// entries are stored as full zlib streams (2-byte header, deflate data,
// Adler-32 trailer); the header's method/info byte doubles as a quick
// sanity check the game itself relies on before handing the bytes to zlib.
package deflate

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// ErrBadCompressionMagic indicates the first byte of a compressed entry did
// not look like a valid zlib method/info (CMF) byte.
var ErrBadCompressionMagic = errors.New("bad compression magic byte")

// ErrDecompression indicates zlib inflate did not consume all input or
// produce exactly the expected number of output bytes.
var ErrDecompression = errors.New("decompression error")

// Decompress returns input unchanged if its length already matches
// expectedSize (the entry is stored uncompressed). Otherwise it validates
// the leading CMF byte and inflates input as a zlib stream, requiring the
// result to be exactly expectedSize bytes with no surplus input remaining.
func Decompress(input []byte, expectedSize int) ([]byte, error) {
	if len(input) == expectedSize {
		out := make([]byte, expectedSize)
		copy(out, input)
		return out, nil
	}

	if len(input) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrBadCompressionMagic)
	}
	magic := input[0]
	if magic&0x0F != 8 || magic&0xF0 > 0x70 {
		return nil, fmt.Errorf("%w: 0x%02X", ErrBadCompressionMagic, magic)
	}

	src := bytes.NewReader(input)
	zr, err := zlib.NewReader(src)
	if err != nil {
		return nil, fmt.Errorf("%w: zlib header: %w", ErrDecompression, err)
	}
	defer func() { _ = zr.Close() }()

	out := make([]byte, expectedSize)
	n, err := io.ReadFull(zr, out)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("%w: inflate: %w", ErrDecompression, err)
	}
	if n != expectedSize {
		return nil, fmt.Errorf("%w: produced %d bytes, expected %d", ErrDecompression, n, expectedSize)
	}

	// Reading one byte past expectedSize must hit the end of the stream;
	// that read is also where zlib checks the Adler-32 trailer.
	var probe [1]byte
	m, perr := zr.Read(probe[:])
	if m != 0 {
		return nil, fmt.Errorf("%w: surplus output past expected size", ErrDecompression)
	}
	if perr != nil && !errors.Is(perr, io.EOF) {
		return nil, fmt.Errorf("%w: trailer: %w", ErrDecompression, perr)
	}
	if err := zr.Close(); err != nil {
		return nil, fmt.Errorf("%w: trailer: %w", ErrDecompression, err)
	}
	if src.Len() != 0 {
		return nil, fmt.Errorf("%w: %d surplus input bytes", ErrDecompression, src.Len())
	}

	return out, nil
}

// Compress deflates input as a zlib stream with default settings, producing
// output whose first byte passes the validity check used by Decompress. It
// does not aim to reproduce the game's original encoder byte-for-byte; the
// only guarantee is Decompress(Compress(x), len(x)) == x.
func Compress(input []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("create zlib writer: %w", err)
	}
	if _, err := zw.Write(input); err != nil {
		return nil, fmt.Errorf("zlib write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zlib close: %w", err)
	}
	return buf.Bytes(), nil
}
