// Copyright (c) 2024 The GAAC Script Tool Authors.
// SPDX-License-Identifier: GPL-3.0-or-later

package deflate

import (
	"bytes"
	"errors"
	"testing"
)

func TestDecompressUncompressedPassthrough(t *testing.T) {
	t.Parallel()

	data := []byte("hello, world")
	out, err := Decompress(data, len(data))
	if err != nil {
		t.Fatalf("Decompress() error = %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Fatalf("Decompress() = %q, want %q", out, data)
	}
}

func TestDecompressBadMagic(t *testing.T) {
	t.Parallel()

	// First byte 0x09: low nibble is 9, not the required deflate method 8.
	_, err := Decompress([]byte{0x09, 0x00, 0x00, 0x00}, 8)
	if !errors.Is(err, ErrBadCompressionMagic) {
		t.Fatalf("Decompress() error = %v, want ErrBadCompressionMagic", err)
	}
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"short", []byte("A")},
		{"text with markup", []byte("Hold it!<PAGE>\r\nObjection!\n")},
		{"repetitive", bytes.Repeat([]byte("abcabcabc"), 200)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			compressed, err := Compress(tt.data)
			if err != nil {
				t.Fatalf("Compress() error = %v", err)
			}
			if len(compressed) == len(tt.data) {
				// Decompress treats equal lengths as "stored uncompressed",
				// so such a case would not exercise the inflate path.
				t.Skip("compressed length coincidentally equals input length")
			}

			decompressed, err := Decompress(compressed, len(tt.data))
			if err != nil {
				t.Fatalf("Decompress() error = %v", err)
			}
			if !bytes.Equal(decompressed, tt.data) {
				t.Fatalf("round trip mismatch: got %q, want %q", decompressed, tt.data)
			}
		})
	}
}

func TestDecompressIdempotenceAfterRecompress(t *testing.T) {
	t.Parallel()

	// Property P3: decompress(compress(decompress(e))) == decompress(e).
	original := []byte("Objection! The witness's testimony is inconsistent.")

	compressed, err := Compress(original)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	decompressedOnce, err := Decompress(compressed, len(original))
	if err != nil {
		t.Fatalf("Decompress() error = %v", err)
	}

	recompressed, err := Compress(decompressedOnce)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	decompressedTwice, err := Decompress(recompressed, len(original))
	if err != nil {
		t.Fatalf("Decompress() error = %v", err)
	}

	if !bytes.Equal(decompressedOnce, decompressedTwice) {
		t.Fatalf("idempotence violated: %q != %q", decompressedOnce, decompressedTwice)
	}
}
