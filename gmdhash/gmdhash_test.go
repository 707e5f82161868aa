// Copyright (c) 2024 The GAAC Script Tool Authors.
// SPDX-License-Identifier: GPL-3.0-or-later

package gmdhash

import "testing"

func TestChainIsDeterministic(t *testing.T) {
	t.Parallel()

	keys := []string{"A", "Objection", "", "KEY_WITH_UNDERSCORES_123"}

	for _, k := range keys {
		k := k
		t.Run(k, func(t *testing.T) {
			t.Parallel()

			h0a, h1a, h2a := Chain([]byte(k))
			h0b, h1b, h2b := Chain([]byte(k))
			if h0a != h0b || h1a != h1b || h2a != h2b {
				t.Fatalf("Chain(%q) is not deterministic", k)
			}
		})
	}
}

func TestChainMatchesDefinition(t *testing.T) {
	t.Parallel()

	key := []byte("A")
	wantH0 := ^CRC32(0, key)
	wantH1 := ^CRC32(^wantH0, key)
	wantH2 := ^CRC32(^wantH1, key)

	h0, h1, h2 := Chain(key)
	if h0 != wantH0 || h1 != wantH1 || h2 != wantH2 {
		t.Fatalf("Chain() = (%#x, %#x, %#x), want (%#x, %#x, %#x)", h0, h1, h2, wantH0, wantH1, wantH2)
	}
}

func TestBucketIsLowByte(t *testing.T) {
	t.Parallel()

	tests := []struct {
		h0   uint32
		want uint8
	}{
		{0x00000000, 0x00},
		{0x000000FF, 0xFF},
		{0xDEADBE42, 0x42},
	}

	for _, tt := range tests {
		if got := Bucket(tt.h0); got != tt.want {
			t.Errorf("Bucket(%#x) = %#x, want %#x", tt.h0, got, tt.want)
		}
	}
}

func TestDifferentKeysUsuallyDifferentHashes(t *testing.T) {
	t.Parallel()

	h0a, _, _ := Chain([]byte("A"))
	h0b, _, _ := Chain([]byte("B"))
	if h0a == h0b {
		t.Fatalf("Chain(\"A\") and Chain(\"B\") collide on h0, unexpected for this test vector")
	}
}
