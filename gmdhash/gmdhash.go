// Copyright (c) 2024 The GAAC Script Tool Authors.
// SPDX-License-Identifier: GPL-3.0-or-later

// Package gmdhash implements the chained CRC-32 variant GMD uses to index
// its labels into a 256-slot bucket table.
package gmdhash

import "hash/crc32"

// ieeeTable is the standard IEEE polynomial CRC-32 table used by GMD.
var ieeeTable = crc32.MakeTable(crc32.IEEE)

// CRC32 computes the standard IEEE CRC-32 of data, seeded with seed.
func CRC32(seed uint32, data []byte) uint32 {
	return crc32.Update(seed, ieeeTable, data)
}

// Chain computes the three chained hash values GMD stores and verifies for
// a key: h0 = ~crc32(0, key), h1 = ~crc32(~h0, key), h2 = ~crc32(~h1, key).
func Chain(key []byte) (h0, h1, h2 uint32) {
	h0 = ^CRC32(0, key)
	h1 = ^CRC32(^h0, key)
	h2 = ^CRC32(^h1, key)
	return h0, h1, h2
}

// Bucket returns the bucket-table slot (0-255) a key's h0 maps to.
func Bucket(h0 uint32) uint8 {
	return uint8(h0 & 0xFF)
}
