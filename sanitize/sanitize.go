// Copyright (c) 2024 The GAAC Script Tool Authors.
// SPDX-License-Identifier: GPL-3.0-or-later

// Package sanitize collapses arbitrary strings into filesystem-safe
// identifiers for the editable directory tree.
package sanitize

import "strings"

// ToID maps s to a filesystem-safe token: every non-alphanumeric byte
// becomes '-', and runs of consecutive '-' collapse to one. The result
// never round-trips back into the binary containers; it exists only for
// directory naming.
func ToID(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	prevDash := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
			b.WriteByte(c)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
			}
			prevDash = true
		}
	}
	return b.String()
}
