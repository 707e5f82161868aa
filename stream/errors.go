// Copyright (c) 2024 The GAAC Script Tool Authors.
// SPDX-License-Identifier: GPL-3.0-or-later

package stream

import "errors"

// Sentinel errors for the two premature-end-of-stream conditions a Stream
// can report. Both are wrapped with the stream's Name() by callers.
var (
	// ErrShortRead indicates the stream ended before ReadExact filled dst.
	ErrShortRead = errors.New("short read: stream ended before destination was filled")

	// ErrUnterminatedCString indicates the stream ended before a NUL byte
	// was found by ReadCString.
	ErrUnterminatedCString = errors.New("unterminated C string: stream ended before a NUL byte")
)
