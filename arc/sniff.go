// Copyright (c) 2024 The GAAC Script Tool Authors.
// SPDX-License-Identifier: GPL-3.0-or-later

package arc

import (
	"fmt"
	"io"

	"github.com/jvernay-tools/gaac-script/internal/binary"
)

// LooksLikeArc reports whether r begins with the ARC container magic,
// without fully parsing it as an archive. Installer packers sometimes carry
// members without a reliable ".arc" extension, so callers that found a
// candidate by name can use this to confirm before committing to a full
// Load.
func LooksLikeArc(r io.ReaderAt) (bool, error) {
	header, err := binary.ReadBytesAt(r, 0, len(magic))
	if err != nil {
		return false, fmt.Errorf("sniff ARC magic: %w", err)
	}
	return binary.BytesEqual(header, []byte(magic)), nil
}
