// Copyright (c) 2024 The GAAC Script Tool Authors.
// SPDX-License-Identifier: GPL-3.0-or-later

package sanitize

import (
	"strings"
	"testing"
)

func TestToID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"hello", "hello"},
		{"hello world", "hello-world"},
		{"a--b", "a-b"},
		{"<PAGE>", "-PAGE-"},
		{"___leading", "-leading"},
		{"", ""},
		{"GREETING_01", "GREETING-01"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			if got := ToID(tt.in); got != tt.want {
				t.Errorf("ToID(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestToIDIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{"Objection!", "<E123><E456>", "Hold it!\r\nWitness", "plain_name-already-ok"}
	for _, in := range inputs {
		once := ToID(in)
		twice := ToID(once)
		if once != twice {
			t.Errorf("ToID(ToID(%q)) = %q, want %q (ToID not idempotent)", in, twice, once)
		}
		for _, c := range twice {
			if c != '-' && !strings.ContainsRune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789", c) {
				t.Errorf("ToID(%q) contains disallowed rune %q", in, c)
			}
		}
	}
}
