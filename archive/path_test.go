// Copyright (c) 2024 The GAAC Script Tool Authors.
// SPDX-License-Identifier: GPL-3.0-or-later

package archive_test

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/jvernay-tools/gaac-script/archive"
)

//nolint:gosec // Test helper creates files in test temp directory
func createSimpleTestZIP(t *testing.T, zipPath string) {
	t.Helper()

	zipFile, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}

	writer := zip.NewWriter(zipFile)
	fileWriter, err := writer.Create("script.arc")
	if err != nil {
		t.Fatalf("create file in zip: %v", err)
	}
	if _, err := fileWriter.Write([]byte("test")); err != nil {
		t.Fatalf("write to zip: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	if err := zipFile.Close(); err != nil {
		t.Fatalf("close zip file: %v", err)
	}
}

func TestParsePath_ArchiveWithInternalPath(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	zipPath := filepath.Join(tmpDir, "scripts.zip")
	createSimpleTestZIP(t, zipPath)

	result, err := archive.ParsePath(zipPath + "/folder/script.arc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if result.ArchivePath != zipPath {
		t.Errorf("ArchivePath = %q, want %q", result.ArchivePath, zipPath)
	}
	if result.InternalPath != "folder/script.arc" {
		t.Errorf("InternalPath = %q, want %q", result.InternalPath, "folder/script.arc")
	}
}

func TestParsePath_ArchiveOnly(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	zipPath := filepath.Join(tmpDir, "scripts.zip")
	createSimpleTestZIP(t, zipPath)

	result, err := archive.ParsePath(zipPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if result.ArchivePath != zipPath {
		t.Errorf("ArchivePath = %q, want %q", result.ArchivePath, zipPath)
	}
	if result.InternalPath != "" {
		t.Errorf("InternalPath = %q, want empty", result.InternalPath)
	}
}

func TestParsePath_NonArchive(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()

	result, err := archive.ParsePath(filepath.Join(tmpDir, "regular.txt"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result != nil {
		t.Errorf("expected nil, got %+v", result)
	}
}

func TestParsePath_NonExistentArchive(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	// Use string concatenation instead of filepath.Join to include path separator
	fakePath := tmpDir + "/nonexistent.zip/script.arc"

	result, err := archive.ParsePath(fakePath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result != nil {
		t.Errorf("expected nil, got %+v", result)
	}
}
