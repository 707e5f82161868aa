// Copyright (c) 2024 The GAAC Script Tool Authors.
// SPDX-License-Identifier: GPL-3.0-or-later

package stream

import (
	"fmt"
	"io"
	"os"
)

// FileStream is a Stream backed by an OS file handle.
type FileStream struct {
	file *os.File
	name string
}

// OpenFile opens an existing file for reading and writing.
func OpenFile(path string) (*FileStream, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644) //nolint:gosec // path is caller-controlled
	if err != nil {
		return nil, fmt.Errorf("open file stream: %w", err)
	}
	return &FileStream{file: f, name: displayName(path)}, nil
}

// CreateFile creates (truncating if necessary) a file for writing.
func CreateFile(path string) (*FileStream, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644) //nolint:gosec // path is caller-controlled
	if err != nil {
		return nil, fmt.Errorf("create file stream: %w", err)
	}
	return &FileStream{file: f, name: displayName(path)}, nil
}

func displayName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[i+1:]
		}
	}
	return path
}

// Close releases the underlying OS handle.
func (fs *FileStream) Close() error {
	if err := fs.file.Close(); err != nil {
		return fmt.Errorf("close file stream %s: %w", fs.name, err)
	}
	return nil
}

func (fs *FileStream) Seek(offset int64, whence int) (int64, error) {
	pos, err := clampingSeek(fs.file, offset, whence)
	if err != nil {
		return 0, fmt.Errorf("seek %s: %w", fs.name, err)
	}
	return pos, nil
}

func (fs *FileStream) Tell() (int64, error) {
	pos, err := fs.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("tell %s: %w", fs.name, err)
	}
	return pos, nil
}

func (fs *FileStream) ReadExact(dst []byte) error {
	if _, err := io.ReadFull(fs.file, dst); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return fmt.Errorf("%s: %w", fs.name, ErrShortRead)
		}
		return fmt.Errorf("read %s: %w", fs.name, err)
	}
	return nil
}

func (fs *FileStream) WriteAll(src []byte) error {
	if _, err := fs.file.Write(src); err != nil {
		return fmt.Errorf("write %s: %w", fs.name, err)
	}
	return nil
}

func (fs *FileStream) ReadCString() ([]byte, error) {
	return readCString(fs)
}

func (fs *FileStream) ReadAll() ([]byte, error) {
	pos, err := fs.Tell()
	if err != nil {
		return nil, err
	}
	defer func() { _, _ = fs.Seek(pos, io.SeekStart) }()

	if _, err := fs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(fs.file)
	if err != nil {
		return nil, fmt.Errorf("read all %s: %w", fs.name, err)
	}
	return data, nil
}

func (fs *FileStream) Name() string {
	return fs.name
}

// seeker is the subset of *os.File needed by clampingSeek, abstracted so it
// can be exercised by tests without touching the filesystem.
type seeker interface {
	Seek(offset int64, whence int) (int64, error)
	Stat() (os.FileInfo, error)
}

// clampingSeek performs an os.File seek, clamping out-of-range results to
// [0, size] instead of producing a negative or past-end position.
func clampingSeek(f seeker, offset int64, whence int) (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	size := info.Size()

	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		cur, err := f.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, err
		}
		target = cur + offset
	case io.SeekEnd:
		target = size + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}

	switch {
	case target < 0:
		target = 0
	case target > size:
		target = size
	}

	return f.Seek(target, io.SeekStart)
}
