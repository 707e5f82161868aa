// Copyright (c) 2024 The GAAC Script Tool Authors.
// SPDX-License-Identifier: GPL-3.0-or-later

// Command gaac-script extracts and repacks the localized script text bundled
// inside The Great Ace Attorney Chronicles' ARC/GMD containers.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/jvernay-tools/gaac-script/arc"
	"github.com/jvernay-tools/gaac-script/deflate"
	"github.com/jvernay-tools/gaac-script/gmd"
	"github.com/jvernay-tools/gaac-script/stream"
)

const appVersion = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("gaac-script", flag.ContinueOnError)

	var verbose bool
	var showLicense bool
	var xmlMeta bool
	fs.BoolVar(&verbose, "v", false, "enable verbose logging")
	fs.BoolVar(&verbose, "verbose", false, "enable verbose logging")
	fs.BoolVar(&showLicense, "license", false, "print license text and exit")
	fs.BoolVar(&xmlMeta, "xml", false, "write/read __meta__.xml instead of __meta__.json")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <command> <args...>\n\n", fs.Name())
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  extract <install-path> <destination-folder>\n")
		fmt.Fprintf(os.Stderr, "  repack  <edited-folder> <target-archive-folder>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if showLicense {
		fmt.Println(licenseText)
		return 0
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	logger.Debug("starting", "version", appVersion)

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return 1
	}

	var err error
	switch rest[0] {
	case "extract":
		if len(rest) != 3 {
			fs.Usage()
			return 1
		}
		err = extract(logger, rest[1], rest[2], xmlMeta)
	case "repack":
		if len(rest) != 3 {
			fs.Usage()
			return 1
		}
		err = repack(logger, rest[1], rest[2])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", rest[0])
		fs.Usage()
		return 1
	}

	if err != nil {
		logger.Error("failed", "err", err)
		return exitCodeFor(err)
	}
	return 0
}

// exitCodeFor maps a failure to the documented exit code: 2 for a format
// error surfaced by arc, gmd, stream, or deflate; 1 for everything else.
func exitCodeFor(err error) int {
	var (
		arcMagic   arc.BadMagicError
		arcVersion arc.BadVersionError
		arcFormat  arc.BadFormatError
		arcNameLen arc.NameTooLongError
		gmdMagic   gmd.BadMagicError
		gmdVersion gmd.BadVersionError
		gmdSize    gmd.BadSizeError
		gmdFormat  gmd.BadFormatError
		gmdHash    gmd.HashMismatchError
	)
	switch {
	case errors.As(err, &arcMagic), errors.As(err, &arcVersion), errors.As(err, &arcFormat), errors.As(err, &arcNameLen),
		errors.As(err, &gmdMagic), errors.As(err, &gmdVersion), errors.As(err, &gmdSize), errors.As(err, &gmdFormat), errors.As(err, &gmdHash),
		errors.Is(err, stream.ErrShortRead), errors.Is(err, stream.ErrUnterminatedCString),
		errors.Is(err, deflate.ErrBadCompressionMagic), errors.Is(err, deflate.ErrDecompression):
		return 2
	default:
		return 1
	}
}
