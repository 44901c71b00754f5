// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging builds the structured logger used by the bagit
// binaries. Worker stdout carries protocol responses, so loggers here
// always write to a caller-supplied file, normally os.Stderr.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// New creates a structured logger writing to output at the given
// level. When output is a terminal, uses slog.TextHandler for
// human-readable output. When it is piped or redirected (a parent
// process capturing the worker's stderr, CI, tests), uses
// slog.JSONHandler for machine-parseable output.
//
// Callers scope the logger with per-process context via With():
//
//	logger := logging.New(os.Stderr, level).With("component", "bagit-runner")
func New(output *os.File, level slog.Level) *slog.Logger {
	var handler slog.Handler
	options := &slog.HandlerOptions{Level: level}
	if term.IsTerminal(int(output.Fd())) {
		handler = slog.NewTextHandler(output, options)
	} else {
		handler = slog.NewJSONHandler(output, options)
	}
	return slog.New(handler)
}

// ParseLevel converts a level name (debug, info, warn, error) into a
// slog.Level. Matching is case-insensitive; "warning" is accepted as
// an alias for warn.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (valid levels: debug, info, warn, error)", name)
	}
}
