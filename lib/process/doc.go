// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for the bagit
// binaries. These functions centralize the raw I/O that happens before
// the structured logger exists or after main() has given up:
//
//   - Fatal error reporting to stderr when the logger may not be
//     initialized (pre-logger).
//   - Process exit after an unrecoverable error in main().
//
// The worker's stdout carries the response stream, so nothing in a
// worker binary may print to stdout. Diagnostics go to stderr through
// this package or the logger.
package process
