// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for bagit packages.
//
// [RequireReceive] and [RequireClosed] wait on channels with a timeout,
// so a hung goroutine fails the test instead of stalling it. They are
// the only place in the test suite where real wall-clock timeouts are
// used.
//
// [WriteTree] and [ReadFile] build and inspect directory fixtures for
// tests that make and validate bags on disk.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package imports only the standard library.
package testutil
