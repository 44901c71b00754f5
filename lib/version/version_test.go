// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func TestInjectedValues(t *testing.T) {
	saved := [...]string{GitCommit, GitDirty, BuildTime, Version}
	t.Cleanup(func() {
		GitCommit, GitDirty, BuildTime, Version = saved[0], saved[1], saved[2], saved[3]
	})

	GitCommit = "abc1234"
	GitDirty = "true"
	BuildTime = "2026-02-10T12:00:00Z"
	Version = "1.2.3"

	if got, want := Info(), "1.2.3 (abc1234-dirty, 2026-02-10T12:00:00Z)"; got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}
	if got := Short(); got != "1.2.3" {
		t.Errorf("Short() = %q, want %q", got, "1.2.3")
	}
	if got := Commit(); got != "abc1234" {
		t.Errorf("Commit() = %q, want %q", got, "abc1234")
	}
	full := Full()
	if !strings.HasPrefix(full, Info()) || !strings.Contains(full, "Go: go") {
		t.Errorf("Full() = %q, want Info() followed by the Go version", full)
	}
}

func TestCommitFallback(t *testing.T) {
	saved := GitCommit
	t.Cleanup(func() { GitCommit = saved })
	GitCommit = "unknown"

	// Test binaries carry no VCS settings, so the fallback keeps the
	// default; with VCS stamping it is a short hex revision.
	commit := Commit()
	if commit != "unknown" && len(commit) != shortCommitLength {
		t.Errorf("Commit() = %q, want %q or a %d-character revision", commit, "unknown", shortCommitLength)
	}
}
