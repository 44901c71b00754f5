// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"path/filepath"
	"testing"
	"time"
)

func TestWriteTree(t *testing.T) {
	root := WriteTree(t, map[string]string{
		"top.txt":          "top",
		"nested/deep/a.md": "deep",
	})

	if got := ReadFile(t, filepath.Join(root, "top.txt")); got != "top" {
		t.Errorf("top.txt = %q, want %q", got, "top")
	}
	if got := ReadFile(t, filepath.Join(root, "nested", "deep", "a.md")); got != "deep" {
		t.Errorf("nested/deep/a.md = %q, want %q", got, "deep")
	}
}

func TestRequireReceive(t *testing.T) {
	ch := make(chan int, 1)
	ch <- 42
	if got := RequireReceive(t, ch, time.Second, "buffered value"); got != 42 {
		t.Errorf("RequireReceive = %d, want 42", got)
	}
}

func TestRequireClosed(t *testing.T) {
	ch := make(chan struct{})
	close(ch)
	RequireClosed(t, ch, time.Second, "closed channel")
}
