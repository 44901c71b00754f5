// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bagit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/bagit/lib/clock"
	"github.com/bureau-foundation/bagit/lib/testutil"
)

var baggingTime = time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC)

// makeBag builds a bag from files with the default options and a fixed
// Bagging-Date.
func makeBag(t *testing.T, files map[string]string) string {
	t.Helper()
	root := testutil.WriteTree(t, files)
	if _, err := Make(context.Background(), root, MakeOptions{Clock: clock.Fake(baggingTime)}); err != nil {
		t.Fatalf("Make: %v", err)
	}
	return root
}

func sampleFiles() map[string]string {
	return map[string]string{
		"hello.txt":    "hello\n",
		"nested/b.txt": "bee",
	}
}

func TestMakeLayout(t *testing.T) {
	root := testutil.WriteTree(t, sampleFiles())

	bag, err := Make(context.Background(), root, MakeOptions{Clock: clock.Fake(baggingTime)})
	if err != nil {
		t.Fatalf("Make: %v", err)
	}

	for _, name := range []string{
		"data/hello.txt",
		"data/nested/b.txt",
		"bagit.txt",
		"bag-info.txt",
		"manifest-sha256.txt",
		"manifest-sha512.txt",
		"tagmanifest-sha256.txt",
		"tagmanifest-sha512.txt",
	} {
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(name))); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "hello.txt")); !os.IsNotExist(err) {
		t.Errorf("hello.txt still at the bag root (err=%v)", err)
	}

	declaration := testutil.ReadFile(t, filepath.Join(root, "bagit.txt"))
	if want := "BagIt-Version: 0.97\nTag-File-Character-Encoding: UTF-8\n"; declaration != want {
		t.Errorf("bagit.txt = %q, want %q", declaration, want)
	}

	info := testutil.ReadFile(t, filepath.Join(root, "bag-info.txt"))
	for _, want := range []string{
		"Bagging-Date: 2026-03-04\n",
		"Payload-Oxum: 9.2\n",
		"Bag-Software-Agent: " + SoftwareAgent() + "\n",
	} {
		if !strings.Contains(info, want) {
			t.Errorf("bag-info.txt missing %q:\n%s", want, info)
		}
	}

	if bag.Version != Version {
		t.Errorf("Version = %q, want %q", bag.Version, Version)
	}
	if want := []string{"sha256", "sha512"}; !slices.Equal(bag.Algorithms, want) {
		t.Errorf("Algorithms = %v, want %v", bag.Algorithms, want)
	}
	if want := []string{"data/hello.txt", "data/nested/b.txt"}; !slices.Equal(bag.PayloadFiles(), want) {
		t.Errorf("PayloadFiles = %v, want %v", bag.PayloadFiles(), want)
	}
	digests := bag.PayloadDigests("data/hello.txt")
	if want := "5891b5b522d5df086d0ff0b110fbd9d21bb4fc7163af34d08286a2e846f6be03"; digests["sha256"] != want {
		t.Errorf("sha256 of data/hello.txt = %q, want %q", digests["sha256"], want)
	}

	if err := Validate(context.Background(), root, ValidateOptions{}); err != nil {
		t.Errorf("Validate on a fresh bag: %v", err)
	}
}

func TestMakeExistingDataEntry(t *testing.T) {
	root := makeBag(t, map[string]string{"data": "not a directory"})
	if got := testutil.ReadFile(t, filepath.Join(root, "data", "data")); got != "not a directory" {
		t.Errorf("data/data = %q, want the original file", got)
	}
}

func TestMakeErrors(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		options MakeOptions
		want    string
	}{
		{
			name: "missing directory",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent") },
			want: "does not exist",
		},
		{
			name: "not a directory",
			path: func(t *testing.T) string {
				root := testutil.WriteTree(t, map[string]string{"file": "x"})
				return filepath.Join(root, "file")
			},
			want: "is not a directory",
		},
		{
			name:    "unsupported checksum",
			path:    func(t *testing.T) string { return testutil.WriteTree(t, sampleFiles()) },
			options: MakeOptions{Checksums: []string{"crc32"}},
			want:    "Unsupported checksum algorithm: crc32",
		},
		{
			name:    "unsupported encoding",
			path:    func(t *testing.T) string { return testutil.WriteTree(t, sampleFiles()) },
			options: MakeOptions{Encoding: "latin-1"},
			want:    "Unsupported encoding: latin-1",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := test.path(t)
			_, err := Make(context.Background(), path, test.options)
			var bagErr *BagError
			if !errors.As(err, &bagErr) {
				t.Fatalf("Make error = %v, want *BagError", err)
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Errorf("Make error = %q, want it to contain %q", err, test.want)
			}
			if bagErr.Kind() != KindBag {
				t.Errorf("Kind() = %q, want %q", bagErr.Kind(), KindBag)
			}
		})
	}
}

func TestMakeRejectedOptionsLeaveDirectoryUntouched(t *testing.T) {
	root := testutil.WriteTree(t, sampleFiles())
	if _, err := Make(context.Background(), root, MakeOptions{Checksums: []string{"crc32"}}); err == nil {
		t.Fatal("Make with an unsupported checksum succeeded")
	}
	if _, err := os.Stat(filepath.Join(root, "hello.txt")); err != nil {
		t.Errorf("hello.txt moved despite the rejected options: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "data")); !os.IsNotExist(err) {
		t.Errorf("data/ created despite the rejected options (err=%v)", err)
	}
}

func TestMakeAlternateAlgorithms(t *testing.T) {
	root := testutil.WriteTree(t, sampleFiles())
	bag, err := Make(context.Background(), root, MakeOptions{
		Checksums: []string{"blake3", "blake2b-256", "blake3"},
		Processes: 2,
	})
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	if want := []string{"blake2b-256", "blake3"}; !slices.Equal(bag.Algorithms, want) {
		t.Errorf("Algorithms = %v, want %v", bag.Algorithms, want)
	}
	if !slices.Equal(bag.TagAlgorithms, bag.Algorithms) {
		t.Errorf("TagAlgorithms = %v, want %v", bag.TagAlgorithms, bag.Algorithms)
	}
	if _, err := os.Stat(filepath.Join(root, "manifest-sha256.txt")); !os.IsNotExist(err) {
		t.Errorf("default manifest written alongside explicit checksums (err=%v)", err)
	}
	if err := Validate(context.Background(), root, ValidateOptions{Processes: 2}); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidateMissingDeclaration(t *testing.T) {
	empty := t.TempDir()
	regularFile := filepath.Join(t.TempDir(), "notabag.txt")
	testutil.WriteFile(t, regularFile, "just a file\n")
	declarationDirectory := t.TempDir()
	if err := os.Mkdir(filepath.Join(declarationDirectory, "bagit.txt"), 0o755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
	}{
		{name: "empty directory", path: empty},
		{name: "regular file", path: regularFile},
		{name: "bagit.txt is a directory", path: declarationDirectory},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := Validate(context.Background(), test.path, ValidateOptions{})

			var bagErr *BagError
			if !errors.As(err, &bagErr) {
				t.Fatalf("Validate error = %v, want *BagError", err)
			}
			want := "Expected bagit.txt does not exist: " + filepath.Join(test.path, "bagit.txt")
			if err.Error() != want {
				t.Errorf("Validate error = %q, want %q", err, want)
			}
		})
	}
}

func TestLoadUnreadableInfo(t *testing.T) {
	root := makeBag(t, sampleFiles())
	infoPath := filepath.Join(root, "bag-info.txt")
	if err := os.Remove(infoPath); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(infoPath, 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := Load(root)
	var bagErr *BagError
	if !errors.As(err, &bagErr) {
		t.Fatalf("Load error = %v (%T), want *BagError", err, err)
	}
}

func TestValidateChecksumMismatch(t *testing.T) {
	root := makeBag(t, sampleFiles())
	// Same length, so Payload-Oxum still matches.
	testutil.WriteFile(t, filepath.Join(root, "data", "hello.txt"), "HELLO\n")

	err := Validate(context.Background(), root, ValidateOptions{Processes: 4})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Validate error = %v, want *ValidationError", err)
	}
	if validationErr.Kind() != KindValidation {
		t.Errorf("Kind() = %q, want %q", validationErr.Kind(), KindValidation)
	}
	if len(validationErr.Details) != 2 {
		t.Fatalf("Details = %v, want one mismatch per algorithm", validationErr.Details)
	}
	var mismatch *ChecksumMismatch
	if !errors.As(err, &mismatch) {
		t.Fatalf("Validate error = %v, want a *ChecksumMismatch detail", err)
	}
	if mismatch.Path != "data/hello.txt" || mismatch.Algorithm != "sha256" {
		t.Errorf("mismatch = %+v, want data/hello.txt sha256", mismatch)
	}
	if !strings.HasPrefix(err.Error(), "Bag validation failed: data/hello.txt sha256 validation failed: expected=") {
		t.Errorf("Validate error = %q", err)
	}

	if err := Validate(context.Background(), root, ValidateOptions{Fast: true}); err != nil {
		t.Errorf("fast Validate after a same-size change: %v", err)
	}
	if err := Validate(context.Background(), root, ValidateOptions{CompletenessOnly: true}); err != nil {
		t.Errorf("completeness-only Validate after a same-size change: %v", err)
	}
}

func TestValidateTagFileMismatch(t *testing.T) {
	root := makeBag(t, sampleFiles())
	info := testutil.ReadFile(t, filepath.Join(root, "bag-info.txt"))
	testutil.WriteFile(t, filepath.Join(root, "bag-info.txt"), info+"Contact-Name: Someone\n")

	err := Validate(context.Background(), root, ValidateOptions{})
	var mismatch *ChecksumMismatch
	if !errors.As(err, &mismatch) {
		t.Fatalf("Validate error = %v, want a *ChecksumMismatch detail", err)
	}
	if mismatch.Path != "bag-info.txt" {
		t.Errorf("mismatch path = %q, want bag-info.txt", mismatch.Path)
	}
}

func TestValidatePayloadOxum(t *testing.T) {
	root := makeBag(t, sampleFiles())
	testutil.WriteFile(t, filepath.Join(root, "data", "hello.txt"), "hello!\n")

	for _, fast := range []bool{true, false} {
		t.Run(fmt.Sprintf("fast=%v", fast), func(t *testing.T) {
			err := Validate(context.Background(), root, ValidateOptions{Fast: fast})
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("Validate error = %v, want *ValidationError", err)
			}
			want := "Payload-Oxum validation failed. Expected 2 files and 9 bytes but found 2 files and 10 bytes"
			if err.Error() != want {
				t.Errorf("Validate error = %q, want %q", err, want)
			}
		})
	}
}

func TestValidateFastRequiresOxum(t *testing.T) {
	root := makeBag(t, sampleFiles())
	testutil.WriteFile(t, filepath.Join(root, "bag-info.txt"), "Bagging-Date: 2026-03-04\n")

	err := Validate(context.Background(), root, ValidateOptions{Fast: true})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Validate error = %v, want *ValidationError", err)
	}
	if !strings.Contains(err.Error(), "Payload-Oxum") {
		t.Errorf("Validate error = %q, want it to mention Payload-Oxum", err)
	}
}

func TestValidateCompleteness(t *testing.T) {
	root := makeBag(t, sampleFiles())
	// Drop Payload-Oxum so the completeness check is reached.
	testutil.WriteFile(t, filepath.Join(root, "bag-info.txt"), "Bagging-Date: 2026-03-04\n")
	testutil.WriteFile(t, filepath.Join(root, "data", "extra.txt"), "surprise")
	if err := os.Remove(filepath.Join(root, "data", "hello.txt")); err != nil {
		t.Fatal(err)
	}

	err := Validate(context.Background(), root, ValidateOptions{CompletenessOnly: true})
	want := "Bag validation failed: " +
		"data/hello.txt exists in manifest but was not found on filesystem; " +
		"data/extra.txt exists on filesystem but is not in the manifest"
	if err == nil || err.Error() != want {
		t.Fatalf("Validate error = %v, want %q", err, want)
	}

	var missing *FileMissing
	if !errors.As(err, &missing) || missing.Path != "data/hello.txt" {
		t.Errorf("FileMissing detail = %+v", missing)
	}
	var unexpected *UnexpectedFile
	if !errors.As(err, &unexpected) || unexpected.Path != "data/extra.txt" {
		t.Errorf("UnexpectedFile detail = %+v", unexpected)
	}
}

func TestValidateMissingDataDirectory(t *testing.T) {
	root := makeBag(t, sampleFiles())
	if err := os.RemoveAll(filepath.Join(root, "data")); err != nil {
		t.Fatal(err)
	}
	err := Validate(context.Background(), root, ValidateOptions{})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Validate error = %v, want *ValidationError", err)
	}
	if !strings.Contains(err.Error(), "data directory") {
		t.Errorf("Validate error = %q, want it to mention the data directory", err)
	}
}

func TestValidateUnsafeManifestPath(t *testing.T) {
	root := makeBag(t, sampleFiles())
	manifest := filepath.Join(root, "manifest-sha256.txt")
	content := testutil.ReadFile(t, manifest)
	testutil.WriteFile(t, manifest, content+strings.Repeat("0", 64)+"  ../outside.txt\n")

	err := Validate(context.Background(), root, ValidateOptions{})
	var bagErr *BagError
	if !errors.As(err, &bagErr) {
		t.Fatalf("Validate error = %v, want *BagError", err)
	}
	want := `Path "../outside.txt" in manifest "manifest-sha256.txt" is unsafe`
	if err.Error() != want {
		t.Errorf("Validate error = %q, want %q", err, want)
	}
}

func TestFilenameEncoding(t *testing.T) {
	root := makeBag(t, map[string]string{
		"line\nbreak.txt": "two lines",
		"100%.txt":        "percent",
	})

	manifest := testutil.ReadFile(t, filepath.Join(root, "manifest-sha256.txt"))
	for _, want := range []string{"  data/line%0Abreak.txt\n", "  data/100%25.txt\n"} {
		if !strings.Contains(manifest, want) {
			t.Errorf("manifest missing %q:\n%s", want, manifest)
		}
	}
	if err := Validate(context.Background(), root, ValidateOptions{}); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestUnicodeNormalization(t *testing.T) {
	// Decomposed on disk: "e" followed by a combining acute accent.
	decomposed := "cafe\u0301.txt"
	root := makeBag(t, map[string]string{decomposed: "coffee"})

	bag, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if digests := bag.PayloadDigests("data/caf\u00e9.txt"); digests == nil {
		t.Errorf("composed lookup found no digests; payload = %v", bag.PayloadFiles())
	}
	if err := bag.Validate(context.Background(), ValidateOptions{}); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidateManyFilesConcurrently(t *testing.T) {
	files := make(map[string]string)
	for i := range 64 {
		files[fmt.Sprintf("dir%d/file%02d.txt", i%4, i)] = strings.Repeat("x", i)
	}
	root := testutil.WriteTree(t, files)
	if _, err := Make(context.Background(), root, MakeOptions{Processes: 8}); err != nil {
		t.Fatalf("Make: %v", err)
	}

	testutil.WriteFile(t, filepath.Join(root, "data", "dir1", "file05.txt"), "yyyyy")
	err := Validate(context.Background(), root, ValidateOptions{Processes: 8})
	var mismatch *ChecksumMismatch
	if !errors.As(err, &mismatch) || mismatch.Path != "data/dir1/file05.txt" {
		t.Fatalf("Validate error = %v, want a mismatch for data/dir1/file05.txt", err)
	}
}

func TestValidateCanceled(t *testing.T) {
	root := makeBag(t, sampleFiles())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Validate(ctx, root, ValidateOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Validate with a canceled context = %v, want context.Canceled", err)
	}
}
