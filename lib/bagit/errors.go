// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bagit

import (
	"fmt"
	"strings"
)

// Failure kinds reported by this package. They are the values the
// worker protocol carries in the "type" field of error responses, so
// they are wire-stable.
const (
	// KindBag covers bags that cannot be loaded or built: missing
	// bagit.txt, malformed tag files, unsafe manifest paths,
	// nonexistent target directories, unsupported options.
	KindBag = "BagError"

	// KindValidation covers bags that load but do not match their
	// manifests: Payload-Oxum mismatch, missing or unexpected payload
	// files, checksum mismatches.
	KindValidation = "BagValidationError"
)

// BagError reports a bag that cannot be loaded or built. Err, when
// set, is the underlying cause (usually a filesystem error).
type BagError struct {
	Message string
	Err     error
}

func bagErrorf(format string, args ...any) *BagError {
	return &BagError{Message: fmt.Sprintf(format, args...)}
}

func (e *BagError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *BagError) Unwrap() error { return e.Err }

// Kind returns [KindBag].
func (e *BagError) Kind() string { return KindBag }

// ValidationError reports a bag whose contents do not match its
// manifests. Details lists each individual problem as a
// [ChecksumMismatch], [FileMissing], [UnexpectedFile] or I/O error, in
// path order.
type ValidationError struct {
	Message string
	Details []error
}

// Error joins the message and every detail with "; ", so a single line
// carries the full list of problems.
func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	details := make([]string, len(e.Details))
	for i, detail := range e.Details {
		details[i] = detail.Error()
	}
	return e.Message + ": " + strings.Join(details, "; ")
}

// Unwrap exposes the details to errors.Is and errors.As.
func (e *ValidationError) Unwrap() []error { return e.Details }

// Kind returns [KindValidation].
func (e *ValidationError) Kind() string { return KindValidation }

// ChecksumMismatch is a manifest entry whose recomputed digest differs
// from the recorded one.
type ChecksumMismatch struct {
	Path      string
	Algorithm string
	Expected  string
	Found     string
}

func (e *ChecksumMismatch) Error() string {
	return fmt.Sprintf("%s %s validation failed: expected=%q found=%q", e.Path, e.Algorithm, e.Expected, e.Found)
}

// FileMissing is a manifest entry with no corresponding file.
type FileMissing struct {
	Path string
}

func (e *FileMissing) Error() string {
	return fmt.Sprintf("%s exists in manifest but was not found on filesystem", e.Path)
}

// UnexpectedFile is a payload file that no manifest lists.
type UnexpectedFile struct {
	Path string
}

func (e *UnexpectedFile) Error() string {
	return fmt.Sprintf("%s exists on filesystem but is not in the manifest", e.Path)
}
