// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bagit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/bagit/lib/binhash"
)

// ValidateOptions controls [Validate].
type ValidateOptions struct {
	// Processes bounds the number of files hashed concurrently.
	// Values below 1 mean 1.
	Processes int

	// Fast checks only the Payload-Oxum (file count and total size),
	// without reading payload contents. Requires bag-info.txt to carry
	// Payload-Oxum.
	Fast bool

	// CompletenessOnly checks that every manifest entry exists and
	// every payload file is listed, without recomputing checksums.
	CompletenessOnly bool
}

// Validate loads the bag at path and checks it against its manifests.
// Returns nil for a valid bag, a *BagError if the bag cannot be
// loaded, or a *ValidationError describing every problem found.
func Validate(ctx context.Context, path string, options ValidateOptions) error {
	bag, err := Load(path)
	if err != nil {
		return err
	}
	return bag.Validate(ctx, options)
}

// Validate checks the bag's structure, Payload-Oxum, completeness and
// (unless options say otherwise) every checksum in the payload and tag
// manifests. Validation reads but never modifies the bag.
func (b *Bag) Validate(ctx context.Context, options ValidateOptions) error {
	if err := b.validateStructure(); err != nil {
		return err
	}

	onDisk, err := b.scanPayload()
	if err != nil {
		return err
	}

	_, _, hasOxum, err := b.PayloadOxum()
	if err != nil {
		return err
	}
	if options.Fast && !hasOxum {
		return &ValidationError{Message: "Fast validation requires bag-info.txt to include Payload-Oxum"}
	}
	if err := b.validateOxum(onDisk); err != nil {
		return err
	}
	if options.Fast {
		return nil
	}

	if err := b.validateCompleteness(onDisk); err != nil {
		return err
	}
	if options.CompletenessOnly {
		return nil
	}

	return b.validateEntries(ctx, onDisk, options.Processes)
}

func (b *Bag) validateStructure() error {
	dataPath := filepath.Join(b.Path, payloadDirectory)
	info, err := os.Stat(dataPath)
	if err != nil || !info.IsDir() {
		return &ValidationError{Message: fmt.Sprintf("Expected data directory %s does not exist", dataPath)}
	}
	if len(b.Algorithms) == 0 {
		return &ValidationError{Message: "No manifest files found"}
	}
	return nil
}

// payloadScan is the payload as found on disk.
type payloadScan struct {
	// files maps a normalized path ("data/...") to the path relative
	// to the bag root as spelled on disk.
	files  map[string]string
	octets int64
}

func (b *Bag) scanPayload() (*payloadScan, error) {
	scan := &payloadScan{files: map[string]string{}}
	err := filepath.WalkDir(filepath.Join(b.Path, payloadDirectory), func(walkPath string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		// Stat follows symlinks, so a link to a regular file counts as
		// a payload file like its target would.
		info, err := os.Stat(walkPath)
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		relative, err := filepath.Rel(b.Path, walkPath)
		if err != nil {
			return err
		}
		scan.files[normalizePath(relative)] = relative
		scan.octets += info.Size()
		return nil
	})
	if err != nil {
		return nil, &BagError{Message: "scanning payload", Err: err}
	}
	return scan, nil
}

func (b *Bag) validateOxum(scan *payloadScan) error {
	octets, count, ok, err := b.PayloadOxum()
	if err != nil || !ok {
		return err
	}
	found := int64(len(scan.files))
	if octets != scan.octets || count != found {
		return &ValidationError{Message: fmt.Sprintf(
			"Payload-Oxum validation failed. Expected %d files and %d bytes but found %d files and %d bytes",
			count, octets, found, scan.octets)}
	}
	return nil
}

func (b *Bag) validateCompleteness(scan *payloadScan) error {
	var details []error

	for _, entryPath := range b.PayloadFiles() {
		if _, ok := scan.files[entryPath]; !ok {
			details = append(details, &FileMissing{Path: entryPath})
		}
	}

	for _, entryPath := range slices.Sorted(maps.Keys(b.tags)) {
		if _, err := os.Stat(filepath.Join(b.Path, filepath.FromSlash(entryPath))); err != nil {
			details = append(details, &FileMissing{Path: entryPath})
		}
	}

	for _, entryPath := range slices.Sorted(maps.Keys(scan.files)) {
		if _, ok := b.payload[entryPath]; !ok {
			details = append(details, &UnexpectedFile{Path: entryPath})
		}
	}

	if len(details) > 0 {
		return &ValidationError{Message: "Bag validation failed", Details: details}
	}
	return nil
}

// checksumJob is one file to hash against its recorded digests.
type checksumJob struct {
	entryPath string
	diskPath  string
	expected  map[string]string
}

// validateEntries recomputes every payload and tag manifest digest,
// hashing up to processes files at a time. All hashing completes before
// it returns; results are reported in path order regardless of which
// file finished first.
func (b *Bag) validateEntries(ctx context.Context, scan *payloadScan, processes int) error {
	var jobs []checksumJob
	for _, entryPath := range b.PayloadFiles() {
		jobs = append(jobs, checksumJob{
			entryPath: entryPath,
			diskPath:  filepath.Join(b.Path, scan.files[entryPath]),
			expected:  b.payload[entryPath],
		})
	}
	for _, entryPath := range slices.Sorted(maps.Keys(b.tags)) {
		jobs = append(jobs, checksumJob{
			entryPath: entryPath,
			diskPath:  filepath.Join(b.Path, filepath.FromSlash(entryPath)),
			expected:  b.tags[entryPath],
		})
	}

	results := make([][]error, len(jobs))
	group, groupContext := errgroup.WithContext(ctx)
	group.SetLimit(max(processes, 1))
	for index, job := range jobs {
		group.Go(func() error {
			if err := groupContext.Err(); err != nil {
				return err
			}
			results[index] = checkEntry(job)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	var details []error
	for _, result := range results {
		details = append(details, result...)
	}
	if len(details) > 0 {
		return &ValidationError{Message: "Bag validation failed", Details: details}
	}
	return nil
}

func checkEntry(job checksumJob) []error {
	algorithms := slices.Sorted(maps.Keys(job.expected))
	digests, _, err := binhash.HashFile(job.diskPath, algorithms)
	if errors.Is(err, fs.ErrNotExist) {
		return []error{&FileMissing{Path: job.entryPath}}
	}
	if err != nil {
		return []error{fmt.Errorf("%s: %w", job.entryPath, err)}
	}

	var mismatches []error
	for _, algorithm := range algorithms {
		if digests[algorithm] != job.expected[algorithm] {
			mismatches = append(mismatches, &ChecksumMismatch{
				Path:      job.entryPath,
				Algorithm: algorithm,
				Expected:  job.expected[algorithm],
				Found:     digests[algorithm],
			})
		}
	}
	return mismatches
}
