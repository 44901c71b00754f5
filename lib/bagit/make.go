// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bagit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/bagit/lib/binhash"
	"github.com/bureau-foundation/bagit/lib/clock"
	"github.com/bureau-foundation/bagit/lib/version"
)

// DefaultChecksums are the manifest algorithms used when
// [MakeOptions].Checksums is empty.
var DefaultChecksums = []string{"sha256", "sha512"}

const (
	baggingDateTag   = "Bagging-Date"
	softwareAgentTag = "Bag-Software-Agent"
)

// MakeOptions controls [Make].
type MakeOptions struct {
	// Checksums lists the manifest algorithms. Empty means
	// DefaultChecksums.
	Checksums []string

	// Processes bounds the number of files hashed concurrently.
	// Values below 1 mean 1.
	Processes int

	// Info holds bag-info.txt tags. Bagging-Date and
	// Bag-Software-Agent are added when absent; Payload-Oxum is
	// always computed.
	Info map[string][]string

	// Encoding is the tag file encoding. Only UTF-8 is supported;
	// empty means UTF-8.
	Encoding string

	// Clock supplies the Bagging-Date. Nil means clock.Real().
	Clock clock.Clock
}

// Make turns the directory at path into a bag in place: its contents
// move into data/, then manifests, bagit.txt, bag-info.txt and tag
// manifests are written alongside. Returns the loaded bag.
func Make(ctx context.Context, path string, options MakeOptions) (*Bag, error) {
	checksums := options.Checksums
	if len(checksums) == 0 {
		checksums = DefaultChecksums
	}
	checksums = slices.Compact(slices.Sorted(slices.Values(checksums)))
	for _, algorithm := range checksums {
		if !binhash.IsSupported(algorithm) {
			return nil, bagErrorf("Unsupported checksum algorithm: %s", algorithm)
		}
	}
	if options.Encoding != "" && !isUTF8(options.Encoding) {
		return nil, bagErrorf("Unsupported encoding: %s", options.Encoding)
	}
	now := options.Clock
	if now == nil {
		now = clock.Real()
	}

	bagPath, err := filepath.Abs(path)
	if err != nil {
		return nil, &BagError{Message: "resolving bag path", Err: err}
	}
	info, err := os.Stat(bagPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, bagErrorf("Bag directory %s does not exist", bagPath)
	}
	if err != nil {
		return nil, &BagError{Message: "inspecting bag directory", Err: err}
	}
	if !info.IsDir() {
		return nil, bagErrorf("Bag directory %s is not a directory", bagPath)
	}

	if err := movePayload(bagPath); err != nil {
		return nil, err
	}

	payload, octets, err := hashTree(ctx, bagPath, payloadDirectory, checksums, options.Processes)
	if err != nil {
		return nil, err
	}

	for _, algorithm := range checksums {
		digests := make(map[string]string, len(payload))
		for entryPath, fileDigests := range payload {
			digests[entryPath] = fileDigests[algorithm]
		}
		if err := writeTagData(bagPath, manifestName(manifestPrefix, algorithm), formatManifest(digests)); err != nil {
			return nil, err
		}
	}

	declaration := formatTags([]tag{
		{Name: versionTag, Value: Version},
		{Name: encodingTag, Value: Encoding},
	})
	if err := writeTagData(bagPath, bagitFile, declaration); err != nil {
		return nil, err
	}

	bagInfo := make(map[string][]string, len(options.Info)+3)
	for name, values := range options.Info {
		bagInfo[name] = slices.Clone(values)
	}
	if _, ok := bagInfo[baggingDateTag]; !ok {
		bagInfo[baggingDateTag] = []string{now.Now().Format(time.DateOnly)}
	}
	if _, ok := bagInfo[softwareAgentTag]; !ok {
		bagInfo[softwareAgentTag] = []string{SoftwareAgent()}
	}
	bagInfo[oxumTag] = []string{strconv.FormatInt(octets, 10) + "." + strconv.Itoa(len(payload))}
	if err := writeTagData(bagPath, infoFile, formatTags(sortedTags(bagInfo))); err != nil {
		return nil, err
	}

	if err := writeTagManifests(ctx, bagPath, checksums, options.Processes); err != nil {
		return nil, err
	}

	return Load(bagPath)
}

// SoftwareAgent is the default Bag-Software-Agent value.
func SoftwareAgent() string {
	return fmt.Sprintf("bagit-runner v%s <https://github.com/bureau-foundation/bagit>", version.Short())
}

// movePayload moves every entry of bagPath into bagPath/data through a
// temporary directory, so an existing "data" entry ends up at
// data/data. On failure the entries already moved are put back.
func movePayload(bagPath string) error {
	entries, err := os.ReadDir(bagPath)
	if err != nil {
		return &BagError{Message: "listing bag directory", Err: err}
	}

	staging, err := os.MkdirTemp(bagPath, ".bagit-staging-")
	if err != nil {
		return &BagError{Message: "creating staging directory", Err: err}
	}

	var moved []string
	rollback := func() {
		for _, name := range moved {
			_ = os.Rename(filepath.Join(staging, name), filepath.Join(bagPath, name))
		}
		_ = os.Remove(staging)
	}

	for _, entry := range entries {
		name := entry.Name()
		if err := os.Rename(filepath.Join(bagPath, name), filepath.Join(staging, name)); err != nil {
			rollback()
			return &BagError{Message: fmt.Sprintf("moving %s into payload", name), Err: err}
		}
		moved = append(moved, name)
	}

	if err := os.Rename(staging, filepath.Join(bagPath, payloadDirectory)); err != nil {
		rollback()
		return &BagError{Message: "creating payload directory", Err: err}
	}
	return nil
}

// hashTree hashes every regular file under root/directory with every
// algorithm, up to processes files at a time. Returns digests keyed by
// normalized path relative to root, plus the total byte count.
func hashTree(ctx context.Context, root, directory string, algorithms []string, processes int) (map[string]binhash.Digests, int64, error) {
	var files []string
	err := filepath.WalkDir(filepath.Join(root, directory), func(walkPath string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		info, err := os.Stat(walkPath)
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			files = append(files, walkPath)
		}
		return nil
	})
	if err != nil {
		return nil, 0, &BagError{Message: "scanning payload", Err: err}
	}

	digests, sizes, err := hashFiles(ctx, files, algorithms, processes)
	if err != nil {
		return nil, 0, err
	}

	result := make(map[string]binhash.Digests, len(files))
	var octets int64
	for index, file := range files {
		relative, err := filepath.Rel(root, file)
		if err != nil {
			return nil, 0, &BagError{Message: "resolving payload path", Err: err}
		}
		result[normalizePath(relative)] = digests[index]
		octets += sizes[index]
	}
	return result, octets, nil
}

// hashFiles hashes files concurrently. Results are indexed like files.
func hashFiles(ctx context.Context, files, algorithms []string, processes int) ([]binhash.Digests, []int64, error) {
	digests := make([]binhash.Digests, len(files))
	sizes := make([]int64, len(files))

	group, groupContext := errgroup.WithContext(ctx)
	group.SetLimit(max(processes, 1))
	for index, file := range files {
		group.Go(func() error {
			if err := groupContext.Err(); err != nil {
				return err
			}
			fileDigests, size, err := binhash.HashFile(file, algorithms)
			if err != nil {
				return &BagError{Message: "hashing payload", Err: err}
			}
			digests[index] = fileDigests
			sizes[index] = size
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, nil, err
	}
	return digests, sizes, nil
}

// writeTagManifests writes one tagmanifest per algorithm covering
// bagit.txt, bag-info.txt and the payload manifests.
func writeTagManifests(ctx context.Context, bagPath string, algorithms []string, processes int) error {
	entries, err := os.ReadDir(bagPath)
	if err != nil {
		return &BagError{Message: "listing bag directory", Err: err}
	}
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() {
			continue
		}
		if _, isTagManifest := manifestAlgorithm(name, tagManifestPrefix); isTagManifest {
			continue
		}
		names = append(names, name)
	}

	files := make([]string, len(names))
	for index, name := range names {
		files[index] = filepath.Join(bagPath, name)
	}
	digests, _, err := hashFiles(ctx, files, algorithms, processes)
	if err != nil {
		return err
	}

	for _, algorithm := range algorithms {
		manifest := make(map[string]string, len(names))
		for index, name := range names {
			manifest[normalizePath(name)] = digests[index][algorithm]
		}
		if err := writeTagData(bagPath, manifestName(tagManifestPrefix, algorithm), formatManifest(manifest)); err != nil {
			return err
		}
	}
	return nil
}

func writeTagData(bagPath, name string, data []byte) error {
	if err := os.WriteFile(filepath.Join(bagPath, name), data, 0644); err != nil {
		return &BagError{Message: "writing " + name, Err: err}
	}
	return nil
}
