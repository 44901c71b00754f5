// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bagit

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/bureau-foundation/bagit/lib/binhash"
)

const (
	// Version is the BagIt version written by [Make].
	Version = "0.97"

	// Encoding is the only tag file character encoding supported.
	Encoding = "UTF-8"

	bagitFile        = "bagit.txt"
	infoFile         = "bag-info.txt"
	payloadDirectory = "data"

	versionTag  = "BagIt-Version"
	encodingTag = "Tag-File-Character-Encoding"
	oxumTag     = "Payload-Oxum"
)

var versionPattern = regexp.MustCompile(`^\d+\.\d+$`)

// Bag is a loaded BagIt package: its declaration, metadata and
// manifests. Load a bag with [Load]; construct one with [Make].
type Bag struct {
	// Path is the absolute path of the bag directory.
	Path string

	// Version is the BagIt-Version declared in bagit.txt.
	Version string

	// Encoding is the Tag-File-Character-Encoding declared in bagit.txt.
	Encoding string

	// Info holds bag-info.txt tags. Repeated tags keep every value.
	Info map[string][]string

	// Algorithms lists the payload manifest algorithms, sorted.
	Algorithms []string

	// TagAlgorithms lists the tag manifest algorithms, sorted.
	TagAlgorithms []string

	// Unsupported lists manifest files whose algorithm is not
	// supported. Their entries are ignored.
	Unsupported []string

	// payload and tags map a normalized path to algorithm to digest.
	payload map[string]map[string]string
	tags    map[string]map[string]string
}

// Load reads the bag declaration, bag-info.txt and every manifest of
// the bag at path. It does not inspect the payload; see
// [Bag.Validate].
func Load(path string) (*Bag, error) {
	absolute, err := filepath.Abs(path)
	if err != nil {
		return nil, &BagError{Message: "resolving bag path", Err: err}
	}

	bag := &Bag{
		Path:    absolute,
		Info:    map[string][]string{},
		payload: map[string]map[string]string{},
		tags:    map[string]map[string]string{},
	}

	if err := bag.loadDeclaration(); err != nil {
		return nil, err
	}
	if err := bag.loadInfo(); err != nil {
		return nil, err
	}
	if err := bag.loadManifests(); err != nil {
		return nil, err
	}
	return bag, nil
}

func (b *Bag) loadDeclaration() error {
	declarationPath := filepath.Join(b.Path, bagitFile)
	// A bag path that is a regular file, or a bagit.txt that is a
	// directory, is reported the same as a missing declaration.
	info, err := os.Stat(declarationPath)
	if err != nil || !info.Mode().IsRegular() {
		return bagErrorf("Expected %s does not exist: %s", bagitFile, declarationPath)
	}
	tags, err := readTagFile(declarationPath)
	if err != nil {
		return err
	}

	values := tagMap(tags)
	var missing []string
	for _, name := range []string{versionTag, encodingTag} {
		if _, ok := firstValue(values, name); !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return bagErrorf("Missing required tag in %s: %s", bagitFile, strings.Join(missing, ", "))
	}

	b.Version, _ = firstValue(values, versionTag)
	if !versionPattern.MatchString(b.Version) {
		return bagErrorf("Bag version numbers must be MAJOR.MINOR numbers, not %s", b.Version)
	}

	b.Encoding, _ = firstValue(values, encodingTag)
	if !isUTF8(b.Encoding) {
		return bagErrorf("Unsupported encoding: %s", b.Encoding)
	}
	return nil
}

func (b *Bag) loadInfo() error {
	tags, err := readTagFile(filepath.Join(b.Path, infoFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	b.Info = tagMap(tags)
	return nil
}

func (b *Bag) loadManifests() error {
	entries, err := os.ReadDir(b.Path)
	if err != nil {
		return &BagError{Message: "listing bag directory", Err: err}
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		target := b.payload
		algorithm, ok := manifestAlgorithm(name, manifestPrefix)
		if !ok {
			algorithm, ok = manifestAlgorithm(name, tagManifestPrefix)
			target = b.tags
		}
		if !ok {
			continue
		}
		if !binhash.IsSupported(algorithm) {
			b.Unsupported = append(b.Unsupported, name)
			continue
		}

		digests, err := readManifest(filepath.Join(b.Path, name), algorithm)
		if err != nil {
			return err
		}
		for entryPath, digest := range digests {
			if target[entryPath] == nil {
				target[entryPath] = map[string]string{}
			}
			target[entryPath][algorithm] = digest
		}

		if strings.HasPrefix(name, tagManifestPrefix) {
			b.TagAlgorithms = append(b.TagAlgorithms, algorithm)
		} else {
			b.Algorithms = append(b.Algorithms, algorithm)
		}
	}

	slices.Sort(b.Algorithms)
	slices.Sort(b.TagAlgorithms)
	return nil
}

// PayloadFiles returns the normalized paths listed in the payload
// manifests, sorted.
func (b *Bag) PayloadFiles() []string {
	return slices.Sorted(maps.Keys(b.payload))
}

// PayloadDigests returns the recorded digests of a payload file keyed
// by algorithm, or nil if no manifest lists it.
func (b *Bag) PayloadDigests(entryPath string) map[string]string {
	digests := b.payload[normalizePath(entryPath)]
	if digests == nil {
		return nil
	}
	return maps.Clone(digests)
}

// PayloadOxum returns the octet count and file count recorded in the
// Payload-Oxum tag. ok is false when the tag is absent.
func (b *Bag) PayloadOxum() (octets, count int64, ok bool, err error) {
	value, present := firstValue(b.Info, oxumTag)
	if !present {
		return 0, 0, false, nil
	}
	octetsText, countText, found := strings.Cut(value, ".")
	if !found {
		return 0, 0, true, bagErrorf("Malformed %s value: %s", oxumTag, value)
	}
	octets, octetsErr := strconv.ParseInt(octetsText, 10, 64)
	count, countErr := strconv.ParseInt(countText, 10, 64)
	if octetsErr != nil || countErr != nil || octets < 0 || count < 0 {
		return 0, 0, true, bagErrorf("Malformed %s value: %s", oxumTag, value)
	}
	return octets, count, true, nil
}

func (b *Bag) String() string {
	return fmt.Sprintf("Bag(path=%q, version=%s)", b.Path, b.Version)
}

func isUTF8(encoding string) bool {
	switch strings.ToLower(encoding) {
	case "utf-8", "utf8":
		return true
	}
	return false
}
