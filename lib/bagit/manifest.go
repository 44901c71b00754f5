// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bagit

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/bureau-foundation/bagit/lib/binhash"
)

const (
	manifestPrefix    = "manifest-"
	tagManifestPrefix = "tagmanifest-"
	manifestSuffix    = ".txt"
)

// manifestAlgorithm extracts the algorithm from a manifest file name
// such as "manifest-sha256.txt". Returns false for names that do not
// have the given prefix.
func manifestAlgorithm(name, prefix string) (string, bool) {
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, manifestSuffix) {
		return "", false
	}
	algorithm := strings.TrimSuffix(strings.TrimPrefix(name, prefix), manifestSuffix)
	if algorithm == "" {
		return "", false
	}
	return algorithm, true
}

func manifestName(prefix, algorithm string) string {
	return prefix + algorithm + manifestSuffix
}

// filenameEncoder escapes the characters that would break the
// one-entry-per-line manifest format. "%" is escaped so that decoding
// is unambiguous.
var filenameEncoder = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")

var filenameDecoder = strings.NewReplacer("%25", "%", "%0D", "\r", "%0d", "\r", "%0A", "\n", "%0a", "\n")

func encodeFilename(name string) string { return filenameEncoder.Replace(name) }

func decodeFilename(name string) string { return filenameDecoder.Replace(name) }

// normalizePath returns the key used to compare manifest entries with
// files on disk: slash-separated, cleaned and NFC-normalized. Bags
// written on filesystems that store decomposed names (HFS+) then
// validate on filesystems that store composed ones.
func normalizePath(name string) string {
	return norm.NFC.String(path.Clean(filepath.ToSlash(name)))
}

// isUnsafePath reports whether a manifest path would resolve outside
// the bag directory.
func isUnsafePath(name string) bool {
	if filepath.IsAbs(name) || path.IsAbs(name) {
		return true
	}
	cleaned := path.Clean(filepath.ToSlash(name))
	return cleaned == ".." || strings.HasPrefix(cleaned, "../")
}

// readManifest parses a manifest file for the given algorithm into a
// map of normalized path to lowercase digest. Later duplicates of a
// path replace earlier ones.
func readManifest(manifestPath, algorithm string) (map[string]string, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, &BagError{Message: "reading manifest", Err: err}
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	name := filepath.Base(manifestPath)

	entries := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		separator := strings.IndexFunc(line, unicode.IsSpace)
		if separator < 0 {
			return nil, bagErrorf("%s: malformed line %d: %q", name, lineNumber, line)
		}
		digest := strings.ToLower(line[:separator])
		entryPath := decodeFilename(strings.TrimLeftFunc(line[separator:], unicode.IsSpace))
		// Some tools mark binary mode with a leading asterisk.
		entryPath = strings.TrimPrefix(entryPath, "*")

		if _, err := binhash.ParseDigest(algorithm, digest); err != nil {
			return nil, bagErrorf("%s: malformed line %d: %v", name, lineNumber, err)
		}
		if isUnsafePath(entryPath) {
			return nil, bagErrorf("Path %q in manifest %q is unsafe", entryPath, name)
		}
		entries[normalizePath(entryPath)] = digest
	}
	if err := scanner.Err(); err != nil {
		return nil, &BagError{Message: "reading " + name, Err: err}
	}
	return entries, nil
}

// formatManifest renders digests (path to digest) as manifest lines
// sorted by path.
func formatManifest(digests map[string]string) []byte {
	paths := make([]string, 0, len(digests))
	for entryPath := range digests {
		paths = append(paths, entryPath)
	}
	slices.Sort(paths)

	var buffer bytes.Buffer
	for _, entryPath := range paths {
		fmt.Fprintf(&buffer, "%s  %s\n", digests[entryPath], encodeFilename(entryPath))
	}
	return buffer.Bytes()
}
