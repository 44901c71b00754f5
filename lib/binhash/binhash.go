// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binhash

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
)

// Digests maps an algorithm name to the hex-encoded digest computed
// with that algorithm.
type Digests map[string]string

// constructors holds every supported algorithm. The blake2b
// constructors only fail for oversized keys, and no key is passed.
var constructors = map[string]func() hash.Hash{
	"md5":    md5.New,
	"sha1":   sha1.New,
	"sha224": sha256.New224,
	"sha256": sha256.New,
	"sha384": sha512.New384,
	"sha512": sha512.New,
	"blake2b-256": func() hash.Hash {
		hasher, _ := blake2b.New256(nil)
		return hasher
	},
	"blake2b-512": func() hash.Hash {
		hasher, _ := blake2b.New512(nil)
		return hasher
	},
	"blake3": func() hash.Hash { return blake3.New() },
}

// Supported returns the names of all supported algorithms in sorted
// order.
func Supported() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsSupported reports whether name is a supported algorithm.
func IsSupported(name string) bool {
	_, ok := constructors[name]
	return ok
}

// New returns a fresh hasher for the named algorithm.
func New(name string) (hash.Hash, error) {
	constructor, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("unsupported checksum algorithm %q (supported: %s)",
			name, strings.Join(Supported(), ", "))
	}
	return constructor(), nil
}

// HashReader streams reader through one hasher per algorithm and
// returns the digests along with the number of bytes read. Duplicate
// algorithm names are hashed once.
func HashReader(reader io.Reader, algorithms []string) (Digests, int64, error) {
	if len(algorithms) == 0 {
		return nil, 0, fmt.Errorf("no checksum algorithms requested")
	}

	hashers := make(map[string]hash.Hash, len(algorithms))
	writers := make([]io.Writer, 0, len(algorithms))
	for _, name := range algorithms {
		if _, seen := hashers[name]; seen {
			continue
		}
		hasher, err := New(name)
		if err != nil {
			return nil, 0, err
		}
		hashers[name] = hasher
		writers = append(writers, hasher)
	}

	size, err := io.Copy(io.MultiWriter(writers...), reader)
	if err != nil {
		return nil, size, err
	}

	digests := make(Digests, len(hashers))
	for name, hasher := range hashers {
		digests[name] = FormatDigest(hasher.Sum(nil))
	}
	return digests, size, nil
}

// HashFile computes the digests of the file at path for every
// requested algorithm in a single read of the file. Memory usage is
// constant regardless of file size.
func HashFile(path string, algorithms []string) (Digests, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	digests, size, err := HashReader(file, algorithms)
	if err != nil {
		return nil, size, fmt.Errorf("hashing %s: %w", path, err)
	}
	return digests, size, nil
}

// FormatDigest returns the lowercase hex encoding of a raw sum, the
// form used in manifest files.
func FormatDigest(sum []byte) string {
	return hex.EncodeToString(sum)
}

// ParseDigest decodes a hex digest for the named algorithm. Upper and
// lower case hex are both accepted, since some BagIt tools write
// uppercase digests. Returns an error if the string is not valid hex
// or its length does not match the algorithm's digest size.
func ParseDigest(algorithm, hexString string) ([]byte, error) {
	hasher, err := New(algorithm)
	if err != nil {
		return nil, err
	}
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return nil, fmt.Errorf("parsing %s digest: %w", algorithm, err)
	}
	if len(decoded) != hasher.Size() {
		return nil, fmt.Errorf("%s digest is %d bytes, want %d", algorithm, len(decoded), hasher.Size())
	}
	return decoded, nil
}
