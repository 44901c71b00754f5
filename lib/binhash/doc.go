// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash computes content digests for files named in BagIt
// manifests.
//
// A bag may carry several manifests, one per checksum algorithm
// (manifest-sha256.txt, manifest-sha512.txt, ...). Reading every
// payload file once per algorithm doubles or triples the I/O for large
// bags, so [HashFile] streams a file a single time through all
// requested hashers (via io.MultiWriter) and returns every digest at
// once, together with the byte count used for Payload-Oxum.
//
// Algorithm names are the lowercase names used in manifest file names:
//
//   - md5, sha1, sha224, sha256, sha384, sha512 (standard library)
//   - blake2b-256, blake2b-512 (golang.org/x/crypto/blake2b)
//   - blake3 (github.com/zeebo/blake3)
//
// [FormatDigest] and [ParseDigest] convert between raw sums and the
// lowercase hex form written to manifests. ParseDigest also checks the
// decoded length against the algorithm's digest size, which is how
// malformed manifest lines are detected.
//
// This package has no dependencies on other Bureau packages.
package binhash
