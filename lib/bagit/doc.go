// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bagit reads, validates and creates BagIt packages.
//
// A bag is a directory holding a payload under data/ together with tag
// files that describe it: bagit.txt declares the version and tag
// encoding, bag-info.txt carries metadata such as Payload-Oxum, each
// manifest-<algorithm>.txt lists a digest for every payload file, and
// each tagmanifest-<algorithm>.txt does the same for the tag files.
//
// [Make] converts a directory into a bag in place. [Validate] checks a
// bag against its manifests: fast mode compares only Payload-Oxum,
// completeness-only mode checks that files and manifest entries match
// without hashing, and the default recomputes every digest. Hashing
// runs on up to Processes files concurrently.
//
// Failures are reported as [*BagError] (the bag cannot be read or
// built) or [*ValidationError] (the bag's contents disagree with its
// manifests). Both expose Kind, whose value is the error type name
// carried by the worker protocol.
//
// [Packager] wraps both operations behind loosely typed option maps as
// decoded from JSON requests.
package bagit
