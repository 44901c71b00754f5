// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the bagit
// worker and its CLI.
//
// Configuration is loaded from a single file specified by either the
// BAGIT_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks, no ~/.config discovery,
// and no automatic file search. Without a file, binaries run on
// [Default].
//
// Variable expansion is performed after loading: ${HOME} and
// ${VAR:-default} patterns are expanded in runner_path and in bag_info
// values. No other environment variables override config values.
//
// Key exports:
//
//   - [Config] -- worker defaults: processes, log level, checksums,
//     bag-info tags, runner binary
//   - [Default] -- returns a Config with built-in defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends only on lib/binhash, to check algorithm names.
package config
