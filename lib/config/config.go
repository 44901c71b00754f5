// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/bagit/lib/binhash"
)

// EnvironmentVariable names the variable [Load] reads the config path
// from.
const EnvironmentVariable = "BAGIT_CONFIG"

// RunnerBinary is the worker binary name looked up on PATH when
// runner_path is not configured.
const RunnerBinary = "bagit-runner"

// Config holds worker defaults. Request arguments take precedence over
// every field here.
type Config struct {
	// Processes bounds concurrent file hashing per command.
	// Zero means runtime.NumCPU().
	Processes int `yaml:"processes"`

	// LogLevel is one of debug, info, warn, error.
	// Default: info
	LogLevel string `yaml:"log_level"`

	// Checksums lists the manifest algorithms used by make requests
	// that do not name their own.
	// Default: [sha256, sha512]
	Checksums []string `yaml:"checksums"`

	// BagInfo holds tags added to every bag-info.txt written by make.
	BagInfo map[string]string `yaml:"bag_info"`

	// RunnerPath is the bagit-runner binary used by the bagit CLI.
	// Default: bagit-runner (found in PATH)
	RunnerPath string `yaml:"runner_path"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Processes: runtime.NumCPU(),
		LogLevel:  "info",
		Checksums: []string{"sha256", "sha512"},
	}
}

// Load loads configuration from the BAGIT_CONFIG environment variable.
//
// There are no fallbacks: if BAGIT_CONFIG is not set, this fails.
// Callers that can run without a file use [Default] instead.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your bagit.yaml config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// Resolve picks the configuration for a binary: the file named by a
// --config flag when set, else the file named by BAGIT_CONFIG when
// set, else [Default].
func Resolve(flagPath string) (*Config, error) {
	if flagPath != "" {
		return LoadFile(flagPath)
	}
	if os.Getenv(EnvironmentVariable) != "" {
		return Load()
	}
	return Default(), nil
}

// LoadFile loads configuration from a specific file path, overlaying
// [Default]. Keys absent from the file keep their defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	// An empty file decodes to io.EOF and leaves the defaults in place.
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.Processes = cfg.EffectiveProcesses()
	cfg.expandVariables()
	return cfg, nil
}

// EffectiveProcesses returns Processes, or runtime.NumCPU() when it is
// zero.
func (c *Config) EffectiveProcesses() int {
	if c.Processes == 0 {
		return runtime.NumCPU()
	}
	return c.Processes
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.RunnerPath = expandVars(c.RunnerPath, vars)
	for name, value := range c.BagInfo {
		c.BagInfo[name] = expandVars(value, vars)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns, checking vars
// before the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

var logLevels = []string{"debug", "info", "warn", "error"}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Processes < 0 {
		errs = append(errs, fmt.Errorf("processes must not be negative, got %d", c.Processes))
	}

	if !slices.Contains(logLevels, c.LogLevel) {
		errs = append(errs, fmt.Errorf("log_level must be one of: %v", logLevels))
	}

	for _, algorithm := range c.Checksums {
		if !binhash.IsSupported(algorithm) {
			errs = append(errs, fmt.Errorf("checksums: unsupported algorithm %q (supported: %v)", algorithm, binhash.Supported()))
		}
	}

	for name := range c.BagInfo {
		if name == "" {
			errs = append(errs, errors.New("bag_info: tag names must not be empty"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// RunnerBinaryPath returns the worker binary to spawn: RunnerPath when
// configured, otherwise bagit-runner from PATH.
func (c *Config) RunnerBinaryPath() (string, error) {
	if c.RunnerPath != "" {
		if _, err := os.Stat(c.RunnerPath); err != nil {
			return "", fmt.Errorf("runner_path: %w", err)
		}
		return c.RunnerPath, nil
	}

	path, err := exec.LookPath(RunnerBinary)
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH; set runner_path in the config file", RunnerBinary)
	}
	return path, nil
}
