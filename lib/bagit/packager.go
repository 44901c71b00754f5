// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bagit

import (
	"context"
	"log/slog"
	"slices"

	"github.com/bureau-foundation/bagit/lib/clock"
)

// PackagerConfig holds the defaults a [Packager] applies to every
// request.
type PackagerConfig struct {
	// Clock supplies Bagging-Date. Nil means clock.Real().
	Clock clock.Clock

	// Checksums replaces DefaultChecksums for make requests that do
	// not name their own algorithms.
	Checksums []string

	// Info holds bag-info.txt tags added to every bag. Tags in the
	// request take precedence.
	Info map[string]string

	// Logger receives debug records for each operation. Nil disables
	// logging.
	Logger *slog.Logger
}

// Packager exposes [Validate] and [Make] with loosely typed options,
// as decoded from worker requests. Options are checked here rather
// than by the caller, so the set of accepted options is defined in one
// place.
type Packager struct {
	clock     clock.Clock
	checksums []string
	info      map[string]string
	logger    *slog.Logger
}

// NewPackager creates a Packager.
func NewPackager(config PackagerConfig) *Packager {
	packager := &Packager{
		clock:     config.Clock,
		checksums: slices.Clone(config.Checksums),
		info:      config.Info,
		logger:    config.Logger,
	}
	if packager.clock == nil {
		packager.clock = clock.Real()
	}
	if packager.logger == nil {
		packager.logger = slog.New(slog.DiscardHandler)
	}
	return packager
}

// Validate checks the bag at path. See [ParseValidateOptions] for the
// accepted options.
func (p *Packager) Validate(ctx context.Context, path string, options map[string]any) error {
	parsed, err := ParseValidateOptions(options)
	if err != nil {
		return err
	}
	p.logger.Debug("validating bag",
		"path", path,
		"processes", parsed.Processes,
		"fast", parsed.Fast,
		"completeness_only", parsed.CompletenessOnly,
	)
	return Validate(ctx, path, parsed)
}

// Make turns the directory at path into a bag and returns its BagIt
// version. See [ParseMakeOptions] for the accepted options.
func (p *Packager) Make(ctx context.Context, path string, options map[string]any) (string, error) {
	parsed, err := ParseMakeOptions(options)
	if err != nil {
		return "", err
	}
	if len(parsed.Checksums) == 0 {
		parsed.Checksums = slices.Clone(p.checksums)
	}
	if len(p.info) > 0 {
		if parsed.Info == nil {
			parsed.Info = make(map[string][]string, len(p.info))
		}
		for name, value := range p.info {
			if _, ok := parsed.Info[name]; !ok {
				parsed.Info[name] = []string{value}
			}
		}
	}
	parsed.Clock = p.clock

	p.logger.Debug("making bag", "path", path, "options", parsed.String())
	bag, err := Make(ctx, path, parsed)
	if err != nil {
		return "", err
	}
	return bag.Version, nil
}
