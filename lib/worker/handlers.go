// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import "context"

const (
	argPath      = "path"
	argProcesses = "processes"
)

type validateResult struct {
	Valid bool `json:"valid"`
}

type makeResult struct {
	Version string `json:"version"`
}

type handlerSet struct {
	packager  Packager
	processes int
}

// handleValidate checks the bag at args.path. The remaining arguments are
// validation options; processes defaults to the worker's setting.
func (h *handlerSet) handleValidate(ctx context.Context, command Command) (any, error) {
	path, err := requireString(command, argPath)
	if err != nil {
		return nil, err
	}
	if err := h.packager.Validate(ctx, path, h.withProcesses(command.Without(argPath))); err != nil {
		return nil, err
	}
	return validateResult{Valid: true}, nil
}

// handleMake builds a bag in place at args.path. Every other argument is
// forwarded untouched as a build option; processes defaults to the
// worker's setting.
func (h *handlerSet) handleMake(ctx context.Context, command Command) (any, error) {
	path, err := requireString(command, argPath)
	if err != nil {
		return nil, err
	}
	version, err := h.packager.Make(ctx, path, h.withProcesses(command.Without(argPath)))
	if err != nil {
		return nil, err
	}
	return makeResult{Version: version}, nil
}

// withProcesses fills in the worker's processes setting when the
// request did not choose one.
func (h *handlerSet) withProcesses(options map[string]any) map[string]any {
	if _, ok := options[argProcesses]; !ok {
		options[argProcesses] = h.processes
	}
	return options
}

func handleExit(context.Context, Command) (any, error) {
	return nil, ErrShutdown
}

func requireString(command Command, key string) (string, error) {
	value, ok := command.Arg(key)
	if !ok {
		return "", Parameter("%s: missing required argument %q", command.Name(), key)
	}
	text, ok := value.(string)
	if !ok {
		return "", Parameter("%s: argument %q must be a string, got %T", command.Name(), key, value)
	}
	return text, nil
}
