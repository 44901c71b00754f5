// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"slices"
)

// Command names.
const (
	CommandValidate = "validate"
	CommandMake     = "make"
	CommandExit     = "exit"
)

// Handler executes one command and returns the success payload.
// Returning [ErrShutdown] requests the end of the session.
type Handler func(ctx context.Context, command Command) (any, error)

// Packager performs the bag operations behind validate and make.
// Options arrive as decoded from the request; the implementation
// rejects options it does not understand. *bagit.Packager satisfies
// this interface.
type Packager interface {
	Validate(ctx context.Context, path string, options map[string]any) error
	Make(ctx context.Context, path string, options map[string]any) (version string, err error)
}

// Registry maps command names to handlers. The set is fixed at
// construction.
type Registry struct {
	handlers map[string]Handler
	names    []string
}

// NewRegistry builds the registry for validate, make and exit.
// processes is the hashing concurrency passed to validate when the
// request does not set one; values below 1 are passed as 1.
func NewRegistry(packager Packager, processes int) *Registry {
	handlers := &handlerSet{packager: packager, processes: max(processes, 1)}

	registry := &Registry{handlers: make(map[string]Handler, 3)}
	registry.add(CommandValidate, handlers.handleValidate)
	registry.add(CommandMake, handlers.handleMake)
	registry.add(CommandExit, handleExit)
	return registry
}

func (r *Registry) add(name string, handler Handler) {
	r.handlers[name] = handler
	r.names = append(r.names, name)
}

// Lookup returns the handler for name, or an UnknownCommandError
// listing every valid name.
func (r *Registry) Lookup(name string) (Handler, error) {
	handler, ok := r.handlers[name]
	if !ok {
		return nil, UnknownCommand(name, r.names)
	}
	return handler, nil
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}
