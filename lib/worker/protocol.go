// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"bytes"
	"encoding/json"
	"maps"
)

// Command is one decoded request. It is immutable: accessors return
// copies, so handlers cannot affect each other or the caller.
type Command struct {
	name string
	args map[string]any
}

// NewCommand creates a Command holding a shallow copy of args. A nil
// args is treated as empty.
func NewCommand(name string, args map[string]any) Command {
	copied := make(map[string]any, len(args))
	maps.Copy(copied, args)
	return Command{name: name, args: copied}
}

// Name returns the command name.
func (c Command) Name() string { return c.name }

// Args returns a shallow copy of the arguments.
func (c Command) Args() map[string]any { return maps.Clone(c.argsOrEmpty()) }

// Arg returns one argument.
func (c Command) Arg(key string) (any, bool) {
	value, ok := c.args[key]
	return value, ok
}

// Without returns a copy of the arguments minus key.
func (c Command) Without(key string) map[string]any {
	args := c.Args()
	delete(args, key)
	return args
}

func (c Command) argsOrEmpty() map[string]any {
	if c.args == nil {
		return map[string]any{}
	}
	return c.args
}

// Request is the wire form of a command, used by clients to encode
// requests.
type Request struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// Failure is the error form of a response envelope.
type Failure struct {
	Message string `json:"err"`
	Type    string `json:"type"`
}

// FailureFrom builds the envelope for err.
func FailureFrom(err error) Failure {
	return Failure{Message: err.Error(), Type: KindOf(err)}
}

// DecodeCommand parses one input line. The line must hold a single
// JSON object. A missing or non-string "name" decodes to the empty
// name, which no handler answers to; a missing or null "args" decodes
// to no arguments. Numbers in args are kept as json.Number so integers
// survive without float rounding.
func DecodeCommand(line []byte) (Command, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return Command{}, Decode("invalid request: %v", err)
	}
	if fields == nil {
		return Command{}, Decode("invalid request: expected a JSON object")
	}

	var name string
	if raw, ok := fields["name"]; ok {
		// A non-string name is left empty and fails lookup.
		_ = json.Unmarshal(raw, &name)
	}

	args := map[string]any{}
	if raw, ok := fields["args"]; ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		decoder := json.NewDecoder(bytes.NewReader(raw))
		decoder.UseNumber()
		var decoded map[string]any
		if err := decoder.Decode(&decoded); err != nil {
			return Command{}, Decode("invalid request: args must be a JSON object")
		}
		args = decoded
	}

	return Command{name: name, args: args}, nil
}
