// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantName string
		wantArgs map[string]any
		wantErr  bool
	}{
		{
			name:     "full request",
			line:     `{"name": "validate", "args": {"path": "/bags/one", "fast": true}}`,
			wantName: "validate",
			wantArgs: map[string]any{"path": "/bags/one", "fast": true},
		},
		{
			name:     "numbers stay exact",
			line:     `{"name": "make", "args": {"processes": 4}}`,
			wantName: "make",
			wantArgs: map[string]any{"processes": json.Number("4")},
		},
		{
			name:     "missing args",
			line:     `{"name": "exit"}`,
			wantName: "exit",
			wantArgs: map[string]any{},
		},
		{
			name:     "null args",
			line:     `{"name": "exit", "args": null}`,
			wantName: "exit",
			wantArgs: map[string]any{},
		},
		{
			name:     "missing name",
			line:     `{"args": {}}`,
			wantName: "",
			wantArgs: map[string]any{},
		},
		{
			name:     "non-string name",
			line:     `{"name": 7}`,
			wantName: "",
			wantArgs: map[string]any{},
		},
		{name: "not json", line: `validate /bags/one`, wantErr: true},
		{name: "truncated", line: `{"name": "validate"`, wantErr: true},
		{name: "array", line: `["validate"]`, wantErr: true},
		{name: "null", line: `null`, wantErr: true},
		{name: "trailing data", line: `{"name": "exit"} {}`, wantErr: true},
		{name: "args not an object", line: `{"name": "make", "args": ["/bags/one"]}`, wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			command, err := DecodeCommand([]byte(test.line))
			if test.wantErr {
				var protocolErr *Error
				if !errors.As(err, &protocolErr) || protocolErr.Type != TypeDecode {
					t.Fatalf("DecodeCommand error = %v, want a DecodeError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeCommand: %v", err)
			}
			if command.Name() != test.wantName {
				t.Errorf("Name() = %q, want %q", command.Name(), test.wantName)
			}
			if !reflect.DeepEqual(command.Args(), test.wantArgs) {
				t.Errorf("Args() = %#v, want %#v", command.Args(), test.wantArgs)
			}
		})
	}
}

func TestCommandIsImmutable(t *testing.T) {
	source := map[string]any{"path": "/bags/one", "checksums": []any{"md5"}}
	command := NewCommand("make", source)

	source["path"] = "/elsewhere"
	if path, _ := command.Arg("path"); path != "/bags/one" {
		t.Errorf("changing the source map changed the command: path = %v", path)
	}

	args := command.Args()
	args["path"] = "/mutated"
	delete(args, "checksums")
	if path, _ := command.Arg("path"); path != "/bags/one" {
		t.Errorf("changing Args() changed the command: path = %v", path)
	}

	options := command.Without("path")
	if _, ok := options["path"]; ok {
		t.Error("Without(path) still holds path")
	}
	if _, ok := options["checksums"]; !ok {
		t.Error("Without(path) dropped checksums")
	}
	if _, ok := command.Arg("path"); !ok {
		t.Error("Without(path) removed path from the command")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "protocol error", err: Parameter("missing"), want: "ParameterError"},
		{name: "wrapped protocol error", err: errors.Join(errors.New("context"), Decode("bad")), want: "DecodeError"},
		{name: "kinded collaborator error", err: kindedError{kind: "BagError"}, want: "BagError"},
		{name: "plain error", err: errors.New("disk on fire"), want: "InternalError"},
	}

	for _, test := range tests {
		if got := KindOf(test.err); got != test.want {
			t.Errorf("%s: KindOf = %q, want %q", test.name, got, test.want)
		}
	}
}

type kindedError struct {
	kind string
}

func (e kindedError) Error() string { return e.kind + " happened" }
func (e kindedError) Kind() string  { return e.kind }
