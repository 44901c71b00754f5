// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package worker implements the bagit worker protocol: newline-delimited
// JSON requests in, newline-delimited JSON responses out, one request
// at a time.
//
// A request is an object with a command name and an argument object:
//
//	{"name": "validate", "args": {"path": "/srv/bags/accession-17"}}
//
// Each request produces exactly one response line. Success payloads
// are command specific ({"valid": true} for validate, {"version":
// "0.97"} for make). Failures use a single envelope:
//
//	{"err": "<message>", "type": "<kind>"}
//
// where kind is DecodeError, UnknownCommandError, ParameterError,
// InternalError, or the kind reported by the bag operation that failed
// (BagError, BagValidationError). The exit command produces no
// response and ends the session.
//
// The pieces compose bottom-up:
//
//   - [DecodeCommand] turns a line into an immutable [Command].
//   - [Registry] holds the fixed set of handlers: validate, make, exit.
//   - [Dispatcher] looks up and runs a handler, converting errors and
//     panics into a three-way [Outcome].
//   - [Session] runs the read, dispatch, write loop over a pair of
//     streams, flushing after every response.
//
// Bag operations are reached through the [Packager] interface, which
// lib/bagit implements.
package worker
