// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"errors"
)

// OutcomeKind distinguishes the three results of dispatching a command.
type OutcomeKind int

const (
	// OutcomeSuccess carries a payload to write.
	OutcomeSuccess OutcomeKind = iota

	// OutcomeFailure carries an error envelope to write.
	OutcomeFailure

	// OutcomeShutdown ends the session without writing anything.
	OutcomeShutdown
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Outcome is the result of [Dispatcher.Dispatch].
type Outcome struct {
	Kind OutcomeKind

	// Payload is set for OutcomeSuccess.
	Payload any

	// Failure is set for OutcomeFailure.
	Failure Failure
}

// Dispatcher routes commands through a [Registry] and converts every
// handler error into an envelope.
type Dispatcher struct {
	registry *Registry
}

// NewDispatcher creates a Dispatcher over registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Dispatch runs command to completion. It never returns an error: a
// handler error becomes OutcomeFailure, a handler panic becomes an
// InternalError failure, and [ErrShutdown] becomes OutcomeShutdown.
func (d *Dispatcher) Dispatch(ctx context.Context, command Command) Outcome {
	handler, err := d.registry.Lookup(command.Name())
	if err != nil {
		return failed(err)
	}

	payload, err := invoke(ctx, handler, command)
	switch {
	case errors.Is(err, ErrShutdown):
		return Outcome{Kind: OutcomeShutdown}
	case err != nil:
		return failed(err)
	default:
		return Outcome{Kind: OutcomeSuccess, Payload: payload}
	}
}

func invoke(ctx context.Context, handler Handler, command Command) (payload any, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			payload = nil
			err = Internal("%s: handler panicked: %v", command.Name(), recovered)
		}
	}()
	return handler(ctx, command)
}

func failed(err error) Outcome {
	return Outcome{Kind: OutcomeFailure, Failure: FailureFrom(err)}
}
