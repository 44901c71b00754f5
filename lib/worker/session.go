// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/bureau-foundation/bagit/lib/clock"
)

// DefaultMaxLineSize bounds one request line, terminator included.
const DefaultMaxLineSize = 16 << 20

var errLineTooLong = errors.New("line too long")

// SessionConfig holds the optional dependencies of a [Session].
type SessionConfig struct {
	// Logger receives a debug record per command and a warn record
	// per failure. Nil disables logging.
	Logger *slog.Logger

	// Clock measures command durations. Nil means clock.Real().
	Clock clock.Clock

	// MaxLineSize overrides DefaultMaxLineSize when positive.
	MaxLineSize int
}

// Session reads requests from one input stream and writes one response
// line per request to one output stream, strictly in order.
type Session struct {
	dispatcher  *Dispatcher
	logger      *slog.Logger
	clock       clock.Clock
	maxLineSize int
}

// NewSession creates a Session that dispatches through dispatcher.
func NewSession(dispatcher *Dispatcher, config SessionConfig) *Session {
	session := &Session{
		dispatcher:  dispatcher,
		logger:      config.Logger,
		clock:       config.Clock,
		maxLineSize: config.MaxLineSize,
	}
	if session.logger == nil {
		session.logger = slog.New(slog.DiscardHandler)
	}
	if session.clock == nil {
		session.clock = clock.Real()
	}
	if session.maxLineSize <= 0 {
		session.maxLineSize = DefaultMaxLineSize
	}
	return session
}

type lineResult struct {
	line []byte
	err  error
}

// Run processes requests until input reaches EOF, an exit command is
// dispatched, or ctx is canceled. All three end the session cleanly
// and return nil. Cancellation takes effect between commands: a
// command already dispatched runs to completion and its response is
// written. Run returns an error only when input or output fails.
//
// Each request occupies a single line. Blank lines are ignored. A line
// that cannot be decoded, or that exceeds the maximum line size, gets
// a DecodeError response and the session continues.
func (s *Session) Run(ctx context.Context, input io.Reader, output io.Writer) error {
	// Lines are read on demand by a separate goroutine so that a read
	// blocked on an idle input does not delay cancellation. The result
	// channel is buffered so the reader never blocks after Run returns.
	requests := make(chan struct{})
	results := make(chan lineResult, 1)
	defer close(requests)
	go func() {
		reader := bufio.NewReaderSize(input, 64*1024)
		for range requests {
			line, err := readLine(reader, s.maxLineSize)
			results <- lineResult{line: line, err: err}
		}
	}()

	writer := bufio.NewWriter(output)
	for {
		if ctx.Err() != nil {
			s.logger.Debug("session interrupted")
			return nil
		}
		select {
		case requests <- struct{}{}:
		case <-ctx.Done():
			s.logger.Debug("session interrupted")
			return nil
		}

		var result lineResult
		select {
		case result = <-results:
		case <-ctx.Done():
			s.logger.Debug("session interrupted")
			return nil
		}

		switch {
		case errors.Is(result.err, io.EOF):
			s.logger.Debug("input closed")
			return nil
		case errors.Is(result.err, errLineTooLong):
			failure := FailureFrom(Decode("invalid request: line exceeds %d bytes", s.maxLineSize))
			s.logger.Warn("request rejected", "type", failure.Type, "error", failure.Message)
			if err := s.write(writer, failure); err != nil {
				return err
			}
			continue
		case result.err != nil:
			return fmt.Errorf("reading request: %w", result.err)
		}

		if len(bytes.TrimSpace(result.line)) == 0 {
			continue
		}

		command, err := DecodeCommand(result.line)
		if err != nil {
			failure := FailureFrom(err)
			s.logger.Warn("request rejected", "type", failure.Type, "error", failure.Message)
			if err := s.write(writer, failure); err != nil {
				return err
			}
			continue
		}

		outcome := s.dispatch(ctx, command)
		switch outcome.Kind {
		case OutcomeShutdown:
			return nil
		case OutcomeFailure:
			if err := s.write(writer, outcome.Failure); err != nil {
				return err
			}
		default:
			if err := s.write(writer, outcome.Payload); err != nil {
				return err
			}
		}
	}
}

// dispatch runs one command detached from ctx's cancellation, so an
// interrupt never abandons a half-written bag.
func (s *Session) dispatch(ctx context.Context, command Command) Outcome {
	started := s.clock.Now()
	outcome := s.dispatcher.Dispatch(context.WithoutCancel(ctx), command)
	elapsed := s.clock.Now().Sub(started)

	s.logger.Debug("command handled",
		"name", command.Name(),
		"outcome", outcome.Kind.String(),
		"duration", elapsed,
	)
	if outcome.Kind == OutcomeFailure {
		s.logger.Warn("command failed",
			"name", command.Name(),
			"type", outcome.Failure.Type,
			"error", outcome.Failure.Message,
		)
	}
	return outcome
}

// write encodes value as one line and flushes it, so the line reaches
// the peer before the next request is read.
func (s *Session) write(writer *bufio.Writer, value any) error {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(value); err != nil {
		buffer.Reset()
		failure := FailureFrom(Internal("encoding response: %v", err))
		if err := encoder.Encode(failure); err != nil {
			return fmt.Errorf("encoding response: %w", err)
		}
	}

	if _, err := writer.Write(buffer.Bytes()); err != nil {
		return fmt.Errorf("writing response: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("writing response: %w", err)
	}
	return nil
}

// readLine returns the next line without its terminator. A final line
// without a newline is returned as a line; io.EOF is returned only when
// no bytes remain. A line longer than maxSize is consumed and reported
// as errLineTooLong.
func readLine(reader *bufio.Reader, maxSize int) ([]byte, error) {
	var line []byte
	tooLong := false
	sawData := false
	for {
		chunk, err := reader.ReadSlice('\n')
		if len(chunk) > 0 {
			sawData = true
		}
		if !tooLong {
			if len(line)+len(chunk) > maxSize {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil && !(errors.Is(err, io.EOF) && sawData) {
			return nil, err
		}
		break
	}
	if tooLong {
		return nil, errLineTooLong
	}
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	return line, nil
}
