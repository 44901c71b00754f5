// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package workerclient drives a bagit worker over its stdio protocol.
//
// [Start] spawns a bagit-runner process and talks to it over pipes;
// [New] wraps an existing pair of streams, which tests use to run a
// worker session in-process. A Client carries one command at a time:
// a call made while another is in flight fails with [ErrBusy] rather
// than queueing.
//
// A Client returned by Start owns its runner. If the runner dies, the
// command in flight fails and the next command starts a fresh runner.
//
// Validation failures reported by the worker (BagError and
// BagValidationError) wrap [ErrInvalid], so callers can tell a bad bag
// from a broken worker with errors.Is.
package workerclient

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"sync"
	"time"

	"github.com/bureau-foundation/bagit/lib/clock"
	"github.com/bureau-foundation/bagit/lib/worker"
)

var (
	// ErrBusy is returned when a command is attempted while another
	// is in flight on the same Client.
	ErrBusy = errors.New("runner is busy")

	// ErrInvalid wraps failures that mean the bag itself is invalid.
	ErrInvalid = errors.New("invalid")

	// ErrClosed is returned by commands attempted after Close.
	ErrClosed = errors.New("runner is closed")
)

// DefaultShutdownTimeout is how long Close waits for a spawned runner
// to exit after the exit command before killing it.
const DefaultShutdownTimeout = time.Second

// Failure kinds that mean the bag, not the worker, is at fault.
const (
	kindBag        = "BagError"
	kindValidation = "BagValidationError"
)

// RemoteError is an error envelope returned by the worker.
type RemoteError struct {
	Type    string
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

// Kind returns the failure kind reported by the worker.
func (e *RemoteError) Kind() string { return e.Type }

// Client sends commands to one worker.
type Client struct {
	mu     sync.Mutex
	stdin  io.WriteCloser
	reader *bufio.Reader
	closed bool

	// Set when the Client owns the worker process. launch replaces
	// runner, stdin and reader with a freshly spawned process.
	runner *runner
	launch func() error

	clock           clock.Clock
	shutdownTimeout time.Duration
	stderr          io.Writer
}

// Option configures optional Client behavior.
type Option func(*Client)

// WithClock replaces the clock used for the shutdown timeout.
func WithClock(c clock.Clock) Option {
	return func(client *Client) { client.clock = c }
}

// WithShutdownTimeout replaces DefaultShutdownTimeout.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(client *Client) { client.shutdownTimeout = timeout }
}

// WithStderr sends a spawned runner's stderr (its log output) to w.
// By default it is discarded.
func WithStderr(w io.Writer) Option {
	return func(client *Client) { client.stderr = w }
}

// runner is one spawned worker process.
type runner struct {
	process *os.Process
	exited  chan struct{}
	waitErr error

	// abandoned is set when the Client killed the process after its
	// streams failed; its exit status is then not reported.
	abandoned bool
}

// running reports whether the process has not yet been reaped.
func (r *runner) running() bool {
	select {
	case <-r.exited:
		return false
	default:
		return true
	}
}

func newClient(options []Option) *Client {
	client := &Client{
		clock:           clock.Real(),
		shutdownTimeout: DefaultShutdownTimeout,
	}
	for _, option := range options {
		option(client)
	}
	return client
}

// New creates a Client that writes requests to stdin and reads
// responses from stdout. Close closes stdin after sending exit.
func New(stdin io.WriteCloser, stdout io.Reader, options ...Option) *Client {
	client := newClient(options)
	client.stdin = stdin
	client.reader = bufio.NewReader(stdout)
	return client
}

// Validate asks the worker to validate the bag at path. options are
// forwarded as additional request arguments (fast, completeness_only,
// processes). A bag that fails validation yields an error wrapping
// [ErrInvalid] and a [*RemoteError].
func (c *Client) Validate(path string, options map[string]any) error {
	line, err := c.send(worker.CommandValidate, path, options)
	if err != nil {
		return err
	}
	var response struct {
		Valid bool `json:"valid"`
	}
	if err := decodeResponse(line, &response); err != nil {
		var remote *RemoteError
		if errors.As(err, &remote) && (remote.Type == kindBag || remote.Type == kindValidation) {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		return err
	}
	if !response.Valid {
		return fmt.Errorf("%w: worker reported the bag as not valid", ErrInvalid)
	}
	return nil
}

// Make asks the worker to turn the directory at path into a bag and
// returns the BagIt version written. options are forwarded as build
// options (checksums, processes, bag_info, encoding).
func (c *Client) Make(path string, options map[string]any) (string, error) {
	line, err := c.send(worker.CommandMake, path, options)
	if err != nil {
		return "", err
	}
	var response struct {
		Version string `json:"version"`
	}
	if err := decodeResponse(line, &response); err != nil {
		return "", fmt.Errorf("make: %w", err)
	}
	return response.Version, nil
}

// send writes one request and reads its response line.
func (c *Client) send(name, path string, options map[string]any) ([]byte, error) {
	if ok := c.mu.TryLock(); !ok {
		return nil, ErrBusy
	}
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if err := c.ensureRunning(); err != nil {
		return nil, err
	}

	args := maps.Clone(options)
	if args == nil {
		args = make(map[string]any, 1)
	}
	args["path"] = path

	blob, err := json.Marshal(worker.Request{Name: name, Args: args})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	blob = append(blob, '\n')
	if _, err := c.stdin.Write(blob); err != nil {
		c.abandon()
		return nil, fmt.Errorf("write request: %w", err)
	}

	line, err := c.reader.ReadBytes('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		c.abandon()
		if errors.Is(err, io.EOF) {
			return nil, errors.New("response not received: runner closed its output")
		}
		return nil, fmt.Errorf("read response: %w", err)
	}
	return line, nil
}

// ensureRunning starts a new runner when the owned one has exited.
func (c *Client) ensureRunning() error {
	if c.launch == nil || c.runner.running() {
		return nil
	}
	// The old pipe has no reader left; closing it only releases the fd.
	c.stdin.Close()
	if err := c.launch(); err != nil {
		return fmt.Errorf("restart runner: %w", err)
	}
	return nil
}

// abandon kills an owned runner whose streams failed and waits for it
// to be reaped, so the next command starts a fresh one.
func (c *Client) abandon() {
	if c.runner == nil {
		return
	}
	c.runner.abandoned = true
	// Fails with os.ErrProcessDone when the runner already exited.
	c.runner.process.Kill()
	<-c.runner.exited
}

// decodeResponse decodes a success payload into target, or returns a
// *RemoteError for an error envelope.
func decodeResponse(line []byte, target any) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if _, isFailure := fields["err"]; isFailure {
		var failure worker.Failure
		if err := json.Unmarshal(line, &failure); err != nil {
			return fmt.Errorf("decode error response: %w", err)
		}
		return &RemoteError{Type: failure.Type, Message: failure.Message}
	}
	if err := json.Unmarshal(line, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Close asks the worker to exit and releases the streams. For a
// spawned runner it waits up to the shutdown timeout, then kills the
// process. Close waits for an in-flight command to finish and is safe
// to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if c.runner != nil && !c.runner.running() {
		c.stdin.Close()
		if c.runner.waitErr != nil && !c.runner.abandoned {
			errs = append(errs, fmt.Errorf("runner: %w", c.runner.waitErr))
		}
		return errors.Join(errs...)
	}

	if _, err := io.WriteString(c.stdin, `{"name": "exit"}`+"\n"); err != nil && !errors.Is(err, io.ErrClosedPipe) && !errors.Is(err, os.ErrClosed) {
		errs = append(errs, fmt.Errorf("send exit: %w", err))
	}
	if err := c.stdin.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		errs = append(errs, fmt.Errorf("close stdin: %w", err))
	}

	if c.runner != nil {
		select {
		case <-c.runner.exited:
			if c.runner.waitErr != nil {
				errs = append(errs, fmt.Errorf("runner: %w", c.runner.waitErr))
			}
		case <-c.clock.After(c.shutdownTimeout):
			if err := c.runner.process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				errs = append(errs, fmt.Errorf("kill runner: %w", err))
			}
			<-c.runner.exited
			errs = append(errs, fmt.Errorf("runner did not exit within %v and was killed", c.shutdownTimeout))
		}
	}

	return errors.Join(errs...)
}
