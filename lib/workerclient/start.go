// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package workerclient

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
)

// Start spawns binary with args as a worker and returns a Client
// connected to its stdin and stdout. If the runner later exits, the
// next command spawns binary again. Canceling ctx kills the process and
// prevents restarts.
func Start(ctx context.Context, binary string, args []string, options ...Option) (*Client, error) {
	client := newClient(options)
	client.launch = func() error { return client.spawn(ctx, binary, args) }
	if err := client.launch(); err != nil {
		return nil, err
	}
	return client, nil
}

// spawn starts one runner process and points the Client's streams at
// it.
func (c *Client) spawn(ctx context.Context, binary string, args []string) error {
	command := exec.CommandContext(ctx, binary, args...)
	// A nil writer sends stderr to the null device.
	if c.stderr != nil {
		command.Stderr = c.stderr
	}

	stdin, err := command.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := command.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	if err := command.Start(); err != nil {
		return fmt.Errorf("start %s: %w", binary, err)
	}

	spawned := &runner{process: command.Process, exited: make(chan struct{})}
	go func() {
		spawned.waitErr = command.Wait()
		close(spawned.exited)
	}()

	c.stdin = stdin
	c.reader = bufio.NewReader(stdout)
	c.runner = spawned
	return nil
}
