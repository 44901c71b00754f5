// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// bagit-runner is the bagit worker process. It reads newline-delimited
// JSON commands on stdin, runs each against a BagIt package on disk,
// and writes one JSON response line per command to stdout:
//
//	{"name": "validate", "args": {"path": "/srv/bags/accession-17"}}
//	{"valid": true}
//
// Commands are validate, make and exit. The worker stops on exit, at
// end of input, or on SIGINT/SIGTERM (after finishing the command in
// progress). Logs go to stderr; stdout carries only responses.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/bagit/lib/bagit"
	"github.com/bureau-foundation/bagit/lib/config"
	"github.com/bureau-foundation/bagit/lib/logging"
	"github.com/bureau-foundation/bagit/lib/process"
	"github.com/bureau-foundation/bagit/lib/version"
	"github.com/bureau-foundation/bagit/lib/worker"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		processes   int
		logLevel    string
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("bagit-runner", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to YAML config file (default: $BAGIT_CONFIG, else built-in defaults)")
	flagSet.IntVar(&processes, "processes", 0, "files hashed concurrently per command (default: config, else number of CPUs)")
	flagSet.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default: config, else info)")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return &process.ExitError{Code: 2, Err: err}
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if showVersion {
		fmt.Printf("bagit-runner %s\n", version.Full())
		return nil
	}
	if flagSet.NArg() > 0 {
		return &process.ExitError{Code: 2, Err: fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))}
	}

	cfg, err := config.Resolve(configPath)
	if err != nil {
		return err
	}
	if flagSet.Changed("processes") {
		cfg.Processes = processes
	}
	cfg.Processes = cfg.EffectiveProcesses()
	if flagSet.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, level).With("component", "bagit-runner")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	packager := bagit.NewPackager(bagit.PackagerConfig{
		Checksums: cfg.Checksums,
		Info:      cfg.BagInfo,
		Logger:    logger,
	})
	registry := worker.NewRegistry(packager, cfg.Processes)
	session := worker.NewSession(worker.NewDispatcher(registry), worker.SessionConfig{Logger: logger})

	logger.Info("worker started",
		"version", version.Info(),
		"processes", cfg.Processes,
		"checksums", cfg.Checksums,
	)
	if err := session.Run(ctx, os.Stdin, os.Stdout); err != nil {
		logger.Error("worker stopped", "error", err)
		return err
	}
	logger.Info("worker stopped")
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `bagit-runner: BagIt worker speaking line-delimited JSON on stdio.

Reads one command per line on stdin and writes one response per line
on stdout. Commands:

  {"name": "validate", "args": {"path": DIR, "fast": BOOL, "completeness_only": BOOL}}
  {"name": "make", "args": {"path": DIR, "checksums": [ALG...], "bag_info": {...}}}
  {"name": "exit"}

Errors are reported as {"err": MESSAGE, "type": KIND}.

Usage:
  bagit-runner [flags]

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
