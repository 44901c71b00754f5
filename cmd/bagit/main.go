// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// bagit validates and creates BagIt packages by driving a bagit-runner
// worker:
//
//	bagit validate [--fast] [--completeness-only] PATH
//	bagit make [--checksum ALG]... [--info NAME=VALUE]... PATH
//
// The worker binary comes from runner_path in the config file, or from
// PATH. Exit status is 0 on success, 1 when the bag is invalid or the
// operation failed, and 2 on usage errors.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/bagit/lib/config"
	"github.com/bureau-foundation/bagit/lib/process"
	"github.com/bureau-foundation/bagit/lib/version"
	"github.com/bureau-foundation/bagit/lib/workerclient"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

// globalOptions are accepted before the subcommand.
type globalOptions struct {
	configPath string
	logLevel   string
}

func run(args []string) error {
	var global globalOptions
	var showVersion bool

	flagSet := pflag.NewFlagSet("bagit", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&global.configPath, "config", "", "path to YAML config file (default: $BAGIT_CONFIG)")
	flagSet.StringVar(&global.logLevel, "log-level", "", "worker log level: debug, info, warn, error")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return usageError(err)
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if showVersion {
		fmt.Printf("bagit %s\n", version.Info())
		return nil
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		printHelp(flagSet)
		return usageError(errors.New("missing command"))
	}

	switch rest[0] {
	case "validate":
		return runValidate(global, rest[1:])
	case "make":
		return runMake(global, rest[1:])
	default:
		return usageError(fmt.Errorf("unknown command %q (valid commands: validate, make)", rest[0]))
	}
}

func runValidate(global globalOptions, args []string) error {
	var fast, completenessOnly bool
	var processes int

	flagSet := pflag.NewFlagSet("bagit validate", pflag.ContinueOnError)
	flagSet.BoolVar(&fast, "fast", false, "check only Payload-Oxum (file count and size)")
	flagSet.BoolVar(&completenessOnly, "completeness-only", false, "check that files and manifests match without hashing")
	flagSet.IntVar(&processes, "processes", 0, "files hashed concurrently (default: worker setting)")
	path, err := parseSubcommand(flagSet, args)
	if err != nil {
		return err
	}

	options := map[string]any{}
	if fast {
		options["fast"] = true
	}
	if completenessOnly {
		options["completeness_only"] = true
	}
	if flagSet.Changed("processes") {
		options["processes"] = processes
	}

	return withClient(global, func(client *workerclient.Client) error {
		err := client.Validate(path, options)
		if errors.Is(err, workerclient.ErrInvalid) {
			return &process.ExitError{Code: 1, Err: err}
		}
		if err != nil {
			return err
		}
		fmt.Printf("%s is valid\n", path)
		return nil
	})
}

func runMake(global globalOptions, args []string) error {
	var checksums, info []string
	var processes int

	flagSet := pflag.NewFlagSet("bagit make", pflag.ContinueOnError)
	flagSet.StringArrayVar(&checksums, "checksum", nil, "manifest algorithm, repeatable (default: config, else sha256 and sha512)")
	flagSet.StringArrayVar(&info, "info", nil, "bag-info.txt tag as NAME=VALUE, repeatable")
	flagSet.IntVar(&processes, "processes", 0, "files hashed concurrently (default: worker setting)")
	path, err := parseSubcommand(flagSet, args)
	if err != nil {
		return err
	}

	options := map[string]any{}
	if len(checksums) > 0 {
		options["checksums"] = checksums
	}
	if len(info) > 0 {
		tags, err := parseInfo(info)
		if err != nil {
			return usageError(err)
		}
		options["bag_info"] = tags
	}
	if flagSet.Changed("processes") {
		options["processes"] = processes
	}

	return withClient(global, func(client *workerclient.Client) error {
		bagVersion, err := client.Make(path, options)
		if err != nil {
			return err
		}
		fmt.Printf("created BagIt %s bag at %s\n", bagVersion, path)
		return nil
	})
}

// parseSubcommand parses flags and returns the single PATH argument.
func parseSubcommand(flagSet *pflag.FlagSet, args []string) (string, error) {
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return "", &process.ExitError{Code: 0}
		}
		return "", usageError(err)
	}
	if flagSet.NArg() != 1 {
		return "", usageError(fmt.Errorf("%s requires exactly one PATH argument", flagSet.Name()))
	}
	return flagSet.Arg(0), nil
}

// parseInfo converts NAME=VALUE pairs into bag_info, keeping every
// value of a repeated name.
func parseInfo(pairs []string) (map[string][]string, error) {
	tags := make(map[string][]string, len(pairs))
	for _, pair := range pairs {
		name, value, found := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !found || name == "" {
			return nil, fmt.Errorf("--info %q: expected NAME=VALUE", pair)
		}
		tags[name] = append(tags[name], value)
	}
	return tags, nil
}

// withClient spawns the worker, runs fn against it and shuts it down.
func withClient(global globalOptions, fn func(*workerclient.Client) error) error {
	cfg, err := config.Resolve(global.configPath)
	if err != nil {
		return err
	}
	binary, err := cfg.RunnerBinaryPath()
	if err != nil {
		return err
	}

	var runnerArgs []string
	if global.configPath != "" {
		runnerArgs = append(runnerArgs, "--config", global.configPath)
	}
	if global.logLevel != "" {
		runnerArgs = append(runnerArgs, "--log-level", global.logLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := workerclient.Start(ctx, binary, runnerArgs, workerclient.WithStderr(os.Stderr))
	if err != nil {
		return err
	}
	return errors.Join(fn(client), client.Close())
}

func usageError(err error) error {
	return &process.ExitError{Code: 2, Err: err}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `bagit: validate and create BagIt packages.

Usage:
  bagit [flags] validate [--fast] [--completeness-only] [--processes N] PATH
  bagit [flags] make [--checksum ALG]... [--info NAME=VALUE]... [--processes N] PATH

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
