// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// vmshim is the guest agent that runs inside a task VM. It connects to
// the host over vsock, waits for the workspace mount, and then pulls
// tasks one at a time: each task's inputs are staged under
// <workspace>/<task id>, its arguments are run as a child process in
// that directory, and the process's exit status and output plus every
// file it wrote under the output directory are sent back.
//
// The process exits 0 when the host stops issuing tasks and 1 on any
// failure.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/vmshim/lib/config"
	"github.com/bureau-foundation/vmshim/lib/process"
	"github.com/bureau-foundation/vmshim/lib/version"
	"github.com/bureau-foundation/vmshim/shim"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

// options are the command-line flags. Flags that were not given leave
// the config file's values alone.
type options struct {
	configPath  string
	address     string
	workspace   string
	compression string
	logLevel    string
	logFormat   string
	showVersion bool

	flagSet *pflag.FlagSet
}

func parseOptions(args []string) (*options, error) {
	parsed := &options{}
	flagSet := pflag.NewFlagSet("vmshim", pflag.ContinueOnError)
	flagSet.StringVar(&parsed.configPath, "config", "", "path to the YAML config file (default: $"+config.EnvironmentVariable+", then built-in defaults)")
	flagSet.StringVar(&parsed.address, "address", "", "host endpoint, vsock://<cid>:<port> or tcp://<host>:<port>")
	flagSet.StringVar(&parsed.workspace, "workspace", "", "workspace mount point")
	flagSet.StringVar(&parsed.compression, "compression", "", "message compression: none, zstd, or lz4")
	flagSet.StringVar(&parsed.logLevel, "log-level", "info", "log level: debug, info, warn, or error")
	flagSet.StringVar(&parsed.logFormat, "log-format", "text", "log format: text or json")
	flagSet.BoolVar(&parsed.showVersion, "version", false, "print version information and exit")

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	parsed.flagSet = flagSet
	return parsed, nil
}

// config loads the config file and applies flag overrides.
func (o *options) config() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if o.flagSet.Changed("address") {
		cfg.Address = o.address
	}
	if o.flagSet.Changed("workspace") {
		cfg.Workspace = o.workspace
	}
	if o.flagSet.Changed("compression") {
		cfg.Compression = o.compression
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger from the --log-level and
// --log-format flags.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var parsedLevel slog.Level
	if err := parsedLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("--log-level: %w", err)
	}
	handlerOptions := &slog.HandlerOptions{Level: parsedLevel}

	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, handlerOptions)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOptions)), nil
	default:
		return nil, fmt.Errorf("--log-format: unknown format %q (want text or json)", format)
	}
}

func run(args []string) error {
	parsed, err := parseOptions(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if parsed.showVersion {
		fmt.Printf("vmshim %s\n", version.Full())
		return nil
	}

	cfg, err := parsed.config()
	if err != nil {
		return err
	}
	logger, err := newLogger(os.Stderr, parsed.logLevel, parsed.logFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("vmshim starting",
		"version", version.Info(),
		"address", cfg.Address,
		"workspace", cfg.Workspace,
		"compression", cfg.Compression,
	)

	executor := &commandExecutor{
		command:   cfg.Command,
		workspace: cfg.Workspace,
		outputDir: cfg.OutputDir,
		logger:    logger,
	}
	if err := shim.Run(ctx, cfg, executor, shim.Options{Logger: logger}); err != nil {
		return err
	}

	logger.Info("host finished the session")
	return nil
}
