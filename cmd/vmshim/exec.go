// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/bureau-foundation/vmshim/lib/codec"
	"github.com/bureau-foundation/vmshim/shim"
)

// Environment variables set for every task process.
const (
	envTaskID    = "VMSHIM_TASK_ID"
	envTaskDir   = "VMSHIM_TASK_DIR"
	envOutputDir = "VMSHIM_OUTPUT_DIR"
)

// executionReport is the result payload sent to the host, CBOR-encoded.
type executionReport struct {
	ExitCode int    `cbor:"exit_code"`
	Stdout   []byte `cbor:"stdout"`
	Stderr   []byte `cbor:"stderr"`
}

// commandExecutor runs each task as a child process. The program and
// leading arguments come from command, followed by the task's own
// arguments. A process that runs and exits non-zero is still a
// successful execution: the exit code goes to the host in the report.
// Only a process that cannot be started is an execution failure.
type commandExecutor struct {
	command   []string
	workspace string
	outputDir string
	logger    *slog.Logger
}

func (e *commandExecutor) Execute(ctx context.Context, task *shim.Task) (*shim.TaskResult, error) {
	argv := append(append([]string(nil), e.command...), task.Args...)
	if len(argv) == 0 {
		return nil, fmt.Errorf("task %s has no command to run", task.ID)
	}

	taskDir := task.Dir(e.workspace)
	outputDir := filepath.Join(taskDir, e.outputDir)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = taskDir
	cmd.Env = append(os.Environ(),
		envTaskID+"="+task.ID,
		envTaskDir+"="+taskDir,
		envOutputDir+"="+outputDir,
	)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger.Info("running task", "task_id", task.ID, "program", argv[0], "args", len(argv)-1)
	report := executionReport{}
	err := cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return nil, fmt.Errorf("task %s interrupted: %w", task.ID, ctx.Err())
	case errors.As(err, &exitErr):
		report.ExitCode = exitErr.ExitCode()
	default:
		return nil, fmt.Errorf("starting %s: %w", argv[0], err)
	}
	report.Stdout = stdout.Bytes()
	report.Stderr = stderr.Bytes()

	payload, err := codec.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("encoding report for task %s: %w", task.ID, err)
	}
	outputs, err := collectOutputs(outputDir)
	if err != nil {
		return nil, err
	}

	e.logger.Info("task finished",
		"task_id", task.ID,
		"exit_code", report.ExitCode,
		"stdout_bytes", stdout.Len(),
		"stderr_bytes", stderr.Len(),
		"outputs", len(outputs),
	)
	return task.Result(payload, outputs), nil
}

// collectOutputs lists the regular files under dir in lexical order.
// Symlinks and other special files are skipped.
func collectOutputs(dir string) ([]string, error) {
	var outputs []string
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.Type().IsRegular() {
			outputs = append(outputs, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collecting outputs from %s: %w", dir, err)
	}
	return outputs, nil
}
