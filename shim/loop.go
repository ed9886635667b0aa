// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shim

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/vmshim/lib/clock"
	"github.com/bureau-foundation/vmshim/lib/config"
	"github.com/bureau-foundation/vmshim/transport"
)

// Executor runs a staged task. When Execute is called every entry of
// task.Files is the local path of a fully downloaded input. The
// returned result's files are uploaded and the result submitted; an
// error ends the agent without submitting anything for the task.
type Executor interface {
	Execute(ctx context.Context, task *Task) (*TaskResult, error)
}

// ExecutorFunc adapts a function to [Executor].
type ExecutorFunc func(ctx context.Context, task *Task) (*TaskResult, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, task *Task) (*TaskResult, error) {
	return f(ctx, task)
}

// State is a phase of [Loop].
type State int

const (
	// StatePolling asks the host for work.
	StatePolling State = iota

	// StateExecuting runs a staged task and submits its result.
	StateExecuting

	// StateTerminated is final.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StatePolling:
		return "polling"
	case StateExecuting:
		return "executing"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Loop is the agent's outer control loop.
type Loop struct {
	Client    *Client
	Executor  Executor
	Workspace string

	// PollInterval is the pause after the host reports no work.
	PollInterval time.Duration

	// Clock paces polling. Nil means the real clock.
	Clock clock.Clock

	// Logger nil means slog.Default().
	Logger *slog.Logger

	// OnState, if set, is called on every state transition. Tests use
	// it to observe the machine.
	OnState func(State)
}

// Run drives the loop until the host says to stop (nil), any step
// fails (the error), or ctx is cancelled while idle (ctx.Err()).
func (l *Loop) Run(ctx context.Context) error {
	clk := l.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	state := StatePolling
	var task *Task
	var err error
	transition := func(next State) {
		logger.Debug("loop state", "from", state.String(), "to", next.String())
		state = next
		if l.OnState != nil {
			l.OnState(next)
		}
	}

	for state != StateTerminated {
		switch state {
		case StatePolling:
			task, err = l.Client.GetTask(ctx)
			if err != nil {
				logger.Error("GetTask failed", "error", err)
				transition(StateTerminated)
				continue
			}
			if task == nil {
				select {
				case <-ctx.Done():
					err = ctx.Err()
					transition(StateTerminated)
				case <-clk.After(l.PollInterval):
				}
				continue
			}

			logger.Info("task received", "task_id", task.ID, "args", len(task.Args), "files", len(task.Files))
			if err = l.Client.StageTask(ctx, l.Workspace, task); err != nil {
				transition(StateTerminated)
				continue
			}
			transition(StateExecuting)

		case StateExecuting:
			var proceed bool
			proceed, err = l.execute(ctx, task)
			switch {
			case err != nil:
				transition(StateTerminated)
			case proceed:
				transition(StatePolling)
			default:
				logger.Info("host finished issuing tasks")
				transition(StateTerminated)
			}
		}
	}
	return err
}

// execute runs one staged task and submits its result.
func (l *Loop) execute(ctx context.Context, task *Task) (bool, error) {
	result, err := l.Executor.Execute(ctx, task)
	if err != nil {
		return false, fmt.Errorf("%w: task %s: %w", ErrExecutor, task.ID, err)
	}
	if result == nil {
		return false, fmt.Errorf("%w: task %s: executor returned no result", ErrExecutor, task.ID)
	}
	return l.Client.Submit(ctx, result)
}

// Options supplies the parts of [Run] that are not in config.Config.
type Options struct {
	// Logger nil means slog.Default().
	Logger *slog.Logger

	// Clock nil means the real clock.
	Clock clock.Clock

	// Dialer overrides the dialer chosen from the config address.
	Dialer transport.Dialer
}

// Run is the agent: connect to the host, wait for the workspace mount,
// then run the loop until the host stops issuing tasks. It returns nil
// only when the host ended the session.
func Run(ctx context.Context, cfg *config.Config, executor Executor, options Options) error {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	endpoint, err := transport.ParseEndpoint(cfg.Address)
	if err != nil {
		return err
	}

	client, err := Dial(ctx, DialOptions{
		Endpoint:       endpoint,
		Dialer:         options.Dialer,
		ConnectTimeout: cfg.ConnectTimeout.Std(),
		Compression:    cfg.Compression,
		ChunkSize:      cfg.ChunkSize,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	err = WaitForMount(ctx, MountGate{
		Path:       cfg.Workspace,
		MountTable: cfg.MountTable,
		Timeout:    cfg.MountTimeout.Std(),
		Interval:   cfg.MountPollInterval.Std(),
		Clock:      options.Clock,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	loop := &Loop{
		Client:       client,
		Executor:     executor,
		Workspace:    cfg.Workspace,
		PollInterval: cfg.PollInterval.Std(),
		Clock:        options.Clock,
		Logger:       logger,
	}
	return loop.Run(ctx)
}
