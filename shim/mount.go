// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shim

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/bureau-foundation/vmshim/lib/clock"
)

// MountGate describes the wait for the workspace mount.
type MountGate struct {
	// Path is the mount point. A mount-table line containing it counts
	// as mounted.
	Path string

	// MountTable is the file listing live mounts, normally /proc/mounts.
	MountTable string

	// Timeout bounds the wait.
	Timeout time.Duration

	// Interval is the pause between reads of the mount table.
	Interval time.Duration

	// Clock paces the polling. Nil means the real clock.
	Clock clock.Clock

	// Logger receives progress messages. Nil means slog.Default().
	Logger *slog.Logger
}

// WaitForMount polls the mount table until gate.Path is present. It
// returns [ErrMountTimeout] once gate.Timeout has elapsed without the
// mount appearing, and ctx.Err() if ctx is cancelled first. A mount
// table that cannot be read is an error.
func WaitForMount(ctx context.Context, gate MountGate) error {
	clk := gate.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := gate.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("waiting for workspace mount", "path", gate.Path, "timeout", gate.Timeout)
	start := clk.Now()
	for {
		present, err := mountPresent(gate.MountTable, gate.Path)
		if err != nil {
			return err
		}
		if present {
			logger.Info("workspace mount present", "path", gate.Path, "waited", clk.Now().Sub(start))
			return nil
		}

		if clk.Now().Sub(start) >= gate.Timeout {
			return fmt.Errorf("%w: %s not mounted after %s", ErrMountTimeout, gate.Path, gate.Timeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clk.After(gate.Interval):
		}
	}
}

// mountPresent reports whether any line of the mount table contains
// mountPoint.
func mountPresent(table, mountPoint string) (bool, error) {
	file, err := os.Open(table)
	if err != nil {
		return false, fmt.Errorf("reading mount table: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if strings.Contains(scanner.Text(), mountPoint) {
			return true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("reading mount table %s: %w", table, err)
	}
	return false, nil
}
