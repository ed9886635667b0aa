// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shim

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/vmshim/lib/clock"
	"github.com/bureau-foundation/vmshim/lib/testutil"
)

const procMountsWithoutWorkspace = `proc /proc proc rw,nosuid,nodev,noexec,relatime 0 0
/dev/vda / ext4 rw,relatime 0 0
`

const procMountsWithWorkspace = procMountsWithoutWorkspace +
	"workspace /workspace virtiofs rw,relatime 0 0\n"

func writeMountTable(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing mount table: %v", err)
	}
}

func testGate(table string, clk clock.Clock) MountGate {
	return MountGate{
		Path:       "/workspace",
		MountTable: table,
		Timeout:    30 * time.Second,
		Interval:   time.Second,
		Clock:      clk,
		Logger:     discardLogger(),
	}
}

func TestWaitForMountAlreadyPresent(t *testing.T) {
	table := filepath.Join(t.TempDir(), "mounts")
	writeMountTable(t, table, procMountsWithWorkspace)

	clk := clock.Fake(time.Unix(0, 0))
	if err := WaitForMount(context.Background(), testGate(table, clk)); err != nil {
		t.Fatalf("WaitForMount: %v", err)
	}
	if clk.PendingCount() != 0 {
		t.Errorf("pending timers = %d, want 0", clk.PendingCount())
	}
}

func TestWaitForMountAppearsWhilePolling(t *testing.T) {
	table := filepath.Join(t.TempDir(), "mounts")
	writeMountTable(t, table, procMountsWithoutWorkspace)

	clk := clock.Fake(time.Unix(0, 0))
	done := make(chan error, 1)
	go func() { done <- WaitForMount(context.Background(), testGate(table, clk)) }()

	for i := 0; i < 3; i++ {
		clk.WaitForTimers(1)
		clk.Advance(time.Second)
	}
	clk.WaitForTimers(1)
	writeMountTable(t, table, procMountsWithWorkspace)
	clk.Advance(time.Second)

	if err := testutil.RequireReceive(t, done, 5*time.Second, "WaitForMount did not return"); err != nil {
		t.Fatalf("WaitForMount: %v", err)
	}
}

func TestWaitForMountTimesOut(t *testing.T) {
	table := filepath.Join(t.TempDir(), "mounts")
	writeMountTable(t, table, procMountsWithoutWorkspace)

	clk := clock.Fake(time.Unix(0, 0))
	done := make(chan error, 1)
	go func() { done <- WaitForMount(context.Background(), testGate(table, clk)) }()

	// After 29 seconds the gate is still polling.
	for i := 0; i < 29; i++ {
		clk.WaitForTimers(1)
		clk.Advance(time.Second)
	}
	clk.WaitForTimers(1)
	select {
	case err := <-done:
		t.Fatalf("WaitForMount returned %v before the timeout", err)
	default:
	}

	clk.Advance(time.Second)
	err := testutil.RequireReceive(t, done, 5*time.Second, "WaitForMount did not time out")
	if !errors.Is(err, ErrMountTimeout) {
		t.Fatalf("WaitForMount = %v, want ErrMountTimeout", err)
	}
}

func TestWaitForMountCancelled(t *testing.T) {
	table := filepath.Join(t.TempDir(), "mounts")
	writeMountTable(t, table, procMountsWithoutWorkspace)

	clk := clock.Fake(time.Unix(0, 0))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- WaitForMount(ctx, testGate(table, clk)) }()

	clk.WaitForTimers(1)
	cancel()
	err := testutil.RequireReceive(t, done, 5*time.Second, "WaitForMount ignored cancellation")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("WaitForMount = %v, want context.Canceled", err)
	}
}

func TestWaitForMountUnreadableTable(t *testing.T) {
	gate := testGate(filepath.Join(t.TempDir(), "absent"), clock.Fake(time.Unix(0, 0)))
	err := WaitForMount(context.Background(), gate)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("WaitForMount = %v, want os.ErrNotExist", err)
	}
}
