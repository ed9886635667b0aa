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

	"github.com/bureau-foundation/vmshim/lib/checksum"
	"github.com/bureau-foundation/vmshim/lib/clock"
	"github.com/bureau-foundation/vmshim/lib/compress"
	"github.com/bureau-foundation/vmshim/lib/config"
	"github.com/bureau-foundation/vmshim/lib/testutil"
)

func TestDialUnreachableHostFails(t *testing.T) {
	_, err := Dial(testContext(t), DialOptions{
		Endpoint:       testEndpoint,
		Dialer:         failingDialer{},
		ConnectTimeout: 2 * time.Second,
		Logger:         discardLogger(),
	})
	if err == nil {
		t.Fatal("Dial should fail when the host refuses connections")
	}
}

func TestDialRejectsUnknownCompression(t *testing.T) {
	_, err := Dial(testContext(t), DialOptions{
		Endpoint:    testEndpoint,
		Dialer:      failingDialer{},
		Compression: "brotli",
		Logger:      discardLogger(),
	})
	if err == nil {
		t.Fatal("Dial should reject an unregistered compressor")
	}
}

func TestDialWithCompression(t *testing.T) {
	for _, name := range []string{compress.Zstd, compress.LZ4} {
		host := newFakeHost()
		client, err := Dial(testContext(t), DialOptions{
			Endpoint:       testEndpoint,
			Dialer:         startFakeHost(t, host),
			ConnectTimeout: 5 * time.Second,
			Compression:    name,
			Logger:         discardLogger(),
		})
		if err != nil {
			t.Fatalf("%s: Dial: %v", name, err)
		}

		path := filepath.Join(t.TempDir(), "out.bin")
		content := patterned(9000)
		if err := os.WriteFile(path, content, 0o644); err != nil {
			t.Fatal(err)
		}
		entry, _, err := client.SubmitFile(testContext(t), "t1", path)
		if err != nil {
			t.Fatalf("%s: SubmitFile: %v", name, err)
		}
		if entry.Checksum != checksum.Sum(content) {
			t.Errorf("%s: checksum mismatch", name)
		}
		client.Close()
	}
}

func TestRunEndToEnd(t *testing.T) {
	host := newFakeHost()
	host.queueTask("t1", []string{"copy"}, "in.bin")
	host.serveFile("t1", "in.bin", patterned(10000), 4096)
	dialer := startFakeHost(t, host)

	workspace := t.TempDir()
	mountTable := filepath.Join(t.TempDir(), "mounts")
	writeMountTable(t, mountTable, "workspace "+workspace+" virtiofs rw 0 0\n")

	cfg := config.Default()
	cfg.Workspace = workspace
	cfg.MountTable = mountTable
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	executor := &recordingExecutor{}
	err := Run(testContext(t), cfg, executor, Options{
		Logger: discardLogger(),
		Clock:  clock.Fake(time.Unix(0, 0)),
		Dialer: dialer,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	_, results := host.snapshot()
	if len(results) != 1 {
		t.Fatalf("host received %d results, want 1", len(results))
	}
	manifest := results[0].Files
	if len(manifest) != 1 {
		t.Fatalf("manifest has %d entries, want 1", len(manifest))
	}
	if manifest[0].Path != filepath.Join(workspace, "t1", "out.bin") {
		t.Errorf("manifest path = %q", manifest[0].Path)
	}
	want := checksum.Sum(patterned(10000))
	if got, err := checksum.FromBytes(manifest[0].Checksum); err != nil || got != want {
		t.Errorf("manifest checksum = %x, want %s", manifest[0].Checksum, want)
	}
}

func TestRunMountTimeoutIsFatal(t *testing.T) {
	host := newFakeHost()
	host.queueTask("t1", nil)
	dialer := startFakeHost(t, host)
	mountTable := filepath.Join(t.TempDir(), "mounts")
	writeMountTable(t, mountTable, procMountsWithoutWorkspace)

	cfg := config.Default()
	cfg.Workspace = "/workspace-never-mounted"
	cfg.MountTable = mountTable
	cfg.MountTimeout = config.Duration(time.Second)

	clk := clock.Fake(time.Unix(0, 0))
	done := make(chan error, 1)
	go func() {
		done <- Run(context.Background(), cfg, &recordingExecutor{}, Options{Logger: discardLogger(), Clock: clk, Dialer: dialer})
	}()

	clk.WaitForTimers(1)
	clk.Advance(time.Second)
	err := testutil.RequireReceive(t, done, 5*time.Second, "Run did not give up on the mount")
	if !errors.Is(err, ErrMountTimeout) {
		t.Fatalf("Run = %v, want ErrMountTimeout", err)
	}
	if getTasks, getFiles := host.counts(); getTasks != 0 || getFiles != 0 {
		t.Errorf("host saw %d GetTask and %d GetFile calls before the mount appeared, want none", getTasks, getFiles)
	}
}
