// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/vmshim/lib/config"
)

func TestFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vmshim.yaml")
	content := "address: tcp://127.0.0.1:9000\nworkspace: /srv/work\ncompression: lz4\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	parsed, err := parseOptions([]string{"--config", path, "--workspace", "/mnt/ws"})
	if err != nil {
		t.Fatalf("parseOptions: %v", err)
	}
	cfg, err := parsed.config()
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	if cfg.Address != "tcp://127.0.0.1:9000" {
		t.Errorf("address = %q, want value from file", cfg.Address)
	}
	if cfg.Workspace != "/mnt/ws" {
		t.Errorf("workspace = %q, want flag value", cfg.Workspace)
	}
	if cfg.Compression != "lz4" {
		t.Errorf("compression = %q, want value from file", cfg.Compression)
	}
}

func TestDefaultsWithoutConfigFile(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")

	parsed, err := parseOptions(nil)
	if err != nil {
		t.Fatalf("parseOptions: %v", err)
	}
	cfg, err := parsed.config()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg.Address != config.Default().Address {
		t.Errorf("address = %q, want default", cfg.Address)
	}
}

func TestInvalidOverrideRejected(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")

	parsed, err := parseOptions([]string{"--compression", "gzip"})
	if err != nil {
		t.Fatalf("parseOptions: %v", err)
	}
	if _, err := parsed.config(); err == nil {
		t.Fatal("config should reject an unknown compressor")
	}
}

func TestUnexpectedArgument(t *testing.T) {
	if _, err := parseOptions([]string{"extra"}); err == nil {
		t.Fatal("parseOptions should reject positional arguments")
	}
}

func TestNewLoggerFormats(t *testing.T) {
	var output bytes.Buffer
	logger, err := newLogger(&output, "debug", "json")
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	logger.Debug("staging input", "task_id", "t1")
	if !strings.Contains(output.String(), `"task_id":"t1"`) {
		t.Errorf("json output = %q", output.String())
	}

	output.Reset()
	logger, err = newLogger(&output, "warn", "text")
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	logger.Info("suppressed")
	if output.Len() != 0 {
		t.Errorf("info record written at warn level: %q", output.String())
	}
}

func TestNewLoggerRejectsBadValues(t *testing.T) {
	if _, err := newLogger(&bytes.Buffer{}, "loud", "text"); err == nil {
		t.Error("newLogger accepted an unknown level")
	}
	if _, err := newLogger(&bytes.Buffer{}, "info", "xml"); err == nil {
		t.Error("newLogger accepted an unknown format")
	}
}
