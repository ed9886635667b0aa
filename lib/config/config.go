// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/vmshim/lib/compress"
)

// EnvironmentVariable names the config file for [Load].
const EnvironmentVariable = "VMSHIM_CONFIG"

// Config is the agent configuration.
type Config struct {
	// Address is the host peer the agent connects to, as
	// "vsock://<cid>:<port>" or "tcp://<host>:<port>". The vsock CID
	// may be written as "host" for the hypervisor (CID 2).
	// Default: vsock://host:8080
	Address string `yaml:"address"`

	// Workspace is the root directory under which task inputs are
	// staged. It is mounted by the host after the guest boots.
	// Default: /workspace
	Workspace string `yaml:"workspace"`

	// MountTable is the file listing live mounts.
	// Default: /proc/mounts
	MountTable string `yaml:"mount_table"`

	// MountTimeout bounds the wait for the workspace mount.
	// Default: 30s
	MountTimeout Duration `yaml:"mount_timeout"`

	// MountPollInterval is how often the mount table is re-read.
	// Default: 1s
	MountPollInterval Duration `yaml:"mount_poll_interval"`

	// PollInterval is the pause after GetTask reports no work.
	// Default: 1s
	PollInterval Duration `yaml:"poll_interval"`

	// ConnectTimeout bounds the initial connection to the host.
	// Default: 10s
	ConnectTimeout Duration `yaml:"connect_timeout"`

	// ChunkSize is the upload chunk size in bytes.
	// Default: 4096
	ChunkSize int `yaml:"chunk_size"`

	// Compression selects the gRPC message compressor: none, zstd,
	// or lz4. The host must support the chosen compressor.
	// Default: none
	Compression string `yaml:"compression"`

	// Command is prepended to every task's arguments by the reference
	// executor. Empty means the task's first argument is the program.
	Command []string `yaml:"command"`

	// OutputDir is the directory, relative to the task directory, that
	// the reference executor collects output files from.
	// Default: out
	OutputDir string `yaml:"output_dir"`
}

// Duration is a time.Duration written in YAML as a Go duration string
// ("30s", "1m30s").
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var text string
	if err := value.Decode(&text); err != nil {
		return fmt.Errorf("line %d: duration must be a string: %w", value.Line, err)
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration in its string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the standard guest configuration.
func Default() *Config {
	return &Config{
		Address:           "vsock://host:8080",
		Workspace:         "/workspace",
		MountTable:        "/proc/mounts",
		MountTimeout:      Duration(30 * time.Second),
		MountPollInterval: Duration(time.Second),
		PollInterval:      Duration(time.Second),
		ConnectTimeout:    Duration(10 * time.Second),
		ChunkSize:         4096,
		Compression:       compress.None,
		OutputDir:         "out",
	}
}

// Load loads configuration from the file named by VMSHIM_CONFIG, or
// returns [Default] when the variable is unset.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return Default(), nil
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path. Fields absent
// from the file keep their default values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	c.Workspace = expandVars(c.Workspace)
	c.MountTable = expandVars(c.MountTable)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}

// Validate checks the configuration for errors. All problems are
// reported at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Address == "" {
		errs = append(errs, fmt.Errorf("address is required"))
	}
	if c.Workspace == "" {
		errs = append(errs, fmt.Errorf("workspace is required"))
	} else if !filepath.IsAbs(c.Workspace) {
		errs = append(errs, fmt.Errorf("workspace must be an absolute path, got %q", c.Workspace))
	}
	if c.MountTable == "" {
		errs = append(errs, fmt.Errorf("mount_table is required"))
	}
	if c.MountTimeout <= 0 {
		errs = append(errs, fmt.Errorf("mount_timeout must be positive"))
	}
	if c.MountPollInterval <= 0 {
		errs = append(errs, fmt.Errorf("mount_poll_interval must be positive"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval must be positive"))
	}
	if c.ConnectTimeout <= 0 {
		errs = append(errs, fmt.Errorf("connect_timeout must be positive"))
	}
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk_size must be positive"))
	}
	if err := compress.Validate(c.Compression); err != nil {
		errs = append(errs, err)
	}
	// The output directory must be a strict subdirectory: collecting
	// outputs from the task directory itself would upload the staged
	// inputs back to the host.
	if !filepath.IsLocal(c.OutputDir) || filepath.Clean(c.OutputDir) == "." {
		errs = append(errs, fmt.Errorf("output_dir must be a subdirectory of the task directory, got %q", c.OutputDir))
	}

	return errors.Join(errs...)
}
