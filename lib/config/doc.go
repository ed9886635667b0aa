// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the vmshim
// agent.
//
// Configuration comes from a single file named either by the
// VMSHIM_CONFIG environment variable (via [Load]) or by a --config flag
// (via [LoadFile]). There is no file discovery. Unlike host-side
// components, the guest agent is usually baked into an image with no
// config file at all, so [Load] falls back to [Default] when
// VMSHIM_CONFIG is unset: the defaults describe the standard guest
// (host peer on vsock port 8080, workspace at /workspace).
//
// Variable expansion is performed on path fields after loading:
// ${HOME} and ${VAR:-default} patterns are expanded.
//
// Key exports:
//
//   - [Config] -- the agent configuration
//   - [Default] -- the standard guest configuration
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends only on lib/compress for validation.
package config
