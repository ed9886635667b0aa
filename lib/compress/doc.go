// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package compress registers the optional gRPC stream compressors the
// agent can negotiate with the host.
//
// Importing the package registers "zstd" and "lz4" with gRPC's encoding
// registry. A compressor is only used when the agent configuration names
// it; the default is "none", which sends frames as-is. Compression is a
// per-message transform below the transfer protocol, so chunk sizes and
// checksums are always computed on uncompressed bytes.
package compress
