// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package checksum provides the 256-bit content digest attached to every
// file the agent uploads to the host.
//
// The digest is plain (unkeyed) BLAKE3 over the exact bytes sent on the
// wire. The host recomputes it over the bytes it received and rejects a
// manifest entry that does not match, so the algorithm is a protocol
// constant shared with the host side.
//
// Uploads hash incrementally with a [Hasher] as chunks are produced;
// [Sum] is the one-shot form used by tests and by callers that already
// hold the whole buffer.
package checksum
