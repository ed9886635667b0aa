// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding configuration shared by every
// vmshim package.
//
// CBOR is used for everything that crosses the guest/host boundary: the
// gRPC messages of the VM service (through the codec registered by
// lib/vmservice) and the opaque result payload produced by the reference
// executor in cmd/vmshim. YAML is used only for the on-disk agent
// configuration.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. The
// same logical message always produces identical bytes, which keeps wire
// captures comparable across agent versions.
//
// Every message is a complete buffer (a gRPC message or a payload):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// # Struct Tag Rules
//
// Wire types carry `cbor` tags only. A field that may be absent uses
// omitempty so that the host can distinguish "not set" from a zero
// value; this is how the one-of variants of the transfer frame are
// expressed.
package codec
