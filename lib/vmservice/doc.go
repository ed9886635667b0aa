// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package vmservice defines the gRPC service the host exposes to guest
// agents: message types, the transfer frame sum type, the CBOR codec,
// and hand-written client and server bindings.
//
// There is no .proto file. The service is small and stable, and its
// messages are CBOR (see lib/codec), so the bindings that protoc would
// generate are written out directly in service.go. The service and
// method names match the host's "vm_service.VmService" definition.
//
// # Calls
//
//   - GetTask (unary): the next unit of work, an error code, or
//     neither ("nothing yet").
//   - GetFile (server-streaming): the content of one task input file
//     as a sequence of [FileData] frames.
//   - SubmitFile (client-streaming): the content of one output file as
//     a sequence of [FileData] frames.
//   - SubmitResult (unary): the task result and file manifest; the
//     response carries the continuation flag.
//
// # Transfer frames
//
// [FileData] is the wire form of a transfer frame: exactly one of
// Metadata, Chunk, or Error is set. Code that handles frames converts
// to the [Frame] sum type with [FileData.Frame] and switches over
// [MetadataFrame], [ChunkFrame], and [ErrorFrame]; [NewFileData] is the
// inverse. A FileData with no variant set, or with more than one, is
// malformed.
//
// # Codec
//
// Importing the package registers a gRPC codec named "cbor". The
// client adds grpc.CallContentSubtype("cbor") to every call, and the
// server selects the same codec from the request's content subtype.
package vmservice
