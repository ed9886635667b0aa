// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package shim is the guest side of the VM task exchange. It runs
// inside an isolated VM, pulls one task at a time from the host over
// vsock, stages the task's input files into the workspace, hands the
// task to an [Executor], and ships the result and output files back.
//
// The pieces, leaf first:
//
//   - [Dial] opens the single gRPC channel to the host. The dial
//     function ignores the channel target and always connects to the
//     configured vsock (or, for development, TCP) endpoint.
//   - [WaitForMount] blocks until the workspace appears in the mount
//     table, failing with [ErrMountTimeout] after the configured bound.
//   - [Client] wraps the four VM service calls. Every call runs on one
//     worker goroutine, so at most one RPC is in flight at a time.
//   - [Client.StageTask] downloads a task's inputs to
//     <workspace>/<task id>/<name> and rewrites the task's file list to
//     the local paths. [Client.Submit] uploads the outputs, computing a
//     BLAKE3 digest of each while it streams, and submits the result
//     with the resulting manifest.
//   - [Loop] is the outer state machine (polling, executing,
//     terminated), and [Run] wires everything from a config.Config.
//
// Every failure is returned as an error; nothing in the package
// panics on host or I/O errors. Protocol failures are [*HostError],
// [*TransferError], and [ErrStreamBroken]; executor failures wrap
// [ErrExecutor].
package shim
