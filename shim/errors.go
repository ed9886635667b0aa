// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shim

import (
	"errors"
	"fmt"
)

var (
	// ErrMountTimeout means the workspace did not appear in the mount
	// table within the configured timeout.
	ErrMountTimeout = errors.New("workspace mount timeout")

	// ErrStreamBroken means a transfer stream delivered a frame with no
	// variant set (or more than one).
	ErrStreamBroken = errors.New("transfer stream broken")

	// ErrInvalidPath means a task ID or input name would place a file
	// outside the task directory.
	ErrInvalidPath = errors.New("invalid task path")

	// ErrClientClosed is returned by calls on a closed [Client].
	ErrClientClosed = errors.New("client closed")

	// ErrExecutor marks failures reported by the [Executor]. Nothing is
	// submitted for a task whose execution failed.
	ErrExecutor = errors.New("task execution failed")
)

// HostError is an error code the host returned in place of a result.
type HostError struct {
	// Call is the RPC that returned the code, e.g. "GetTask".
	Call string

	// Code is the host's error code.
	Code int32
}

func (e *HostError) Error() string {
	return fmt.Sprintf("%s: host returned error code %d", e.Call, e.Code)
}

// TransferError is an error frame received in the middle of a file
// download. Received counts the bytes written to the destination before
// the error arrived; those bytes are left in place.
type TransferError struct {
	TaskID   string
	Path     string
	Code     int32
	Received int64
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer of %s for task %s aborted by host with code %d after %d bytes",
		e.Path, e.TaskID, e.Code, e.Received)
}
