// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shim

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"google.golang.org/grpc"

	"github.com/bureau-foundation/vmshim/lib/checksum"
	"github.com/bureau-foundation/vmshim/lib/vmservice"
)

// Client is the guest's handle on the VM service. The gRPC stub is
// owned by a single worker goroutine; every exported call hands its
// whole RPC (including every frame of a stream) to that worker and
// holds the client mutex until it completes. At most one RPC is ever
// in flight on the channel.
//
// Client is safe for concurrent use; concurrent callers are serialized.
type Client struct {
	conn      *grpc.ClientConn
	chunkSize int
	logger    *slog.Logger

	// mu is held for the full duration of each call and by Close.
	mu     sync.Mutex
	closed bool

	calls      chan clientCall
	stop       chan struct{}
	workerDone chan struct{}
}

type clientCall struct {
	ctx   context.Context
	run   func(context.Context, vmservice.VMServiceClient) error
	reply chan error
}

func newClient(conn *grpc.ClientConn, chunkSize int, logger *slog.Logger) *Client {
	client := &Client{
		conn:       conn,
		chunkSize:  chunkSize,
		logger:     logger,
		calls:      make(chan clientCall),
		stop:       make(chan struct{}),
		workerDone: make(chan struct{}),
	}
	go client.worker(vmservice.NewVMServiceClient(conn))
	return client
}

// worker is the only goroutine that touches the service stub.
func (c *Client) worker(service vmservice.VMServiceClient) {
	defer close(c.workerDone)
	for {
		select {
		case call := <-c.calls:
			call.reply <- call.run(call.ctx, service)
		case <-c.stop:
			return
		}
	}
}

// do runs fn on the worker and waits for it to return.
func (c *Client) do(ctx context.Context, fn func(context.Context, vmservice.VMServiceClient) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}

	call := clientCall{ctx: ctx, run: fn, reply: make(chan error, 1)}
	// The worker is idle whenever mu is free, so this send does not
	// wait on another call.
	c.calls <- call
	return <-call.reply
}

// GetTask asks the host for the next task. It returns (nil, nil) when
// the host has no work, and a [*HostError] when the host answers with
// an error code.
func (c *Client) GetTask(ctx context.Context) (*Task, error) {
	var response *vmservice.TaskResponse
	err := c.do(ctx, func(ctx context.Context, service vmservice.VMServiceClient) error {
		var err error
		response, err = service.GetTask(ctx, &vmservice.TaskRequest{})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("GetTask: %w", err)
	}

	switch {
	case response.Error != nil:
		return nil, &HostError{Call: "GetTask", Code: *response.Error}
	case response.Task != nil:
		return &Task{
			ID:    response.Task.ID,
			Args:  response.Task.Args,
			Files: response.Task.Files,
		}, nil
	default:
		return nil, nil
	}
}

// GetFile downloads the task input name into destination, creating
// parent directories as needed.
func (c *Client) GetFile(ctx context.Context, taskID, name, destination string) (TransferStats, error) {
	var stats TransferStats
	err := c.do(ctx, func(ctx context.Context, service vmservice.VMServiceClient) error {
		var err error
		stats, err = download(ctx, service, c.logger, taskID, name, destination)
		return err
	})
	return stats, err
}

// SubmitFile uploads the file at path for taskID and returns its
// manifest entry. The digest covers exactly the bytes sent and is
// returned only after the host acknowledged the stream.
func (c *Client) SubmitFile(ctx context.Context, taskID, path string) (FileManifestEntry, TransferStats, error) {
	var digest checksum.Hash
	var stats TransferStats
	err := c.do(ctx, func(ctx context.Context, service vmservice.VMServiceClient) error {
		var err error
		digest, stats, err = upload(ctx, service, c.logger, c.chunkSize, taskID, path)
		return err
	})
	if err != nil {
		return FileManifestEntry{}, stats, err
	}
	return FileManifestEntry{Path: path, Checksum: digest}, stats, nil
}

// SubmitResult sends the result and its manifest and returns the
// host's continuation flag.
func (c *Client) SubmitResult(ctx context.Context, result *TaskResult, manifest []FileManifestEntry) (bool, error) {
	files := make([]vmservice.File, len(manifest))
	for i, entry := range manifest {
		files[i] = vmservice.File{Path: entry.Path, Checksum: entry.Checksum.Bytes()}
	}
	request := &vmservice.TaskResultRequest{Task: &vmservice.TaskResult{
		ID:    result.ID,
		Data:  result.Data,
		Files: files,
	}}

	var response *vmservice.TaskResultResponse
	err := c.do(ctx, func(ctx context.Context, service vmservice.VMServiceClient) error {
		var err error
		response, err = service.SubmitResult(ctx, request)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("SubmitResult for task %s: %w", result.ID, err)
	}
	return response.Continue, nil
}

// Close stops the worker and closes the channel. It waits for an
// in-progress call to finish. Calls after Close return
// [ErrClientClosed].
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.stop)
	<-c.workerDone
	return c.conn.Close()
}
