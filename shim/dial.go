// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shim

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/bureau-foundation/vmshim/lib/compress"
	"github.com/bureau-foundation/vmshim/transport"
)

// DefaultChunkSize is the upload chunk size when DialOptions.ChunkSize
// is zero.
const DefaultChunkSize = 4096

// DialOptions configures [Dial].
type DialOptions struct {
	// Endpoint is the host peer.
	Endpoint transport.Endpoint

	// Dialer overrides the endpoint's own dialer. Tests use this to
	// route the channel through an in-memory listener.
	Dialer transport.Dialer

	// ConnectTimeout bounds the wait for the channel to become ready.
	// Zero means only ctx bounds it.
	ConnectTimeout time.Duration

	// Compression names the message compressor applied to every call
	// (see lib/compress). Empty or "none" disables compression.
	Compression string

	// ChunkSize is the upload chunk size in bytes.
	ChunkSize int

	// Logger receives transfer and connection logs. Nil means
	// slog.Default().
	Logger *slog.Logger
}

// Dial opens the gRPC channel to the host and waits until it is ready,
// so an unreachable host fails here rather than on the first call.
func Dial(ctx context.Context, options DialOptions) (*Client, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dialer := options.Dialer
	if dialer == nil {
		dialer = options.Endpoint.Dialer()
	}
	chunkSize := options.ChunkSize
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkSize < 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if err := compress.Validate(options.Compression); err != nil {
		return nil, err
	}

	dialOptions := []grpc.DialOption{
		// The authority is never used to route: the dial function below
		// always connects to the configured endpoint.
		grpc.WithContextDialer(transport.GRPCContextDialer(dialer, options.Endpoint.Address)),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if compress.Enabled(options.Compression) {
		dialOptions = append(dialOptions, grpc.WithDefaultCallOptions(grpc.UseCompressor(options.Compression)))
	}

	conn, err := grpc.NewClient("passthrough:///vm-host", dialOptions...)
	if err != nil {
		return nil, fmt.Errorf("creating channel to %s: %w", options.Endpoint, err)
	}

	logger.Info("connecting to host", "endpoint", options.Endpoint.String())
	if err := waitReady(ctx, conn, options.ConnectTimeout); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to %s: %w", options.Endpoint, err)
	}
	logger.Info("connected to host", "endpoint", options.Endpoint.String())

	return newClient(conn, chunkSize, logger), nil
}

// waitReady drives conn out of IDLE and blocks until it is READY. A
// transient failure is returned immediately instead of waiting out the
// reconnect backoff.
func waitReady(ctx context.Context, conn *grpc.ClientConn, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	conn.Connect()
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.TransientFailure:
			return fmt.Errorf("channel in state %s", state)
		case connectivity.Shutdown:
			return fmt.Errorf("channel shut down")
		}
		if !conn.WaitForStateChange(ctx, state) {
			return fmt.Errorf("channel still %s: %w", state, ctx.Err())
		}
	}
}
