// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport opens the byte stream between the guest agent and
// its host peer.
//
// The guest has no network identity of its own. It reaches the host
// through a hypervisor-local socket: AF_VSOCK, addressed by a context ID
// (CID 2 is always the hypervisor) and a port. [VsockDialer] opens that
// socket with golang.org/x/sys/unix and wraps the descriptor as a
// net.Conn registered with the runtime poller, so deadlines and
// cancellation work the same as for TCP. [TCPDialer] is the development
// alternative for running the agent outside a VM against a local host
// process.
//
// [Endpoint] is the parsed form of a configured address
// ("vsock://host:8080", "tcp://127.0.0.1:8080") and knows which Dialer
// serves it.
//
// [GRPCContextDialer] adapts a Dialer for grpc.WithContextDialer. The
// target gRPC hands to the dial function is ignored: every connection
// goes through the Dialer to the one fixed peer, so no name resolution
// ever happens.
package transport
