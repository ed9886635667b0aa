// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Dialer opens connections to the host peer.
type Dialer interface {
	// DialContext opens a stream connection to the given transport
	// address. The address format is dialer-specific ("2:8080" for
	// vsock, "127.0.0.1:8080" for TCP).
	DialContext(ctx context.Context, address string) (net.Conn, error)
}

// GRPCContextDialer returns a dial function for grpc.WithContextDialer
// that routes every connection through dialer to address. The target
// string gRPC passes in is ignored: the channel's authority never
// determines where the connection goes.
func GRPCContextDialer(dialer Dialer, address string) func(context.Context, string) (net.Conn, error) {
	return func(ctx context.Context, _ string) (net.Conn, error) {
		return dialer.DialContext(ctx, address)
	}
}

// Network names accepted in endpoint addresses.
const (
	NetworkVsock = "vsock"
	NetworkTCP   = "tcp"
)

// Well-known vsock context IDs.
const (
	// LocalCID addresses the local machine (loopback).
	LocalCID uint32 = 1

	// HostCID addresses the hypervisor, where the host peer listens.
	HostCID uint32 = 2
)

// Endpoint is a parsed peer address.
type Endpoint struct {
	// Network is NetworkVsock or NetworkTCP.
	Network string

	// Address is the dialer-specific address: "cid:port" with a
	// numeric CID for vsock, "host:port" for TCP.
	Address string
}

// ParseEndpoint parses "vsock://<cid>:<port>" or "tcp://<host>:<port>".
// For vsock the CID may be numeric or one of the names "host" (2) and
// "local" (1).
func ParseEndpoint(raw string) (Endpoint, error) {
	network, address, found := strings.Cut(raw, "://")
	if !found {
		return Endpoint{}, fmt.Errorf("endpoint %q: missing scheme (want vsock:// or tcp://)", raw)
	}

	switch network {
	case NetworkVsock:
		cid, port, err := parseVsockAddress(address)
		if err != nil {
			return Endpoint{}, fmt.Errorf("endpoint %q: %w", raw, err)
		}
		return Endpoint{Network: NetworkVsock, Address: formatVsockAddress(cid, port)}, nil

	case NetworkTCP:
		if _, _, err := net.SplitHostPort(address); err != nil {
			return Endpoint{}, fmt.Errorf("endpoint %q: %w", raw, err)
		}
		return Endpoint{Network: NetworkTCP, Address: address}, nil

	default:
		return Endpoint{}, fmt.Errorf("endpoint %q: unsupported network %q", raw, network)
	}
}

// String returns the endpoint in URL form.
func (e Endpoint) String() string {
	return e.Network + "://" + e.Address
}

// Dialer returns the Dialer that serves this endpoint's network.
func (e Endpoint) Dialer() Dialer {
	if e.Network == NetworkVsock {
		return &VsockDialer{}
	}
	return &TCPDialer{}
}

// parseVsockAddress splits "cid:port" into its numeric parts.
func parseVsockAddress(address string) (cid, port uint32, err error) {
	cidText, portText, found := strings.Cut(address, ":")
	if !found {
		return 0, 0, fmt.Errorf("vsock address %q: want <cid>:<port>", address)
	}

	switch cidText {
	case "host":
		cid = HostCID
	case "local":
		cid = LocalCID
	default:
		parsed, err := strconv.ParseUint(cidText, 10, 32)
		if err != nil {
			return 0, 0, fmt.Errorf("vsock address %q: invalid cid: %w", address, err)
		}
		cid = uint32(parsed)
	}

	parsedPort, err := strconv.ParseUint(portText, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("vsock address %q: invalid port: %w", address, err)
	}
	return cid, uint32(parsedPort), nil
}

func formatVsockAddress(cid, port uint32) string {
	return strconv.FormatUint(uint64(cid), 10) + ":" + strconv.FormatUint(uint64(port), 10)
}
