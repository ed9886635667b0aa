// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"net"
)

var _ Dialer = (*VsockDialer)(nil)

// VsockDialer opens AF_VSOCK stream connections. Addresses are
// "cid:port" with a numeric CID, as produced by [ParseEndpoint].
type VsockDialer struct{}

// DialContext connects to the vsock address. The connect honors ctx:
// cancellation or deadline expiry abandons the attempt and closes the
// socket.
func (d *VsockDialer) DialContext(ctx context.Context, address string) (net.Conn, error) {
	cid, port, err := parseVsockAddress(address)
	if err != nil {
		return nil, err
	}
	conn, err := dialVsock(ctx, cid, port)
	if err != nil {
		return nil, fmt.Errorf("vsock dial %s: %w", address, err)
	}
	return conn, nil
}

// VsockAddr is the net.Addr of one end of a vsock connection.
type VsockAddr struct {
	CID  uint32
	Port uint32
}

// Network returns "vsock".
func (a VsockAddr) Network() string { return NetworkVsock }

// String returns "cid:port".
func (a VsockAddr) String() string { return formatVsockAddress(a.CID, a.Port) }
