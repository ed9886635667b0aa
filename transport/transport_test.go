// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"testing"
	"time"
)

func TestParseEndpoint(t *testing.T) {
	cases := []struct {
		raw     string
		network string
		address string
	}{
		{"vsock://host:8080", NetworkVsock, "2:8080"},
		{"vsock://local:9000", NetworkVsock, "1:9000"},
		{"vsock://3:8080", NetworkVsock, "3:8080"},
		{"tcp://127.0.0.1:8080", NetworkTCP, "127.0.0.1:8080"},
	}

	for _, c := range cases {
		endpoint, err := ParseEndpoint(c.raw)
		if err != nil {
			t.Errorf("ParseEndpoint(%q): %v", c.raw, err)
			continue
		}
		if endpoint.Network != c.network || endpoint.Address != c.address {
			t.Errorf("ParseEndpoint(%q) = %+v, want %s %s", c.raw, endpoint, c.network, c.address)
		}
	}
}

func TestParseEndpointRejectsMalformed(t *testing.T) {
	for _, raw := range []string{
		"host:8080",
		"udp://127.0.0.1:53",
		"vsock://host",
		"vsock://hypervisor:8080",
		"vsock://host:http",
		"tcp://no-port",
	} {
		if _, err := ParseEndpoint(raw); err == nil {
			t.Errorf("ParseEndpoint(%q) succeeded, want error", raw)
		}
	}
}

func TestEndpointDialer(t *testing.T) {
	vsock, _ := ParseEndpoint("vsock://host:8080")
	if _, ok := vsock.Dialer().(*VsockDialer); !ok {
		t.Errorf("vsock endpoint dialer is %T, want *VsockDialer", vsock.Dialer())
	}
	tcp, _ := ParseEndpoint("tcp://127.0.0.1:8080")
	if _, ok := tcp.Dialer().(*TCPDialer); !ok {
		t.Errorf("tcp endpoint dialer is %T, want *TCPDialer", tcp.Dialer())
	}
	if vsock.String() != "vsock://2:8080" {
		t.Errorf("String() = %q, want vsock://2:8080", vsock.String())
	}
}

func TestVsockDialerFailsWithoutPeer(t *testing.T) {
	// Outside a VM either the address family is unsupported or nothing
	// listens on the port; both must surface as an error, never a hang.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, err := (&VsockDialer{}).DialContext(ctx, "1:1")
	if err == nil {
		conn.Close()
		t.Skip("a vsock listener exists on local port 1")
	}
}

func TestVsockDialerRejectsBadAddress(t *testing.T) {
	if _, err := (&VsockDialer{}).DialContext(context.Background(), "not-an-address"); err == nil {
		t.Fatal("expected error for malformed vsock address")
	}
}
