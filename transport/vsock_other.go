// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package transport

import (
	"context"
	"errors"
	"net"
)

func dialVsock(ctx context.Context, cid, port uint32) (net.Conn, error) {
	return nil, errors.New("vsock is only available on linux")
}
