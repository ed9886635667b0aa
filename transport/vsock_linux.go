// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package transport

import (
	"context"
	"errors"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// connectPollInterval bounds each poll(2) wait during a non-blocking
// connect so context cancellation is noticed promptly.
const connectPollInterval = 100 * time.Millisecond

// vsockConn is a connected AF_VSOCK socket. The embedded *os.File
// supplies Read, Write, Close and the deadline methods; because the
// descriptor is non-blocking, os.NewFile registers it with the runtime
// poller and those calls park the goroutine instead of a thread.
type vsockConn struct {
	*os.File
	local  VsockAddr
	remote VsockAddr
}

func (c *vsockConn) LocalAddr() net.Addr  { return c.local }
func (c *vsockConn) RemoteAddr() net.Addr { return c.remote }

func dialVsock(ctx context.Context, cid, port uint32) (net.Conn, error) {
	fd, err := unix.Socket(unix.AF_VSOCK, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}

	if err := connectVsock(ctx, fd, cid, port); err != nil {
		unix.Close(fd)
		return nil, err
	}

	local := VsockAddr{}
	if sockaddr, err := unix.Getsockname(fd); err == nil {
		if vm, ok := sockaddr.(*unix.SockaddrVM); ok {
			local = VsockAddr{CID: vm.CID, Port: vm.Port}
		}
	}
	remote := VsockAddr{CID: cid, Port: port}

	file := os.NewFile(uintptr(fd), "vsock:"+remote.String())
	return &vsockConn{File: file, local: local, remote: remote}, nil
}

// connectVsock performs a non-blocking connect and waits for it to
// complete, checking ctx between polls.
func connectVsock(ctx context.Context, fd int, cid, port uint32) error {
	err := unix.Connect(fd, &unix.SockaddrVM{CID: cid, Port: port})
	if err == nil {
		return nil
	}
	if !errors.Is(err, unix.EINPROGRESS) {
		return os.NewSyscallError("connect", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		wait := connectPollInterval
		if deadline, ok := ctx.Deadline(); ok {
			if remaining := time.Until(deadline); remaining < wait {
				wait = max(remaining, time.Millisecond)
			}
		}

		pollFds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
		ready, err := unix.Poll(pollFds, int(wait.Milliseconds()))
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return os.NewSyscallError("poll", err)
		}
		if ready == 0 {
			continue
		}

		socketError, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
		if err != nil {
			return os.NewSyscallError("getsockopt", err)
		}
		if socketError != 0 {
			return os.NewSyscallError("connect", unix.Errno(socketError))
		}
		return nil
	}
}
