// SPDX-FileCopyrightText: 2021 Alvar Penning
// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux
// +build linux

package mtcp

import (
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// The socket options follow tcp(7). A lost peer should be detected within a
// few seconds, well before the LLCP link timeout becomes meaningless.
// <https://man7.org/linux/man-pages/man7/tcp.7.html>

// dialControl is the net.Dialer's Control function to set the socket options.
func dialControl(_, _ string, rawConn syscall.RawConn) (err error) {
	opts := map[int]int{
		// Probes before dropping the connection.
		unix.TCP_KEEPCNT: 1,
		// Idle seconds before probing.
		unix.TCP_KEEPIDLE: 5,
		// Seconds between probes.
		unix.TCP_KEEPINTVL: 3,
		// Milliseconds data may remain unacknowledged.
		unix.TCP_USER_TIMEOUT: 2000,
		// LLCP frames are small and latency bound.
		unix.TCP_NODELAY: 1,
	}

	ctrlErr := rawConn.Control(func(fd uintptr) {
		for opt, value := range opts {
			if err = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, opt, value); err != nil {
				return
			}
		}
	})
	if ctrlErr != nil {
		err = ctrlErr
	}

	return
}

// dial a new TCP connection with socket options set.
func dial(address string) (net.Conn, error) {
	dialer := &net.Dialer{
		Timeout: time.Second,
		Control: dialControl,
	}
	return dialer.Dial("tcp", address)
}
